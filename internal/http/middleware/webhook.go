package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
)

const headerWebhookSecret = "X-Webhook-Secret"

// WebhookSecret rejects bridge calls that do not carry the shared secret.
// An empty secret leaves the endpoints open.
func WebhookSecret(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader(headerWebhookSecret))
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.Fail(c, http.StatusUnauthorized, "invalid_webhook_secret", "Firma de webhook inválida")
			return
		}
		c.Next()
	}
}

// RateLimit shares one token bucket across every request through the handler.
// rps <= 0 disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			response.Fail(c, http.StatusTooManyRequests, "rate_limited", "Demasiadas solicitudes")
			return
		}
		c.Next()
	}
}
