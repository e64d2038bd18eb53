package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/terrenos-crm-backend/internal/pkg/errors"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
)

const (
	MessageValidation = "Error de validación"
	MessageInternal   = "Error interno del servidor"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type ValidationEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Error renders err with the status it carries. Unknown errors become a 500
// and are attached to the gin context so the request logger records them.
func Error(c *gin.Context, err error) {
	var verr *apierr.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationEnvelope{
			Message: MessageValidation,
			Errors:  verr.Fields,
		})
		return
	}

	var aerr *apierr.Error
	if errors.As(err, &aerr) {
		status := aerr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		msg := aerr.Error()
		if status >= 500 {
			_ = c.Error(err)
			msg = MessageInternal
		}
		body := gin.H{
			"success": false,
			"message": msg,
			"error":   http.StatusText(status),
			"code":    aerr.Code,
		}
		for k, v := range aerr.Extra {
			body[k] = v
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	status, code := sentinelStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = MessageInternal
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": msg,
		"error":   http.StatusText(status),
		"code":    code,
	})
}

// Fail renders a handler-level failure that has no error value behind it.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   http.StatusText(status),
		"code":    code,
	})
}

func sentinelStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, pkgerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case pkgerrors.IsUniqueViolation(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
