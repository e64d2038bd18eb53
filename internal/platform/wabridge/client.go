package wabridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/terrenos-crm-backend/internal/pkg/httpx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/envutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

// ErrCircuitOpen is returned while the breaker refuses calls to the bridge.
var ErrCircuitOpen = errors.New("wabridge: circuit open")

// Client delivers outgoing WhatsApp messages through the WhatsApp Web bridge.
type Client interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// BaseBackoff is the first retry delay; it doubles on each attempt.
	BaseBackoff time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:     envutil.String("WHATSAPP_BRIDGE_URL", ""),
		Token:       envutil.String("WHATSAPP_BRIDGE_TOKEN", ""),
		Timeout:     envutil.Duration("WHATSAPP_BRIDGE_TIMEOUT", 15*time.Second),
		MaxRetries:  envutil.Int("WHATSAPP_BRIDGE_MAX_RETRIES", 2),
		BaseBackoff: time.Second,
	}
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing WHATSAPP_BRIDGE_URL")
	}
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}

	clientLog := log.With("client", "WhatsappBridgeClient")
	return &client{
		log:        clientLog,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    newBreaker(clientLog),
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type SendRequest struct {
	MessageID     string `json:"message_id"`
	Phone         string `json:"phone"`
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	MediaURL      string `json:"media_url,omitempty"`
	MediaMimeType string `json:"media_mime_type,omitempty"`
}

type SendResponse struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

func (c *client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("wabridge client unavailable")
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.MessageID = strings.TrimSpace(req.MessageID)
	if req.Phone == "" {
		return nil, &PermanentError{Reason: "phone required"}
	}
	if req.MessageID == "" {
		return nil, &PermanentError{Reason: "message_id required"}
	}
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.MediaURL) == "" {
		return nil, &PermanentError{Reason: "content or media_url required"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return doJSON[SendResponse](c, ctx, http.MethodPost, c.cfg.BaseURL+"/send", body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return out.(*SendResponse), nil
}

func newBreaker(log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whatsapp-bridge",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejections by the bridge mean the bridge is up.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Bridge circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// PermanentError marks a delivery the bridge will never accept; retrying it
// is pointless.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return "wabridge: " + e.Err.Error()
	}
	return "wabridge: " + e.Reason
}

func (e *PermanentError) Unwrap() error { return e.Err }

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "wabridge: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("wabridge http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) backoff() httpx.Backoff {
	return httpx.Backoff{Retries: c.cfg.MaxRetries, Base: c.cfg.BaseBackoff, Max: 10 * time.Second}
}

func doJSON[T any](c *client, ctx context.Context, method, urlStr string, body []byte) (*T, error) {
	var out *T
	onRetry := func(retry int, wait time.Duration, err error) {
		c.log.Warn("Bridge request retrying",
			"url", urlStr,
			"attempt", retry,
			"max_retries", c.cfg.MaxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
	}
	err := httpx.Retry(ctx, c.backoff(), onRetry, func(ctx context.Context) (*http.Response, error) {
		res, resp, err := doJSONOnce[T](c, ctx, method, urlStr, body)
		out = res
		return resp, err
	})
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) && httpx.IsPermanentHTTPStatus(he.StatusCode) {
			return nil, &PermanentError{Reason: "rejected", Err: err}
		}
		return nil, err
	}
	return out, nil
}

func doJSONOnce[T any](c *client, ctx context.Context, method, urlStr string, body []byte) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("wabridge decode error: %w", err)
	}
	return &out, resp, nil
}
