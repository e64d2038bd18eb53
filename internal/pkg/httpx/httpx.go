package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus reports whether a delivery that got code may succeed
// later: timeouts, throttling and server-side failures.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}

// IsPermanentHTTPStatus reports whether the remote rejected the request
// itself, so sending it again can never succeed.
func IsPermanentHTTPStatus(code int) bool {
	return code >= 400 && code <= 499 && !IsRetryableHTTPStatus(code)
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// The caller gave up; only per-attempt deadlines are worth another try.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Zero means the header is absent or unusable.
func RetryAfter(resp *http.Response, now time.Time) time.Duration {
	if resp == nil {
		return 0
	}
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(ra); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// Backoff is an exponential schedule: Base, 2*Base, 4*Base... capped at Max.
type Backoff struct {
	Retries int
	Base    time.Duration
	Max     time.Duration
}

// Wait returns the pause before retry number attempt (0-based), preferring
// the server's Retry-After hint.
func (b Backoff) Wait(attempt int, resp *http.Response) time.Duration {
	d := b.Base
	for i := 0; i < attempt && (b.Max <= 0 || d < b.Max); i++ {
		d *= 2
	}
	if hint := RetryAfter(resp, time.Now()); hint > 0 {
		d = hint
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return Jitter(d)
}

// Jitter spreads d by ±20% so stalled clients do not retry in lockstep.
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d) / 5
	if spread == 0 {
		return d
	}
	return d - time.Duration(spread) + time.Duration(rand.Int63n(2*spread+1))
}

// Attempt performs one request. The response, when non-nil, is only read
// for its headers; the attempt owns and closes the body.
type Attempt func(ctx context.Context) (*http.Response, error)

// Retry runs attempt until it succeeds, fails with an error that is not
// retryable, or b.Retries retries are spent. onRetry may be nil.
func Retry(ctx context.Context, b Backoff, onRetry func(retry int, wait time.Duration, err error), attempt Attempt) error {
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := attempt(ctx)
		if err == nil {
			return nil
		}
		if n >= b.Retries || !IsRetryableError(err) {
			return err
		}

		wait := b.Wait(n, resp)
		if onRetry != nil {
			onRetry(n+1, wait, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
