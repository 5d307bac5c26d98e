// Package fetch is the HTTP client shared by the data collaborators: resty
// with retries on transient failures, behind a circuit breaker.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BackoffConfig controls retries of a single request.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var ErrCircuitOpen = errors.New("fetch: circuit breaker open")

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s %s: status %d", e.Method, e.URL, e.Code)
}

func (e *StatusError) transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func New(name string, backoff BackoffConfig, logger *zap.Logger) *Client {
	cli := resty.New().
		SetRetryCount(backoff.MaxRetries).
		SetRetryWaitTime(backoff.InitialInterval).
		SetRetryMaxWaitTime(backoff.MaxInterval).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.transient()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.With(zap.String("from", from.String()), zap.String("to", to.String())).Warn("circuit-breaker")
		},
	})

	return &Client{http: cli, cb: cb, logger: logger}
}

type Client struct {
	http   *resty.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func (c *Client) R(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// Do executes req. Non 2xx responses come back as *StatusError.
func (c *Client) Do(req *resty.Request, method, url string) (*resty.Response, error) {
	start := time.Now()

	res, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := req.Execute(method, url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, &StatusError{Method: method, URL: url, Code: resp.StatusCode(), Body: resp.String()}
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Wrap(ErrCircuitOpen, err.Error())
	} else if err != nil {
		return nil, err
	}

	resp := res.(*resty.Response)
	c.logger.With(
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
		zap.String("cost", time.Since(start).String()),
	).Debug("request")

	return resp, nil
}
