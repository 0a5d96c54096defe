// Package fetch provides the outbound JSON fetch primitive shared by the
// marketplace client: bounded retries with linear backoff, and a degrade-to-
// empty contract so a dead endpoint never fails a poll cycle.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Options tune the retry budget.
type Options struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Headers  map[string]string
}

// Client issues GET/POST requests for JSON documents. Transient failures and
// non-200 responses are retried up to the attempt budget; exhaustion yields
// an empty result rather than an error. Context cancellation propagates
// immediately, mid-retry included.
type Client struct {
	rc     *resty.Client
	logger zerolog.Logger
}

// New constructs a fetch client. Defaults: 3 attempts, 1s/2s/3s backoff,
// 30s per-request timeout.
func New(opts Options, logger zerolog.Logger) *Client {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	log := logger.With().Str("component", "fetch").Logger()

	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(attempts - 1).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			// Linear backoff: 1x, 2x, 3x the base interval.
			return backoff * time.Duration(resp.Request.Attempt), nil
		}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp != nil && resp.Request.Context().Err() != nil {
				return false
			}
			return err != nil || resp.StatusCode() != http.StatusOK
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			evt := log.Warn().Int("attempt", resp.Request.Attempt).Str("url", resp.Request.URL)
			if err != nil {
				evt = evt.Err(err)
			} else {
				evt = evt.Int("status", resp.StatusCode())
			}
			evt.Msg("request failed, retrying")
		})

	for k, v := range opts.Headers {
		rc.SetHeader(k, v)
	}

	return &Client{rc: rc, logger: log}
}

// GetJSON fetches a JSON object. Returns an empty map if every attempt
// failed; the only returned error is cooperative cancellation.
func (c *Client) GetJSON(ctx context.Context, url string, params map[string]string) (map[string]any, error) {
	var out map[string]any
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(url)
	return c.finishObject(ctx, url, out, resp, err)
}

// PostJSON posts a JSON payload and returns the decoded response, which may
// be either an object or an array. Same degrade-to-empty contract as GetJSON.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (any, error) {
	var out any
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&out).
		Post(url)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return map[string]any{}, ctxErr
	}
	if err != nil || resp == nil || resp.StatusCode() != http.StatusOK || out == nil {
		c.logExhausted(url, resp, err)
		return map[string]any{}, nil
	}
	return out, nil
}

func (c *Client) finishObject(ctx context.Context, url string, out map[string]any, resp *resty.Response, err error) (map[string]any, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return map[string]any{}, ctxErr
	}
	if err != nil || resp == nil || resp.StatusCode() != http.StatusOK || out == nil {
		c.logExhausted(url, resp, err)
		return map[string]any{}, nil
	}
	return out, nil
}

func (c *Client) logExhausted(url string, resp *resty.Response, err error) {
	evt := c.logger.Warn().Str("url", url)
	if err != nil {
		evt = evt.Err(err)
	} else if resp != nil {
		evt = evt.Int("status", resp.StatusCode())
	}
	evt.Msg("request exhausted retries, returning empty result")
}
