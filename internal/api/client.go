package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitInfo struct {
	Bucket    string `json:"bucket"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`

	// seconds until reset
	ResetAfter float64 `json:"reset_after"`

	UpdatedAt time.Time `json:"updated_at"`
}

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d: %s", e.Status, e.Body)
}

// rateTracker records the most recent rate limit headers seen.
type rateTracker struct {
	mu   sync.RWMutex
	info RateLimitInfo
}

func (t *rateTracker) get() RateLimitInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info
}

func (t *rateTracker) update(resp *fasthttp.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bucket := string(resp.Header.Peek("X-Ratelimit-Bucket")); bucket != "" {
		t.info.Bucket = bucket
	}
	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			t.info.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			t.info.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset-After")); reset != "" {
		if val, err := strconv.ParseFloat(reset, 64); err == nil {
			t.info.ResetAfter = val
		}
	}
	t.info.UpdatedAt = time.Now()
}

func newHTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         60 * time.Second,
		WriteTimeout:        30 * time.Second,
		MaxIdleConnDuration: 1 * time.Minute,
		MaxResponseBodySize: 32 << 20,
	}
}

// request describes one call made through do.
type request struct {
	method      string
	url         string
	headers     map[string]string
	contentType string
	body        []byte
}

func do(ctx context.Context, client *fasthttp.Client, rate *rateTracker, r request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(r.method)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.body != nil {
		req.Header.SetContentType(r.contentType)
		req.SetBody(r.body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if rate != nil {
		rate.update(resp)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &APIError{Status: code, Body: string(resp.Body())}
	}

	// The response is released on return.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func doJSON[T any](ctx context.Context, client *fasthttp.Client, rate *rateTracker, r request) (*T, error) {
	body, err := do(ctx, client, rate, r)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
