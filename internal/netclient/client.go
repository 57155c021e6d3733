package netclient

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
	"unicode/utf8"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "podnotes/1.0"

	errorBodyLimit = 100
)

// Doer is the bare HTTP capability the client builds on.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type RequestOptions struct {
	Timeout time.Duration
	Method  string
	Headers map[string]string
	Body    []byte
}

// Response is a fully read HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

func (r *Response) Text() string { return string(r.Body) }

func (r *Response) ArrayBuffer() []byte { return r.Body }

func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode json response: %w", err)
	}
	return nil
}

type Client struct {
	http      Doer
	userAgent string
}

// NewClient wraps httpClient. A nil client gets a plain http.Client; the
// per-request deadline comes from RequestOptions.Timeout.
func NewClient(httpClient Doer, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{http: httpClient, userAgent: userAgent}
}

// Get is RequestWithTimeout with default options.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.RequestWithTimeout(ctx, url, RequestOptions{})
}

// RequestWithTimeout performs a single request bounded by opts.Timeout
// (DefaultTimeout when zero). The timer is released on every exit path.
func (c *Client) RequestWithTimeout(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, &NetworkError{URL: url, Cause: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{URL: url, Timeout: timeout}
		}
		return nil, &NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{URL: url, Timeout: timeout}
		}
		return nil, &NetworkError{URL: url, Status: resp.StatusCode, Cause: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, &NetworkError{URL: url, Status: resp.StatusCode, Body: truncateBody(data)}
	}

	return &Response{Status: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

func truncateBody(data []byte) string {
	s := strings.TrimSpace(string(data))
	if utf8.RuneCountInString(s) <= errorBodyLimit {
		return s
	}
	return string([]rune(s)[:errorBodyLimit])
}
