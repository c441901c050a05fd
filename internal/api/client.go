package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrUnexpectedResponse is returned when a 2xx/3xx response does not carry
// what the endpoint contract promises.
var ErrUnexpectedResponse = errors.New("unexpected response from backend")

const maxBodySize = 4 << 20

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	// Detail is the backend-supplied message, empty if none was sent.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 for transport errors.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Detail returns the backend-supplied message carried by err, if any.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// Client talks to the link shortener REST backend.
// Redirects are never followed: they are part of the short link contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := *httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &hc,
		logger:     logger,
	}
}

// BearerHeader builds the authorization header for token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

type response struct {
	status   int
	body     []byte
	location *url.URL
}

func (c *Client) send(ctx context.Context, method, path string, auth http.Header, in any) (*response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range auth {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	out := &response{status: resp.StatusCode, body: data}
	if loc, err := resp.Location(); err == nil {
		out.location = loc
	}
	return out, nil
}

// do sends a request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, auth http.Header, in, out any) error {
	resp, err := c.send(ctx, method, path, auth, in)
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status > 299 {
		return newError(resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, method, path, err)
	}
	return nil
}

// raw sends a request and returns the 2xx body untouched.
func (c *Client) raw(ctx context.Context, method, path string, auth http.Header) ([]byte, error) {
	resp, err := c.send(ctx, method, path, auth, nil)
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, newError(resp)
	}
	return resp.body, nil
}

// newError builds an *Error, picking up {"detail": "..."} or {"message": "..."}.
func newError(resp *response) *Error {
	e := &Error{StatusCode: resp.status}
	if !gjson.ValidBytes(resp.body) {
		return e
	}
	for _, key := range []string{"detail", "message"} {
		if v := gjson.GetBytes(resp.body, key); v.Type == gjson.String && v.String() != "" {
			e.Detail = v.String()
			break
		}
	}
	return e
}
