package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/gateway/middleware"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// APIClient talks to the remote POS REST API. Every call takes the bearer
// token explicitly; the client never stores one.
type APIClient struct {
	BaseURL *url.URL
	HTTP    *http.Client

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

func NewAPIClient(baseURL string, timeout time.Duration) (*APIClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host are required", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{BaseURL: u, HTTP: &http.Client{Timeout: timeout}}, nil
}

// OnUnauthorized registers the hook run when the API answers 401 to a call
// that carried a token.
func (c *APIClient) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *APIClient) unauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

type request struct {
	method   string
	path     string
	query    url.Values
	token    string
	body     interface{}
	headers  http.Header
	resource string
}

// do sends req and decodes a 2xx body into out. Non-2xx answers become
// apperror values carrying the server's detail verbatim.
func (c *APIClient) do(ctx context.Context, req request, out interface{}) error {
	rel := &url.URL{Path: req.path}
	if len(req.query) > 0 {
		rel.RawQuery = req.query.Encode()
	}
	u := c.BaseURL.ResolveReference(rel)

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return &apperror.TransportError{Message: err.Error(), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if rid := middleware.GetRequestID(ctx); rid != "" {
		httpReq.Header.Set(middleware.HeaderRequestID, rid)
	}
	for k, vv := range req.headers {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return &apperror.TransportError{Message: fmt.Sprintf("POS API unreachable: %v", err), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &apperror.TransportError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp.StatusCode, detailOf(payload, resp.StatusCode), req.resource)
		// Only a rejected bearer token means the credential is gone.
		if req.token != "" && apperror.IsUnauthorized(apiErr) {
			c.unauthorized(ctx)
		}
		log.Printf("POS API %s %s -> %d", req.method, u.Path, resp.StatusCode)
		return apiErr
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &apperror.TransportError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response from POS API: %v", err), Err: err}
	}
	return nil
}

// statusError maps an API status code onto the register's error taxonomy.
func statusError(status int, detail, resource string) error {
	switch {
	case status == http.StatusUnauthorized:
		if detail == "" {
			detail = apperror.ErrUnauthenticated.Message
		}
		return &apperror.TransportError{Status: status, Message: detail, Unauthorized: true}
	case status == http.StatusNotFound:
		return apperror.NewNotFoundError(resource, detail)
	case status == http.StatusBadRequest || status == http.StatusConflict:
		lower := strings.ToLower(detail)
		if strings.Contains(lower, "already") {
			if strings.Contains(lower, "closed") {
				return &apperror.ValidationError{Kind: apperror.KindAlreadyClosed, Message: detail}
			}
			if strings.Contains(lower, "open") {
				return &apperror.ValidationError{Kind: apperror.KindAlreadyOpen, Message: detail}
			}
		}
	}
	return &apperror.TransportError{Status: status, Message: detail}
}

// detailOf pulls the human readable message out of an error body. The API
// answers {"detail": "..."} or, for schema errors, {"detail": [{"msg": ...}]}.
func detailOf(payload []byte, status int) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}
