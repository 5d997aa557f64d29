// Package client is a typed HTTP client of the portal API, used by Go
// callers such as the auction board model and operational tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("client")

// PortalClient calls the portal API on behalf of one signed-in user.
type PortalClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewPortalClient creates a new PortalClient. token is the bearer access
// token sent with every request; empty for public calls only.
func NewPortalClient(httpClient *http.Client, baseURL, token string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *PortalClient {
	return &PortalClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		cb:         cb,
		cfg:        cfg,
	}
}

// WithToken returns a copy of the client that authenticates as token.
func (c *PortalClient) WithToken(token string) *PortalClient {
	cp := *c
	cp.token = token
	return &cp
}

// errorBody is the error envelope the API writes.
type errorBody struct {
	Error     string   `json:"error"`
	Succeeded []string `json:"succeeded,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// get reads a resource. Reads are retried per cfg.
func (c *PortalClient) get(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.do(ctx, http.MethodGet, path, nil, out)
		})
	})
	return c.wrap(path, err)
}

// send performs a write. Writes are never retried.
func (c *PortalClient) send(ctx context.Context, method, path string, payload, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, method, path, payload, out)
	})
	return c.wrap(path, err)
}

func (c *PortalClient) wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	err = resilience.Classify("portal", path, err)
	if !resilience.Retryable(err) {
		return err
	}
	switch err.(type) {
	case *domain.ErrCircuitOpen, *domain.ErrTimeout, *domain.ErrExternalService, *domain.ErrPartialBatch:
		return err
	}
	return &domain.ErrExternalService{Service: "portal", Err: err}
}

func (c *PortalClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMultiStatus || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError maps an error response back onto the domain taxonomy.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
	}
	msg := eb.Error

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &domain.ErrValidation{Field: "request", Message: msg}
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: msg}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Action: msg}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: "resource", ID: msg}
	case http.StatusConflict:
		return &domain.ErrConflict{Message: msg}
	case http.StatusMultiStatus:
		return &domain.ErrPartialBatch{Succeeded: eb.Succeeded, Failed: eb.Failed, Err: fmt.Errorf("%s", msg)}
	case http.StatusServiceUnavailable:
		return &domain.ErrCircuitOpen{Service: "portal"}
	case http.StatusGatewayTimeout:
		return &domain.ErrTimeout{Operation: msg}
	}
	return fmt.Errorf("portal API returned status %d: %s", resp.StatusCode, msg)
}
