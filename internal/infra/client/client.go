// Package client talks to the remote Nexora backend: invoice extraction,
// credit scoring, the dashboard score, business profiles and authentication.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// Service labels used in errors, metrics and spans.
const (
	ServiceExtraction = "invoice-extraction"
	ServiceScoring    = "credit-scoring"
	ServiceDashboard  = "dashboard"
	ServiceInvoices   = "invoices"
	ServiceAuth       = "auth"
	ServiceBusiness   = "business"
	ServicePolicies   = "policies"
)

const (
	defaultRefreshPath    = "/refresh"
	defaultMaxUploadBytes = 10 << 20
	maxResponseBytes      = 4 << 20
)

// NexoraClient is the HTTP adapter for every Nexora backend endpoint. Calls
// are single-shot: failures surface to the caller instead of being retried.
type NexoraClient struct {
	httpClient     *http.Client
	baseURL        string
	cb             *gobreaker.CircuitBreaker
	metrics        *observability.Metrics
	logger         *zap.Logger
	refreshPath    string
	maxUploadBytes int64
}

// Option customizes a NexoraClient.
type Option func(*NexoraClient)

// WithRefreshPath overrides the token refresh endpoint path.
func WithRefreshPath(path string) Option {
	return func(c *NexoraClient) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithMaxUploadBytes caps the size of uploaded invoice documents.
func WithMaxUploadBytes(n int64) Option {
	return func(c *NexoraClient) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// NewNexoraClient creates a new NexoraClient.
func NewNexoraClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *NexoraClient {
	c := &NexoraClient{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		cb:             cb,
		metrics:        metrics,
		logger:         logger,
		refreshPath:    defaultRefreshPath,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsBreakerSuccess reports whether err should count as a healthy remote for
// the circuit breaker. The backend answering 4xx is healthy; only transport
// failures and 5xx count against it.
func IsBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var unauthorized *domain.ErrUnauthorized
	if errors.As(err, &unauthorized) {
		return true
	}
	var remote *domain.ErrRemote
	if errors.As(err, &remote) {
		return remote.Status < 500
	}
	var malformed *domain.ErrMalformedResponse
	return errors.As(err, &malformed)
}

// request describes one remote call.
type request struct {
	service string
	method  string
	path    string
	token   string
	body    io.Reader
	length  int64
	ctype   string
}

func (c *NexoraClient) jsonRequest(service, method, path, token string, payload any) (*request, error) {
	r := &request{service: service, method: method, path: path, token: token}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", service, err)
		}
		r.body = bytes.NewReader(raw)
		r.length = int64(len(raw))
		r.ctype = "application/json"
	}
	return r, nil
}

// do sends r through the circuit breaker and returns the response body of a
// 2xx answer. Failures are classified into the domain error types.
func (c *NexoraClient) do(ctx context.Context, r *request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "NexoraClient."+r.service)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", r.method),
		attribute.String("http.route", r.path),
	)

	start := time.Now()
	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
		if err != nil {
			return nil, err
		}
		if r.body != nil {
			req.ContentLength = r.length
			req.Header.Set("Content-Type", r.ctype)
		}
		req.Header.Set("Accept", "application/json")
		if r.token != "" {
			req.Header.Set("Authorization", "Bearer "+r.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, classifyTransport(ctx, r.service, err)
		}
		defer resp.Body.Close()
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, classifyTransport(ctx, r.service, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &domain.ErrUnauthorized{Status: resp.StatusCode, Message: errorText(body)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &domain.ErrRemote{Service: r.service, Status: resp.StatusCode, Detail: errorText(body)}
		}
		return body, nil
	})
	c.metrics.RecordRemoteDuration(r.service, time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &domain.ErrCircuitOpen{Service: r.service}
		}
		kind := ErrorKind(err)
		c.metrics.IncrRemoteError(r.service, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		c.logger.Warn("remote call failed",
			zap.String("service", r.service),
			zap.String("path", r.path),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, err
	}
	return result.([]byte), nil
}

// ErrorKind names the failure class of err for metrics and logs.
func ErrorKind(err error) string {
	return domain.ErrorKind(err)
}

func classifyTransport(ctx context.Context, service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrNetwork{Service: service, Err: err}
}

// errorText extracts the server-provided message of an error response, or
// "" when the body carries none.
func errorText(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var eb wire.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Text())
}
