// Package resource executes backend CRUD operations through indexed OpenAPI
// specifications and normalizes the inconsistent response envelopes into
// typed record pages and mutation results.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/config"
	"github.com/shiftwise/console/internal/openapi"
	"github.com/shiftwise/console/model"
)

// serviceClient holds the HTTP client and circuit breaker for a single
// backend service.
type serviceClient struct {
	cfg     config.ServiceConfig
	client  *http.Client
	breaker *CircuitBreaker
}

// Input carries the request parts for one backend invocation.
type Input struct {
	// RecordID fills any path parameter not set explicitly in PathParams.
	RecordID    string
	PathParams  map[string]string
	QueryParams map[string]string
	Headers     map[string]string
	Body        any
}

// Result is the raw outcome of one backend invocation.
type Result struct {
	StatusCode int
	Headers    map[string]string
	Body       any
}

// Invoker builds and executes HTTP requests against backend services using
// indexed OpenAPI operations. Failed calls are never retried; the caller
// surfaces the failure and the user decides whether to try again.
type Invoker struct {
	index   *openapi.Index
	clients map[string]*serviceClient
	logger  *zap.Logger
}

// NewInvoker creates an invoker with per-service HTTP clients and circuit
// breakers.
func NewInvoker(idx *openapi.Index, services map[string]config.ServiceConfig, logger *zap.Logger) *Invoker {
	clients := make(map[string]*serviceClient, len(services))
	for id, svcCfg := range services {
		timeout := svcCfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxConnsPerHost:     50,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		cbCfg := svcCfg.CircuitBreaker
		clients[id] = &serviceClient{
			cfg: svcCfg,
			client: &http.Client{
				Timeout:   timeout,
				Transport: transport,
			},
			breaker: NewCircuitBreaker(cbCfg.FailureThreshold, cbCfg.Cooldown),
		}
	}
	return &Invoker{
		index:   idx,
		clients: clients,
		logger:  logger,
	}
}

// BreakerState reports the circuit breaker state for a service, for
// readiness reporting. Unknown services read as closed.
func (inv *Invoker) BreakerState(serviceID string) BreakerState {
	svc, ok := inv.clients[serviceID]
	if !ok {
		return BreakerClosed
	}
	return svc.breaker.State()
}

// ValidateBody checks a mutation payload against the operation's request
// schema in the OpenAPI index. A non-nil return is a VALIDATION_ERROR
// envelope listing the missing required fields.
func (inv *Invoker) ValidateBody(serviceID, operationID string, body map[string]any) error {
	verrs := inv.index.ValidateRequest(serviceID, operationID, body)
	if len(verrs) == 0 {
		return nil
	}
	details := make([]model.FieldError, 0, len(verrs))
	for _, ve := range verrs {
		details = append(details, model.FieldError{
			Field:   ve.Field,
			Code:    "required",
			Message: ve.Message,
		})
	}
	return model.NewValidationError(details)
}

// Invoke looks up the operation in the OpenAPI index, builds an HTTP
// request, and executes it once with circuit breaker protection.
func (inv *Invoker) Invoke(
	ctx context.Context,
	rctx *model.RequestContext,
	serviceID, operationID string,
	input Input,
) (Result, error) {
	op, ok := inv.index.GetOperation(serviceID, operationID)
	if !ok {
		return Result{}, fmt.Errorf(
			"resource: operation %s/%s not found in OpenAPI index", serviceID, operationID)
	}

	svc, ok := inv.clients[serviceID]
	if !ok {
		return Result{}, fmt.Errorf("resource: service %q not configured", serviceID)
	}

	if err := svc.breaker.Allow(); err != nil {
		return Result{}, model.NewBackendUnavailableError()
	}

	reqURL := buildRequestURL(op, input)
	headers := buildRequestHeaders(rctx, input, op.Method)

	var body io.Reader
	if input.Body != nil {
		bodyBytes, err := json.Marshal(input.Body)
		if err != nil {
			return Result{}, fmt.Errorf("resource: marshal body: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, reqURL, body)
	if err != nil {
		return Result{}, fmt.Errorf("resource: build request: %w", err)
	}
	req.Header = headers

	start := time.Now()
	resp, err := svc.client.Do(req)
	if err != nil {
		svc.breaker.RecordFailure()
		inv.logger.Warn("backend call failed",
			zap.String("service", serviceID),
			zap.String("operation", operationID),
			zap.Error(err))
		if isConnectionError(err) {
			return Result{}, model.NewBackendUnavailableError()
		}
		if ctx.Err() != nil || isTimeoutError(err) {
			return Result{}, model.NewBackendTimeoutError()
		}
		return Result{}, fmt.Errorf("resource: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB limit
	if err != nil {
		svc.breaker.RecordFailure()
		return Result{}, fmt.Errorf("resource: read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		svc.breaker.RecordFailure()
	} else if resp.StatusCode < 400 {
		// 4xx are not infrastructure failures.
		svc.breaker.RecordSuccess()
	}

	inv.logger.Debug("backend call",
		zap.String("service", serviceID),
		zap.String("operation", operationID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	result := Result{
		StatusCode: resp.StatusCode,
		Headers:    extractResponseHeaders(resp),
	}

	if len(respBody) > 0 {
		var parsed any
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			result.Body = parsed
		}
	}

	return result, nil
}

func buildRequestURL(op openapi.IndexedOperation, input Input) string {
	path := op.PathTemplate

	for name, value := range input.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	// Any remaining path parameter takes the record id.
	if input.RecordID != "" {
		for _, p := range op.Parameters {
			if p.In == "path" {
				path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(input.RecordID))
			}
		}
	}

	result := op.BaseURL + path

	if len(input.QueryParams) > 0 {
		params := url.Values{}
		for k, v := range input.QueryParams {
			params.Set(k, v)
		}
		result += "?" + params.Encode()
	}

	return result
}

func buildRequestHeaders(rctx *model.RequestContext, input Input, method string) http.Header {
	h := make(http.Header)

	h.Set("Accept", "application/json")
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		h.Set("Content-Type", "application/json")
	}

	if rctx != nil {
		if rctx.Token != "" {
			h.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
		}
		h.Set("X-Organisation-Id", sanitizeHeader(rctx.OrgID))
		h.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
		h.Set("X-Request-Subject", sanitizeHeader(rctx.SubjectID))
	}

	// Custom headers come last so they can override.
	for k, v := range input.Headers {
		h.Set(sanitizeHeader(k), sanitizeHeader(v))
	}

	return h
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func extractResponseHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string)
	for _, key := range []string{
		"Content-Type", "X-Correlation-Id", "X-Trace-Id",
		"X-Request-Id", "Retry-After",
	} {
		if v := resp.Header.Get(key); v != "" {
			headers[key] = v
		}
	}
	return headers
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
