package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName       = "breachwatch"
	defaultUserAgent = "breachwatch/1.0"
	maxBodyBytes     = 4 << 20
)

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// HTTPClient is the outbound client shared by the adapters. Every request
// gets a client span and a bounded body read.
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, provider, url string, header http.Header, out any) error {
	body, err := c.do(ctx, provider, http.MethodGet, url, header, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}

// PostJSON encodes in, POSTs it and decodes the JSON response into out
// (skipped when out is nil).
func (c *HTTPClient) PostJSON(ctx context.Context, provider, url string, header http.Header, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, provider, http.MethodPost, url, header, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}

// GetText issues a GET and returns the raw body.
func (c *HTTPClient) GetText(ctx context.Context, provider, url string, header http.Header) (string, error) {
	body, err := c.do(ctx, provider, http.MethodGet, url, header, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *HTTPClient) do(ctx context.Context, provider, method, url string, header http.Header, payload []byte) ([]byte, error) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, "provider."+provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.name", provider),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, recordSpanError(span, fmt.Errorf("%s: create request: %w", provider, err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, recordSpanError(span, fmt.Errorf("%s: request failed: %w", provider, stripURL(err)))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, recordSpanError(span, fmt.Errorf("%s: read body: %w", provider, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, recordSpanError(span, fmt.Errorf("%s: %w", provider, &StatusError{Code: resp.StatusCode, Body: string(snippet)}))
	}
	return body, nil
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// stripURL drops the request URL from transport errors. Query strings and
// paths can carry API keys or the queried secret.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func isMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
