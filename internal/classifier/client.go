// Package classifier is the HTTP client for the remote rare-disease
// classification service.
//
// A Client posts one image per call as a multipart form with a single "file"
// part and decodes the ranked predictions. Calls are bounded by a shared
// concurrency limiter and, unless disabled, guarded by a circuit breaker so a
// failing service is not hammered by every open session.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
)

// Endpoint paths relative to the base URL.
const (
	ClassifyPath = "/classify"
	DiseasesPath = "/diseases"
)

// FormField is the multipart field carrying the image.
const FormField = "file"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

var errMalformed = errors.New("malformed response")

// Client talks to the classification service. It implements core.Classifier
// and core.DiseaseCatalog and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *core.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for breaker transitions and call events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service at cfg.URL.
func New(cfg config.ClassifierConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse classifier url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("classifier url %q must be absolute", cfg.URL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(base.String(), "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    core.NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.BreakerEnabled {
		c.breaker = newBreaker(cfg, c.logger)
	}
	return c, nil
}

func newBreaker(cfg config.ClassifierConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A rejected image says nothing about the service's health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var svcErr *core.ServiceError
			return errors.As(err, &svcErr) && svcErr.Status < http.StatusInternalServerError
		},
	})
}

// classifyResponse is the service's JSON body. Predictions is a pointer so a
// missing field can be told apart from an empty list.
type classifyResponse struct {
	Predictions *[]core.ClassificationRecord `json:"predictions"`
	Error       string                       `json:"error"`
}

type diseasesResponse struct {
	Diseases []string `json:"diseases"`
	Error    string   `json:"error"`
}

// Classify sends the image and returns the predictions in service order.
//
// Errors are *core.ServiceError when the service answered with a non-2xx
// status or an "error" field, and *core.TransportError otherwise.
func (c *Client) Classify(ctx context.Context, req core.ClassificationRequest) (core.ClassificationResult, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, &core.TransportError{Op: "acquire", Err: err}
	}
	defer c.limiter.Release()

	v, err := c.execute(func() (interface{}, error) {
		return c.classify(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(core.ClassificationResult), nil
}

func (c *Client) classify(ctx context.Context, req core.ClassificationRequest) (core.ClassificationResult, error) {
	body, contentType, err := encodeImage(req)
	if err != nil {
		return nil, &core.TransportError{Op: "encode", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ClassifyPath, body)
	if err != nil {
		return nil, &core.TransportError{Op: "request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	status, raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var payload classifyResponse
	decodeErr := json.Unmarshal(raw, &payload)

	c.logger.Debug("classifier responded",
		"status", status,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if status < 200 || status > 299 {
		return nil, &core.ServiceError{Status: status, Message: payload.Error}
	}
	if decodeErr != nil {
		return nil, &core.TransportError{Op: "decode", Err: fmt.Errorf("%w: %v", errMalformed, decodeErr)}
	}
	if payload.Error != "" {
		return nil, &core.ServiceError{Status: status, Message: payload.Error}
	}
	if payload.Predictions == nil {
		return nil, &core.TransportError{Op: "decode", Err: fmt.Errorf("%w: missing predictions", errMalformed)}
	}

	records := *payload.Predictions
	for i, rec := range records {
		if rec.Confidence < 0 || rec.Confidence > 100 {
			return nil, &core.TransportError{
				Op:  "decode",
				Err: fmt.Errorf("%w: prediction %d confidence %v out of range", errMalformed, i, rec.Confidence),
			}
		}
	}
	return core.ClassificationResult(records), nil
}

// Diseases returns the catalogue of diseases the service recognises.
func (c *Client) Diseases(ctx context.Context) ([]string, error) {
	v, err := c.execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+DiseasesPath, nil)
		if err != nil {
			return nil, &core.TransportError{Op: "request", Err: err}
		}

		status, raw, err := c.do(httpReq)
		if err != nil {
			return nil, err
		}

		var payload diseasesResponse
		decodeErr := json.Unmarshal(raw, &payload)
		if status < 200 || status > 299 || payload.Error != "" {
			return nil, &core.ServiceError{Status: status, Message: payload.Error}
		}
		if decodeErr != nil {
			return nil, &core.TransportError{Op: "decode", Err: fmt.Errorf("%w: %v", errMalformed, decodeErr)}
		}
		return payload.Diseases, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// do sends req and reads the bounded body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &core.TransportError{Op: strings.ToLower(req.Method), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, &core.TransportError{Op: "read", Err: err}
	}
	return resp.StatusCode, raw, nil
}

// execute runs fn through the breaker when one is configured.
func (c *Client) execute(fn func() (interface{}, error)) (interface{}, error) {
	if c.breaker == nil {
		return fn()
	}

	v, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &core.TransportError{Op: "breaker", Err: err}
	}
	return v, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeImage builds the multipart body. The part carries the file's own
// content type instead of CreateFormFile's application/octet-stream.
func encodeImage(req core.ClassificationRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, quoteEscaper.Replace(req.FileName())))

	mimeType := req.MIMEType()
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Data()); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Drain waits for in-flight classifications to finish.
func (c *Client) Drain(ctx context.Context) error {
	return c.limiter.WaitForDrain(ctx)
}

// Status is the client's health snapshot.
type Status struct {
	Breaker string             `json:"breaker"`
	Limiter core.LimiterStatus `json:"limiter"`
}

// Status reports the breaker state and limiter occupancy.
func (c *Client) Status() Status {
	s := Status{Breaker: "disabled", Limiter: c.limiter.Status()}
	if c.breaker != nil {
		s.Breaker = c.breaker.State().String()
	}
	return s
}
