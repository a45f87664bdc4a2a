package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Response is the collector's reply to a delivery attempt.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport posts a serialized payload to the collector. Implementations
// return a classified *Error on failure; a non-nil Response is only
// returned for 2xx replies.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte, headers map[string]string) (*Response, error)
}

// Delivery retry policy defaults.
const (
	DefaultMaxRetries     = 2 // 3 attempts total
	DefaultRequestTimeout = 10 * time.Second
)

const maxResponseBody = 64 * 1024

// AttemptResult describes one delivery attempt for observers.
type AttemptResult struct {
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// AttemptHook is invoked after every delivery attempt.
type AttemptHook func(AttemptResult)

// Sender is a retrying HTTP Transport. The zero value is not usable;
// construct with NewSender.
type Sender struct {
	client     *http.Client
	log        *slog.Logger
	maxRetries int
	timeout    time.Duration
	backoff    BackoffStrategy
	onAttempt  AttemptHook
}

var _ Transport = (*Sender)(nil)

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the default HTTP client, for custom transports
// or testing.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried
// after the initial attempt. Zero disables retries.
func WithMaxRetries(n int) SenderOption {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRequestTimeout bounds each individual attempt.
func WithRequestTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBackoff replaces the retry delay strategy.
func WithBackoff(strategy BackoffStrategy) SenderOption {
	return func(s *Sender) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithLogger sets the logger for attempt diagnostics.
func WithLogger(log *slog.Logger) SenderOption {
	return func(s *Sender) {
		if log != nil {
			s.log = log
		}
	}
}

// WithOnAttempt registers a hook observing every delivery attempt.
func WithOnAttempt(hook AttemptHook) SenderOption {
	return func(s *Sender) { s.onAttempt = hook }
}

// NewSender creates a Sender with the default delivery retry policy.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log:        slog.Default(),
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultRequestTimeout,
		backoff:    DefaultBackoffStrategy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post delivers body to endpoint, retrying transient failures per the
// configured policy. Permanent failures and context cancellation stop
// the retry loop immediately.
func (s *Sender) Post(ctx context.Context, endpoint string, body []byte, headers map[string]string) (*Response, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff.NextInterval(attempt)
			s.log.Debug("retrying event delivery",
				"attempt", attempt+1, "delay", delay, "endpoint", endpoint)
			select {
			case <-ctx.Done():
				return nil, &Error{URL: endpoint, Transient: true, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		resp, err := s.attempt(ctx, endpoint, body, headers, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, s.maxRetries+1, lastErr)
}

func (s *Sender) attempt(ctx context.Context, endpoint string, body []byte, headers map[string]string, attempt int) (*Response, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if k != "" && v != "" {
			req.Header.Set(k, v)
		}
	}

	httpResp, err := s.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		// Network-level failures (timeouts, refused connections, DNS)
		// are all transient by classification.
		result := &Error{URL: endpoint, Transient: true, Err: err}
		s.notify(AttemptResult{Attempt: attempt + 1, Duration: duration, Err: result})
		return nil, result
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	s.notify(AttemptResult{Attempt: attempt + 1, StatusCode: httpResp.StatusCode, Duration: duration})

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return &Response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
	}
	return nil, &Error{
		URL:        endpoint,
		StatusCode: httpResp.StatusCode,
		Transient:  transientStatus(httpResp.StatusCode),
		Err:        fmt.Errorf("collector returned status %d", httpResp.StatusCode),
	}
}

func (s *Sender) notify(result AttemptResult) {
	if s.onAttempt != nil {
		s.onAttempt(result)
	}
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidRequest)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidRequest)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidRequest)
	}
	return nil
}
