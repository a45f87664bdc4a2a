package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customfit-ai/customfit-go/pkg/transport"
)

func newTestSender(opts ...transport.SenderOption) *transport.Sender {
	base := []transport.SenderOption{
		transport.WithBackoff(transport.FixedBackoff{Interval: time.Millisecond}),
	}
	return transport.NewSender(append(base, opts...)...)
}

func TestSender_SuccessfulPost(t *testing.T) {
	t.Parallel()

	var gotAuth, gotVersion, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("X-CF-SDK-Version")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	sender := newTestSender()
	resp, err := sender.Post(context.Background(), srv.URL, []byte(`{"events":[]}`), map[string]string{
		"Authorization":    "Bearer client-key",
		"X-CF-SDK-Version": "1.2.3",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `{"accepted":true}`, string(resp.Body))
	assert.Equal(t, "Bearer client-key", gotAuth)
	assert.Equal(t, "1.2.3", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"events":[]}`, string(gotBody))
}

func TestSender_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := newTestSender(transport.WithMaxRetries(2))
	resp, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSender_PermanentFailureNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := newTestSender(transport.WithMaxRetries(3))
	_, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
	require.ErrorIs(t, err, transport.ErrDeliveryFailed)
	assert.False(t, transport.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSender_ExhaustedRetriesReturnTransientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := newTestSender(transport.WithMaxRetries(2))
	_, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
	require.ErrorIs(t, err, transport.ErrDeliveryFailed)
	assert.True(t, transport.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSender_ConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	sender := newTestSender(transport.WithMaxRetries(0))
	_, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
	require.Error(t, err)
	assert.True(t, transport.IsTransient(err))
}

func TestSender_RetryableClientErrors(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(code)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			sender := newTestSender(transport.WithMaxRetries(1))
			_, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestSender_ContextCancellationStopsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := transport.NewSender(
		transport.WithMaxRetries(5),
		transport.WithBackoff(transport.FixedBackoff{Interval: time.Hour}),
	)
	_, err := sender.Post(ctx, srv.URL, []byte(`{}`), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSender_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	sender := newTestSender()
	for _, endpoint := range []string{"", "ftp://example.com", "http://"} {
		_, err := sender.Post(context.Background(), endpoint, []byte(`{}`), nil)
		assert.ErrorIs(t, err, transport.ErrInvalidRequest, "endpoint %q", endpoint)
	}
}

func TestSender_AttemptHook(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var attempts []transport.AttemptResult
	sender := newTestSender(
		transport.WithMaxRetries(1),
		transport.WithOnAttempt(func(r transport.AttemptResult) {
			attempts = append(attempts, r)
		}),
	)

	_, err := sender.Post(context.Background(), srv.URL, []byte(`{}`), nil)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].Attempt)
	assert.Equal(t, http.StatusBadGateway, attempts[0].StatusCode)
	assert.Equal(t, 2, attempts[1].Attempt)
	assert.Equal(t, http.StatusOK, attempts[1].StatusCode)
}
