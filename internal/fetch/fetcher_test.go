package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/webperf"
)

func newTestFetcher(timeout time.Duration) *Fetcher {
	return New(Config{UserAgent: "webperf-test", Timeout: timeout}, nil, zap.NewNop())
}

func TestFetchSuccessRecordsStatusAndLatency(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), webperf.Task{URL: srv.URL, Seq: 3})

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, res.Kind)
	require.Equal(t, 3, res.Seq)
	require.GreaterOrEqual(t, res.Latency, time.Duration(0))
}

func TestFetchNon2xxIsStillAnOutcome(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), webperf.Task{URL: srv.URL})

	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.False(t, res.Failed())
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestFetcher(50 * time.Millisecond)
	res := f.Fetch(context.Background(), webperf.Task{URL: srv.URL})

	require.Equal(t, webperf.KindTimeout, res.Kind)
	require.Zero(t, res.StatusCode)
	require.GreaterOrEqual(t, res.Latency, 50*time.Millisecond)
}

func TestFetchConnectionFailure(t *testing.T) {
	t.Parallel()

	// Bind then close to obtain a port with no listener.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	f := newTestFetcher(time.Second)
	res := f.Fetch(context.Background(), webperf.Task{URL: "http://" + addr})

	require.Equal(t, webperf.KindConnectionFailure, res.Kind)
	require.Zero(t, res.StatusCode)
	require.NotEmpty(t, res.Err)
}

func TestFetchCancelledContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	f := newTestFetcher(5 * time.Second)
	res := f.Fetch(ctx, webperf.Task{URL: srv.URL})

	require.Equal(t, webperf.KindCancelled, res.Kind)
	require.Zero(t, res.StatusCode)
}

func TestFetchRepeatedURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)
	first := f.Fetch(context.Background(), webperf.Task{URL: srv.URL, Seq: 0})
	second := f.Fetch(context.Background(), webperf.Task{URL: srv.URL, Seq: 1})

	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Equal(t, http.StatusOK, second.StatusCode)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want webperf.ErrorKind
	}{
		{"nil", nil, ""},
		{"cancelled", context.Canceled, webperf.KindCancelled},
		{"deadline", context.DeadlineExceeded, webperf.KindTimeout},
		{"wrapped deadline", fmt.Errorf("visit: %w", context.DeadlineExceeded), webperf.KindTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "missing.example"}, webperf.KindConnectionFailure},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), webperf.KindConnectionFailure},
		{"op error", &net.OpError{Op: "read", Err: errors.New("reset")}, webperf.KindConnectionFailure},
		{"unexpected eof", io.ErrUnexpectedEOF, webperf.KindProtocolError},
		{"malformed", errors.New(`malformed HTTP response "x"`), webperf.KindProtocolError},
		{"other", errors.New("something odd"), webperf.KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyDNSTimeoutPrefersTimeout(t *testing.T) {
	t.Parallel()

	err := &net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true}
	require.Equal(t, webperf.KindTimeout, Classify(err))
}
