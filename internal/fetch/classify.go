package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/mncarlin/webperf/internal/webperf"
)

// Classify maps a transport-level fetch error onto the closed ErrorKind set.
// Order matters: cancellation and deadline checks run before the generic
// net.Error timeout check so caller-driven aborts never masquerade as
// connection faults.
func Classify(err error) webperf.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return webperf.KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return webperf.KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return webperf.KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return webperf.KindConnectionFailure
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return webperf.KindConnectionFailure
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return webperf.KindConnectionFailure
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return webperf.KindProtocolError
	}
	// net/http reports malformed responses only through error text.
	msg := err.Error()
	if strings.Contains(msg, "malformed HTTP") || strings.Contains(msg, "transport connection broken") {
		return webperf.KindProtocolError
	}

	return webperf.KindUnknown
}
