package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "timeout", err: timeoutErr{}, want: true},
		{name: "dial", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "url wrapped timeout", err: &url.Error{Op: "Post", URL: "x", Err: timeoutErr{}}, want: true},
		{name: "api error", err: &tele.Error{Code: 400, Description: "Bad Request: chat not found"}, want: false},
		{name: "cancelled", err: &url.Error{Op: "Post", URL: "x", Err: context.Canceled}, want: false},
		{name: "reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "cut body", err: &url.Error{Op: "Post", URL: "x", Err: io.ErrUnexpectedEOF}, want: true},
		{name: "dns temporary", err: &net.DNSError{Err: "server misbehaving", IsTemporary: true}, want: true},
		{name: "dns missing", err: &net.DNSError{Err: "no such host", IsNotFound: true}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: &net.DNSError{Err: "no such host"}, want: "dns"},
		{err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: "dial"},
		{err: fmt.Errorf("telegram: bad request (400)"), want: "http_4xx"},
		{err: fmt.Errorf("telegram: internal (502)"), want: "http_5xx"},
		{err: &tele.Error{Code: 403, Description: "Forbidden"}, want: "http_4xx"},
		{err: errors.New("weird"), want: "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), fmt.Sprint(tt.err))
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH-x_y/sendMessage": timeout`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, Redact(err))
	assert.Empty(t, Redact(nil))
	assert.True(t, NotModified(errors.New("telegram: Bad Request: message is not modified (400)")))
}
