package httpclient

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	// Logger, when set, records one line per outbound request.
	Logger *slog.Logger
}

func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Logger != nil {
		transport = &loggingTransport{next: transport, logger: opts.Logger}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// loggingTransport logs outbound calls without query strings, which may
// carry credentials.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	attrs := []any{
		"method", req.Method,
		"host", req.URL.Host,
		"path", redactPath(req.URL.Path),
		"dur_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		t.logger.Warn("upstream request failed", append(attrs, "err", err)...)
		return nil, err
	}
	t.logger.Debug("upstream request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}

// redactPath trims file download paths to their resource name.
func redactPath(path string) string {
	if i := strings.Index(path, "/files/"); i >= 0 {
		return path[:i] + "/files/…"
	}
	return path
}
