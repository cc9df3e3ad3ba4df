package api

import (
	"log/slog"
	"net/http"
	"time"
)

// LoggingTransport logs every exchange with the server at debug level.
//
// Only the method, host, path and status are logged, never the headers that
// carry the bearer token.
type LoggingTransport struct {
	Base   http.RoundTripper // nil is http.DefaultTransport
	Logger *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		logger.Debug("http exchange failed",
			"method", req.Method, "host", req.URL.Host, "path", req.URL.Path,
			"request_id", req.Header.Get("X-Request-ID"), "error", err)
		return nil, err
	}
	logger.Debug("http exchange",
		"method", req.Method, "host", req.URL.Host, "path", req.URL.Path,
		"status", resp.StatusCode, "duration", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"))
	return resp, nil
}
