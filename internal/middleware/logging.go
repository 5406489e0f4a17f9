// Package middleware provides HTTP middleware for the ruuth Echo server.
// Middleware is applied globally in internal/web.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, and origin host.
// Uses Go's built-in slog for structured logging.
//
// origin_host is read straight off X-Forwarded-For, the same single
// opaque string internal/web's handlers key the ban tracker on (no
// comma-splitting, no fallback to the direct peer address) -- so a
// request log line and the ban-tracker row it may have produced share
// the same host label, and an operator can correlate "this host got
// banned" with the requests that did it without cross-referencing
// c.RealIP(), which reflects the proxy's own trusted-CIDR notion of
// client IP rather than ruuth's.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Log after the request completes so we have the status code.
			latency := time.Since(start)
			req := c.Request()
			res := c.Response()

			// Build structured log fields.
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", latency),
				slog.String("origin_host", req.Header.Get("X-Forwarded-For")),
			}

			// Include query string if present.
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			// Log at different levels based on status code.
			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request",
				attrs...,
			)

			return err
		}
	}
}
