package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/apperror"
)

// Recovery returns middleware that recovers from a panicking handler and
// turns it into an *apperror.AppError instead of writing a response body
// directly -- the stack trace goes into the AppError's Internal field, so
// Server's HTTPErrorHandler logs and renders it exactly like any other
// internal error (the generic "An unexpected error occurred" message, a
// 500, and a single internal-error log line), rather than the recovery
// path producing a differently-shaped response than the rest of ruuth.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					slog.Error("panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(stack)),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
					)
					returnErr = apperror.NewInternal(fmt.Errorf("panic: %v", r))
				}
			}()

			return next(c)
		}
	}
}
