// Package web is the HTTP dispatcher: the four auth_request endpoints
// (GET /, POST /login, POST /logout, GET /validate) wired onto Echo.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/apperror"
	"github.com/outurnate/ruuth/internal/challenge"
	"github.com/outurnate/ruuth/internal/config"
	"github.com/outurnate/ruuth/internal/middleware"
	"github.com/outurnate/ruuth/internal/sessionstore"
	"github.com/outurnate/ruuth/internal/users"
)

// Server holds everything one running instance needs to answer requests.
// Built once at startup in cmd/ruuth and handed to Echo via Run.
type Server struct {
	echo *echo.Echo

	userManager      *users.Manager
	challengeManager *challenge.Manager
	sessions         *sessionstore.Manager

	realm string
}

// New builds the Echo instance, middleware chain, and routes. Middleware
// and the custom HTTPErrorHandler are registered before any route.
func New(userManager *users.Manager, challengeManager *challenge.Manager, sessions *sessionstore.Manager, realm string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:             e,
		userManager:      userManager,
		challengeManager: challengeManager,
		sessions:         sessions,
		realm:            realm,
	}

	e.Use(middleware.Recovery())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.SecurityHeaders())
	e.HTTPErrorHandler = s.errorHandler

	s.registerRoutes()
	return s
}

// registerRoutes wires the four auth_request endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.authHandler)
	s.echo.POST("/login", s.loginHandler)
	s.echo.POST("/logout", s.logoutHandler)
	s.echo.GET("/validate", s.validateHandler)
}

// Migrate runs the session store's schema setup, if any. Call once before
// Run.
func (s *Server) Migrate(ctx context.Context) error {
	return s.sessions.Store.Migrate(ctx)
}

// Run starts serving according to bind's transport kind (TCP, TLS, or Unix
// socket) -- see transport.go.
func (s *Server) Run(bind config.Bind) error {
	return runBind(s.echo, bind)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler maps AppErrors to HTTP responses. Credential-invalid is not
// a real error: it must never reach here, since the login handler redirects
// on it directly; seeing it here would be a programming mistake, so it is
// logged as one rather than silently folded into a 500 like other
// internal errors.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if apperror.IsCredentialInvalid(appErr) {
			slog.Error("credential_invalid reached the generic error handler; should have been redirected", slog.Any("error", err))
		}
		code = appErr.Code
		message = appErr.Message
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("path", c.Request().URL.Path),
				slog.Any("internal", appErr.Internal),
			)
		}
	} else {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			}
		} else {
			slog.Error("unhandled error", slog.Any("error", err), slog.String("path", c.Request().URL.Path))
		}
	}

	c.String(code, fmt.Sprintf("%d %s", code, message))
}
