package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/apperror"
)

func TestSecurityHeaders_SetsExpectedHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SecurityHeaders()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	for _, header := range []string{
		"Content-Security-Policy",
		"Strict-Transport-Security",
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
		"Permissions-Policy",
	} {
		if rec.Header().Get(header) == "" {
			t.Errorf("expected header %q to be set", header)
		}
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected X-Frame-Options DENY, got %q", got)
	}
}

func TestRecovery_CatchesPanicAndReturnsAppError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery()(func(c echo.Context) error {
		panic("boom")
	})

	err := handler(c)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected a recovered panic to surface as *apperror.AppError, got %v", err)
	}
	if appErr.Code != http.StatusInternalServerError {
		t.Errorf("expected code 500, got %d", appErr.Code)
	}
	if appErr.Internal == nil {
		t.Error("expected the panic value to be captured in Internal for logging")
	}
}

func TestRecovery_PassesThroughNormalErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wantErr := errors.New("not a panic")
	handler := Recovery()(func(c echo.Context) error {
		return wantErr
	})

	if err := handler(c); !errors.Is(err, wantErr) {
		t.Errorf("expected the original error to pass through untouched, got %v", err)
	}
}

func TestRequestLogger_DoesNotAlterResponseOrError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/foo?x=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestLogger()(func(c echo.Context) error {
		return c.String(http.StatusTeapot, "short and stout")
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected the wrapped handler's status to pass through, got %d", rec.Code)
	}
}
