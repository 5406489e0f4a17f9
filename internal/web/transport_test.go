package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/config"
)

func TestRunBind_UnknownKind_ErrorsImmediately(t *testing.T) {
	e := echo.New()
	err := runBind(e, config.Bind{Kind: config.BindKind(99)})
	if err == nil {
		t.Fatal("expected an error for an unrecognized bind kind")
	}
}

func TestRunBind_Unix_ServesOverTheSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "ruuth.sock")

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	errCh := make(chan error, 1)
	go func() { errCh <- runBind(e, config.Bind{Kind: config.BindUnix, Path: sockPath}) }()

	var conn net.Conn
	var dialErr error
	for i := 0; i < 50; i++ {
		conn, dialErr = net.Dial("unix", sockPath)
		if dialErr == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if dialErr != nil {
		t.Fatalf("failed to dial the unix socket after starting the server: %v", dialErr)
	}
	conn.Close()

	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("expected a clean shutdown, got %v", err)
	}
}
