package web

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/config"
)

// runBind starts e listening according to bind's kind: a plain TCP socket,
// a TLS-terminating TCP socket (bind.PublicKey/PrivateKey are PEM file
// paths), or a Unix domain socket.
func runBind(e *echo.Echo, bind config.Bind) error {
	switch bind.Kind {
	case config.BindTCP:
		return e.Start(bind.Addr)
	case config.BindTLS:
		return e.StartTLS(bind.Addr, bind.PublicKey, bind.PrivateKey)
	case config.BindUnix:
		listener, err := net.Listen("unix", bind.Path)
		if err != nil {
			return fmt.Errorf("listening on unix socket %s: %w", bind.Path, err)
		}
		e.Listener = listener
		// Serve through Echo's own server so e.Shutdown stops this listener too.
		return e.StartServer(e.Server)
	default:
		return fmt.Errorf("unknown bind kind %v", bind.Kind)
	}
}
