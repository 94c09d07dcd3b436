// Package cli implements the interactive terminal front end of the client.
package cli

import (
	"fmt"

	"github.com/omochice/chat-session/internal/config"
	"github.com/omochice/chat-session/internal/transport"
	"github.com/omochice/chat-session/internal/transport/gobwas"
	"github.com/omochice/chat-session/internal/transport/gorilla"
	"github.com/omochice/chat-session/internal/transport/tcp"
	"github.com/omochice/chat-session/internal/transport/ws"
)

// NewDialer returns the transport driver registered under driver.
func NewDialer(driver string) (transport.Dialer, error) {
	switch driver {
	case config.DriverWS:
		return ws.NewDialer(), nil
	case config.DriverGorilla:
		return gorilla.NewDialer(), nil
	case config.DriverGobwas:
		return gobwas.NewDialer(), nil
	case config.DriverTCP:
		return tcp.NewDialer(), nil
	default:
		return nil, fmt.Errorf("unknown transport driver %q", driver)
	}
}
