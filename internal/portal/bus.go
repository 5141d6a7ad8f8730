// Package portal implements the org.freedesktop.portal.GlobalShortcuts
// protocol engine: session establishment, request/response correlation,
// full-replacement shortcut binding and activation routing.
package portal

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	portalService      = "org.freedesktop.portal.Desktop"
	portalObjectPath   = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	shortcutsInterface = "org.freedesktop.portal.GlobalShortcuts"
	requestInterface   = "org.freedesktop.portal.Request"

	memberActivated   = "Activated"
	memberDeactivated = "Deactivated"
	memberResponse    = "Response"
)

// Bus is the slice of the session bus the protocol engine needs. It exists
// so the engine can run against a fake bus in tests.
type Bus interface {
	// Call invokes a GlobalShortcuts method and returns the request handle
	// the portal allocated for the asynchronous reply.
	Call(method string, args ...interface{}) (dbus.ObjectPath, error)

	// Property reads a GlobalShortcuts property.
	Property(name string) (dbus.Variant, error)

	// Subscribe and Unsubscribe manage the match rule for one signal.
	Subscribe(path dbus.ObjectPath, iface, member string) error
	Unsubscribe(path dbus.ObjectPath, iface, member string) error

	// Signals returns the channel inbound signals are delivered on.
	Signals() <-chan *dbus.Signal

	// Sender returns this connection's unique name, mangled the way the
	// portal embeds it in request object paths.
	Sender() string

	Close() error
}

type sessionBus struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
}

// ConnectSessionBus opens a dedicated session bus connection for portal use.
func ConnectSessionBus() (Bus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	b := &sessionBus{
		conn:    conn,
		signals: make(chan *dbus.Signal, 32),
	}
	conn.Signal(b.signals)
	return b, nil
}

func (b *sessionBus) Call(method string, args ...interface{}) (dbus.ObjectPath, error) {
	call := b.conn.Object(portalService, portalObjectPath).Call(shortcutsInterface+"."+method, 0, args...)
	if call.Err != nil {
		return "", fmt.Errorf("portal %s call failed: %w", method, call.Err)
	}

	var request dbus.ObjectPath
	if err := call.Store(&request); err != nil {
		return "", fmt.Errorf("portal %s decode failed: %w", method, err)
	}
	return request, nil
}

func (b *sessionBus) Property(name string) (dbus.Variant, error) {
	variant, err := b.conn.Object(portalService, portalObjectPath).GetProperty(shortcutsInterface + "." + name)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("portal property %s: %w", name, err)
	}
	return variant, nil
}

func (b *sessionBus) Subscribe(path dbus.ObjectPath, iface, member string) error {
	return b.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	)
}

func (b *sessionBus) Unsubscribe(path dbus.ObjectPath, iface, member string) error {
	return b.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	)
}

func (b *sessionBus) Signals() <-chan *dbus.Signal {
	return b.signals
}

// Sender mangles the unique connection name per the portal convention:
// the leading colon is dropped and dots become underscores, e.g.
// ":1.42" -> "1_42".
func (b *sessionBus) Sender() string {
	names := b.conn.Names()
	if len(names) == 0 {
		return ""
	}
	return strings.ReplaceAll(strings.TrimPrefix(names[0], ":"), ".", "_")
}

func (b *sessionBus) Close() error {
	b.conn.RemoveSignal(b.signals)
	return b.conn.Close()
}
