package registry

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "net.ryanabx.DesktopEntry"
	objectPath = "/net/ryanabx/DesktopEntry"
	iface      = "net.ryanabx.DesktopEntry"
)

// busObject is the slice of dbus.BusObject we use, split out for tests.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBusClient implements Client over the user session bus, mirroring the
// daemon's session-entry interface.
type DBusClient struct {
	conn *dbus.Conn
	obj  busObject
}

// NewDBusClient connects to the session bus and binds the desktop-entry
// daemon object.
func NewDBusClient() (*DBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBusClient{conn: conn, obj: conn.Object(busName, objectPath)}, nil
}

// Close releases the bus connection.
func (c *DBusClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *DBusClient) call(ctx context.Context, method string, args ...interface{}) error {
	call := c.obj.CallWithContext(ctx, iface+"."+method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("registry %s: %w", method, call.Err)
	}
	return nil
}

func (c *DBusClient) Register(ctx context.Context, appID, entryText, owner string) error {
	return c.call(ctx, "NewSessionEntry", appID, entryText, owner)
}

func (c *DBusClient) RegisterIcon(ctx context.Context, iconName string, data []byte, owner string) error {
	return c.call(ctx, "NewSessionIcon", iconName, data, owner)
}

func (c *DBusClient) RetractOwner(ctx context.Context, owner string) error {
	return c.call(ctx, "RemoveSessionOwner", owner)
}
