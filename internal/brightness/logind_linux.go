//go:build linux

package brightness

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/afero"
)

const (
	logindDest   = "org.freedesktop.login1"
	logindPath   = dbus.ObjectPath("/org/freedesktop/login1/session/auto")
	logindMethod = "org.freedesktop.login1.Session.SetBrightness"
)

// Logind reads brightness from sysfs and writes it through
// systemd-logind, which lets an unprivileged session user change the
// backlight.
type Logind struct {
	*Sysfs
	conn *dbus.Conn
}

// NewLogind opens the backlight device and connects to the system bus.
func NewLogind(base, name string) (*Logind, error) {
	s, err := NewSysfs(afero.NewOsFs(), base, name)
	if err != nil {
		return nil, err
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &Logind{Sysfs: s, conn: conn}, nil
}

func (l *Logind) Set(percent int) error {
	raw := uint32(l.toRaw(percent))
	call := l.conn.Object(logindDest, logindPath).Call(logindMethod, 0, l.Subsystem(), l.Name(), raw)
	if call.Err != nil {
		return fmt.Errorf("logind SetBrightness %s: %w", l.Name(), call.Err)
	}
	return nil
}
