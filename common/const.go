package common

import (
	"os"
	"path/filepath"
	"time"

	"github.com/creachadair/jrpc2"
)

// DefaultDialTimeout bounds connecting to the daemon.
const DefaultDialTimeout = 2 * time.Second

// DefaultSocketName is the socket file created in the temp dir.
const DefaultSocketName = "autobright.sock"

// SocketPath returns $AUTOBRIGHT_SOCKET_PATH or the default socket in the
// temp dir.
func SocketPath() string {
	if path := os.Getenv(SocketPathEnv); path != "" {
		return path
	}
	return filepath.Join(os.TempDir(), DefaultSocketName)
}

// JSON-RPC method names.
const (
	MethodVersion        = "system.getVersion"
	MethodActivate       = "app.activate"
	MethodStatus         = "app.status"
	MethodStop           = "app.stop"
	MethodBrightnessGet  = "brightness.get"
	MethodBrightnessSet  = "brightness.set"
	MethodOverlaySet     = "overlay.set"
	MethodScheduleList   = "schedule.list"
	MethodScheduleAdd    = "schedule.add"
	MethodScheduleUpdate = "schedule.update"
	MethodScheduleRemove = "schedule.remove"
	MethodScheduleToggle = "schedule.toggle"
	MethodHistoryList    = "history.list"
	NotifyTransitionStep = "transition.step"
)

// Custom JSON-RPC error codes.
const (
	CodeNotFound      = jrpc2.Code(-32001)
	CodeDuplicateTime = jrpc2.Code(-32002)
	CodeInvalidParams = jrpc2.Code(-32602)
)
