//go:build !windows

package client

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/autobright/autobright/common"
)

func TestDial_NoDaemon(t *testing.T) {
	t.Setenv(common.SocketPathEnv, filepath.Join(t.TempDir(), "missing.sock"))

	if _, err := Dial(context.Background()); err == nil {
		t.Fatal("Dial succeeded without a daemon")
	}
}
