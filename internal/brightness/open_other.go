//go:build !linux && !windows

package brightness

import "github.com/spf13/afero"

var platformBackends = []string{}

func openPlatform(name string, opts Options) (Port, error) {
	if name == BackendSysfs {
		return NewSysfs(afero.NewOsFs(), opts.SysfsBase, opts.Device)
	}
	return nil, ErrUnknownBackend
}
