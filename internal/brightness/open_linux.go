//go:build linux

package brightness

import "github.com/spf13/afero"

var platformBackends = []string{BackendLogind, BackendSysfs}

func openPlatform(name string, opts Options) (Port, error) {
	switch name {
	case BackendSysfs:
		return NewSysfs(afero.NewOsFs(), opts.SysfsBase, opts.Device)
	case BackendLogind:
		return NewLogind(opts.SysfsBase, opts.Device)
	}
	return nil, ErrUnknownBackend
}
