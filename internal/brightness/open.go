package brightness

import (
	"fmt"

	"github.com/autobright/autobright/pkg/logger"
)

// Backend names accepted by Open.
const (
	BackendAuto   = "auto"
	BackendSysfs  = "sysfs"
	BackendLogind = "logind"
	BackendDDCCI  = "ddcci"
	BackendMemory = "memory"
)

// Options select and configure the hardware backend.
type Options struct {
	Backend string
	// Device is the sysfs backlight name; empty picks the first one.
	Device string
	// SysfsBase overrides DefaultSysfsBase.
	SysfsBase string
	Logger    logger.Logger
}

// Open returns the Port for opts.Backend. "auto" tries the platform
// backends in order and falls back to an in-memory port with a warning, so
// the daemon keeps scheduling the overlay on machines without a
// controllable panel.
func Open(opts Options) (Port, error) {
	log := logger.OrNop(opts.Logger)
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(100), nil
	case "", BackendAuto:
		for _, name := range platformBackends {
			p, err := openPlatform(name, opts)
			if err == nil {
				log.Info("using %s brightness backend", name)
				return p, nil
			}
			log.Warning("%s brightness backend unavailable: %v", name, err)
		}
		log.Warning("no hardware brightness backend, using in-memory brightness")
		return NewMemory(100), nil
	default:
		p, err := openPlatform(opts.Backend, opts)
		if err != nil {
			return nil, fmt.Errorf("open %s backend: %w", opts.Backend, err)
		}
		return p, nil
	}
}
