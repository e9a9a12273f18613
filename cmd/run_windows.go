//go:build windows

package cmd

import "github.com/autobright/autobright/pkg/logger"

// eventSource is the Windows Event Log source name.
const eventSource = "AutoScreenBrightness"

// platformLogger also writes to the Windows Event Log when the source can
// be opened.
func platformLogger(base logger.Logger) logger.Logger {
	el, err := logger.NewEventLogger(eventSource)
	if err != nil {
		base.Warning("event log unavailable: %v", err)
		return base
	}
	return logger.NewMultiLogger(base, el)
}
