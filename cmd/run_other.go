//go:build !windows

package cmd

import "github.com/autobright/autobright/pkg/logger"

func platformLogger(base logger.Logger) logger.Logger {
	return base
}
