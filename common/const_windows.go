//go:build windows

package common

import (
	"os"
	"strings"
)

// DefaultPipeName is the named pipe used when PipeNameEnv is unset.
const DefaultPipeName = "autobright"

const pipePrefix = `\\.\pipe\`

// DefaultPipePath returns \\.\pipe\autobright.
func DefaultPipePath() string {
	return pipePrefix + DefaultPipeName
}

// PipePath returns the daemon's named pipe. $AUTOBRIGHT_PIPE_NAME may be a
// bare name or a full \\.\pipe\ path.
func PipePath() string {
	name := os.Getenv(PipeNameEnv)
	switch {
	case name == "":
		return DefaultPipePath()
	case strings.HasPrefix(name, pipePrefix):
		return name
	default:
		return pipePrefix + name
	}
}
