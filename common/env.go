// Package common holds the names and wire types shared by the autobright
// daemon and its clients.
package common

// Environment variable names for configuration.
const (
	// SocketPathEnv overrides the Unix socket path.
	SocketPathEnv = "AUTOBRIGHT_SOCKET_PATH"

	// PipeNameEnv overrides the Windows named pipe.
	PipeNameEnv = "AUTOBRIGHT_PIPE_NAME"

	// DebugEnv enables debug logging when set to 1.
	DebugEnv = "AUTOBRIGHT_DEBUG"
)
