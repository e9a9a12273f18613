//go:build !windows

package overlay

func nativeBackend() Backend { return nil }
