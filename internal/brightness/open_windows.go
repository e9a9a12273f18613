//go:build windows

package brightness

var platformBackends = []string{BackendDDCCI}

func openPlatform(name string, _ Options) (Port, error) {
	if name == BackendDDCCI {
		return NewDDCCI()
	}
	return nil, ErrUnknownBackend
}
