//go:build !windows

package ddc

func platformMonitors() ([]Monitor, func(), error) {
	return nil, nil, ErrUnsupported
}
