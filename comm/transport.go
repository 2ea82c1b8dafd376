package comm

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Port is an open serial transport. Reads must return within the configured
// read timeout; (0, nil) and (0, io.EOF) both mean "nothing available yet".
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a transport by name.
type Opener func(name string, baud int, readTimeout time.Duration) (Port, error)

// OpenTarm opens name using github.com/tarm/serial.
func OpenTarm(name string, baud int, readTimeout time.Duration) (Port, error) {
	conn, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// OpenBugst opens name using go.bug.st/serial.
func OpenBugst(name string, baud int, readTimeout time.Duration) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	port, err := bugst.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("could not set read timeout: %w", err)
	}
	return port, nil
}

// OpenerByName maps a config value to an Opener.
func OpenerByName(name string) (Opener, error) {
	switch name {
	case "", "tarm":
		return OpenTarm, nil
	case "bugst":
		return OpenBugst, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("could not list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
