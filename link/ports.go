package link

import (
	"errors"
	"fmt"
)

// LevelPort controls a host level expressed as a fraction in [0, 1].
type LevelPort interface {
	Available() bool
	Level() (float64, error)
	SetLevel(fraction float64) error
}

// ScrollPort emits wheel events. 120 units are one traditional line;
// positive scrolls up.
type ScrollPort interface {
	Scroll(units int) error
}

// ZoomPort controls full screen magnification, 1.0 to 8.0.
type ZoomPort interface {
	Available() bool
	Zoom() (float64, error)
	SetZoom(factor float64) error
	// Reset returns to 1.0 and releases the magnifier.
	Reset() error
}

// Ports bundles the host bindings. A nil port is treated as unavailable.
type Ports struct {
	Volume     LevelPort
	Brightness LevelPort
	Scroll     ScrollPort
	Zoom       ZoomPort
}

var (
	// ErrAlreadyLinked is returned when linking without unlinking first.
	ErrAlreadyLinked = errors.New("already linked, unlink first")
)

// PortUnavailableError is returned when the host lacks the binding.
type PortUnavailableError struct {
	Function Function
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("%s control not available on this system", e.Function)
}
