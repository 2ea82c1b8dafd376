// Package ddc drives monitors over DDC/CI.
package ddc

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	// VCP codes
	vcpBrightness     = 0x10
	monitorPowerState = 0xd6
	// MonitorPowerState args
	monitorOn      = 1
	monitorStandby = 4
)

var (
	ErrNoMonitors  = errors.New("no DDC/CI capable monitor found")
	ErrUnsupported = errors.New("DDC/CI is not supported on this platform")
)

// Monitor is one physical monitor handle.
type Monitor interface {
	Name() string
	VCP(code byte) (current, max uint32, err error)
	SetVCP(code byte, value uint32) error
}

// openMonitors returns the physical monitors and a func releasing them.
var openMonitors = platformMonitors

func withMonitors(fn func([]Monitor) error) error {
	monitors, release, err := openMonitors()
	if err != nil {
		return err
	}
	defer release()
	if len(monitors) == 0 {
		return ErrNoMonitors
	}
	return fn(monitors)
}

// Available reports whether any monitor answers a brightness query.
func Available() bool {
	_, err := Brightness()
	return err == nil
}

// Brightness returns the brightness of the first monitor that answers, as a
// fraction of its maximum.
func Brightness() (float64, error) {
	var level float64
	err := withMonitors(func(monitors []Monitor) error {
		var firstErr error
		for _, m := range monitors {
			cur, max, err := m.VCP(vcpBrightness)
			if err == nil && max == 0 {
				err = fmt.Errorf("%s reports zero maximum brightness", m.Name())
			}
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			level = float64(cur) / float64(max)
			return nil
		}
		return firstErr
	})
	return level, err
}

// SetBrightness sets every monitor to fraction of its own maximum.
func SetBrightness(fraction float64) error {
	fraction = math.Max(0, math.Min(1, fraction))
	return withMonitors(func(monitors []Monitor) error {
		var failed []error
		for _, m := range monitors {
			_, max, err := m.VCP(vcpBrightness)
			if err == nil {
				err = m.SetVCP(vcpBrightness, uint32(math.Round(fraction*float64(max))))
			}
			if err != nil {
				glog.V(1).Infof("could not set brightness on %s: %v", m.Name(), err)
				failed = append(failed, err)
			}
		}
		if len(failed) == len(monitors) {
			return fmt.Errorf("could not set brightness: %w", failed[0])
		}
		return nil
	})
}

func setVCPFeatureAll(code byte, value uint32) error {
	return withMonitors(func(monitors []Monitor) error {
		var firstErr error
		for _, m := range monitors {
			if err := m.SetVCP(code, value); err != nil {
				glog.Warningf("setting VCP %#x on %s failed: %v", code, m.Name(), err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	})
}

func SetMonitorsOn() error {
	return setVCPFeatureAll(monitorPowerState, monitorOn)
}

func SetMonitorsStandby() error {
	return setVCPFeatureAll(monitorPowerState, monitorStandby)
}
