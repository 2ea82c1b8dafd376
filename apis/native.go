package apis

import (
	"github.com/thiefmaster/knobctl/ddc"
	"github.com/thiefmaster/knobctl/link"
)

// BrightnessPort drives every DDC/CI monitor.
type BrightnessPort struct{}

func (BrightnessPort) Available() bool { return ddc.Available() }

func (BrightnessPort) Level() (float64, error) { return ddc.Brightness() }

func (BrightnessPort) SetLevel(fraction float64) error { return ddc.SetBrightness(fraction) }

// NativePorts returns the host bindings. Ports the platform lacks are nil.
func NativePorts() link.Ports {
	return link.Ports{
		Volume:     newVolumePort(),
		Brightness: BrightnessPort{},
		Scroll:     newScrollPort(),
		Zoom:       newZoomPort(),
	}
}
