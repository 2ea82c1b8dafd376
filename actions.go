package main

import (
	"bytes"
	"fmt"

	"github.com/golang/glog"
	"github.com/thiefmaster/knobctl/apis"
	"github.com/thiefmaster/knobctl/comm"
	"github.com/thiefmaster/knobctl/ddc"
	"github.com/thiefmaster/knobctl/link"
)

func (c *controller) connect(port string) error {
	if err := c.driver.Connect(port); err != nil {
		return err
	}
	c.status.Publish(apis.NewConnectionStatus(port, true, ""))
	c.driver.QueryPosition()
	return nil
}

func (c *controller) disconnect() {
	port := c.driver.PortName()
	c.do(func() error {
		return c.unlink("disconnected")
	})
	c.driver.Disconnect()
	if port != "" {
		c.status.Publish(apis.NewConnectionStatus(port, false, ""))
	}
}

// linkFunction binds f and puts the knob in the matching mode. Runs on the
// controller goroutine.
func (c *controller) linkFunction(f link.Function, degreesPerLine float64) error {
	if !c.driver.IsConnected() {
		return errNotConnected
	}
	switch f {
	case link.Volume, link.Brightness:
		var target float64
		var err error
		if f == link.Volume {
			target, err = c.link.LinkVolume()
		} else {
			target, err = c.link.LinkBrightness()
		}
		if err != nil {
			return err
		}
		bounds := c.link.Bounds()
		c.driver.SetLowerBound(bounds.Lower)
		c.driver.SetUpperBound(bounds.Upper)
		c.driver.SetMode(comm.ModeBounded)
		c.driver.Seek(target)
		glog.Infof("linked %s, seeking to %.1f", f, target)
	case link.Scroll:
		if err := c.link.LinkScroll(degreesPerLine); err != nil {
			return err
		}
		c.driver.SetMode(comm.ModeInertia)
		glog.Infof("linked scroll at %.2f units/deg", c.link.Binding().UnitsPerDegree)
	case link.Zoom:
		if err := c.link.LinkZoom(); err != nil {
			return err
		}
		c.zoomPending = true
		c.driver.SeekZero()
		glog.Infof("linked zoom, centering knob")
		return nil
	default:
		return fmt.Errorf("cannot link %s", f)
	}
	c.status.Publish(apis.NewLinkStatus(f))
	return nil
}

// unlink runs on the controller goroutine.
func (c *controller) unlink(reason string) error {
	f := c.link.Active()
	if f == link.None {
		return nil
	}
	c.zoomPending = false
	err := c.link.Unlink()
	glog.Infof("unlinked %s: %s", f, reason)
	c.status.Publish(apis.NewUnlinkStatus(f, reason))
	return err
}

// setBounds moves the firmware walls and the level mapping together.
func (c *controller) setBounds(lower, upper float64) error {
	if lower >= upper {
		return fmt.Errorf("lower bound %.1f must be below upper bound %.1f", lower, upper)
	}
	c.driver.SetLowerBound(lower)
	c.driver.SetUpperBound(upper)
	return c.do(func() error {
		c.link.UpdateBounds(lower, upper)
		return nil
	})
}

// setLowerBound keeps the current upper bound.
func (c *controller) setLowerBound(lower float64) error {
	var upper float64
	c.do(func() error {
		upper = c.link.Bounds().Upper
		return nil
	})
	return c.setBounds(lower, upper)
}

// setUpperBound keeps the current lower bound.
func (c *controller) setUpperBound(upper float64) error {
	var lower float64
	c.do(func() error {
		lower = c.link.Bounds().Lower
		return nil
	})
	return c.setBounds(lower, upper)
}

func (c *controller) setMonitorPower(on bool) error {
	if on {
		glog.Infof("turning monitors on")
		return ddc.SetMonitorsOn()
	}
	glog.Infof("turning monitors off")
	return ddc.SetMonitorsStandby()
}

func (c *controller) describe() string {
	var w bytes.Buffer
	c.do(func() error {
		if port := c.driver.PortName(); port != "" {
			fmt.Fprintf(&w, "connected: %s\n", port)
		} else {
			fmt.Fprintf(&w, "connected: no\n")
		}
		fmt.Fprintf(&w, "angle: %.2f\n", c.driver.CurrentAngle())
		bounds := c.link.Bounds()
		fmt.Fprintf(&w, "bounds: %.1f .. %.1f\n", bounds.Lower, bounds.Upper)
		b := c.link.Binding()
		fmt.Fprintf(&w, "link: %s", b.Function)
		switch b.Function {
		case link.Scroll:
			fmt.Fprintf(&w, " (%.2f units/deg, pending %.2f)", b.UnitsPerDegree, b.Accumulator)
		case link.Zoom:
			fmt.Fprintf(&w, " (%.2fx", b.ZoomFactor)
			if c.zoomPending {
				fmt.Fprintf(&w, ", centering")
			}
			fmt.Fprintf(&w, ")")
		}
		fmt.Fprintln(&w)
		return nil
	})
	return w.String()
}
