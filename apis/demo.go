package apis

import (
	"sync"

	"github.com/golang/glog"
	"github.com/thiefmaster/knobctl/link"
)

// DemoLevel is an in-memory level port.
type DemoLevel struct {
	mu    sync.Mutex
	name  string
	level float64
}

func NewDemoLevel(name string, level float64) *DemoLevel {
	return &DemoLevel{name: name, level: level}
}

func (d *DemoLevel) Available() bool { return true }

func (d *DemoLevel) Level() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level, nil
}

func (d *DemoLevel) SetLevel(fraction float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = fraction
	glog.V(1).Infof("demo %s: %.3f", d.name, fraction)
	return nil
}

// DemoScroll counts the wheel units it was asked to emit.
type DemoScroll struct {
	mu    sync.Mutex
	total int
}

func (d *DemoScroll) Scroll(units int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.total += units
	glog.V(1).Infof("demo scroll: %+d (total %d)", units, d.total)
	return nil
}

func (d *DemoScroll) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// DemoZoom is an in-memory magnifier.
type DemoZoom struct {
	mu     sync.Mutex
	factor float64
}

func (d *DemoZoom) Available() bool { return true }

func (d *DemoZoom) Zoom() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.factor < link.MinZoom {
		return link.MinZoom, nil
	}
	return d.factor, nil
}

func (d *DemoZoom) SetZoom(factor float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factor = factor
	glog.V(1).Infof("demo zoom: %.3f", factor)
	return nil
}

func (d *DemoZoom) Reset() error {
	return d.SetZoom(link.MinZoom)
}

// DemoPorts returns a full set of in-memory ports.
func DemoPorts() link.Ports {
	return link.Ports{
		Volume:     NewDemoLevel("volume", 0.5),
		Brightness: NewDemoLevel("brightness", 0.75),
		Scroll:     &DemoScroll{},
		Zoom:       &DemoZoom{factor: link.MinZoom},
	}
}
