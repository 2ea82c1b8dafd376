package apis

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/golang/glog"
	"github.com/thiefmaster/knobctl/link"
	"golang.org/x/sys/windows"
)

var (
	magnification                 = windows.NewLazySystemDLL("Magnification.dll")
	magInitializeProc             = magnification.NewProc("MagInitialize")
	magUninitializeProc           = magnification.NewProc("MagUninitialize")
	magSetFullscreenTransformProc = magnification.NewProc("MagSetFullscreenTransform")
	magGetFullscreenTransformProc = magnification.NewProc("MagGetFullscreenTransform")
)

// MagnifierPort zooms the whole screen around the cursor. The magnifier
// runtime is bound to the thread that initialized it, so every call runs on
// one locked OS thread.
type MagnifierPort struct {
	calls chan func()
	once  sync.Once

	initialized bool
	factor      float64
}

func newZoomPort() link.ZoomPort {
	return &MagnifierPort{factor: link.MinZoom}
}

func (m *MagnifierPort) Available() bool {
	return magSetFullscreenTransformProc.Find() == nil
}

func (m *MagnifierPort) run(fn func() error) error {
	m.once.Do(func() {
		m.calls = make(chan func())
		go func() {
			runtime.LockOSThread()
			for call := range m.calls {
				call()
			}
		}()
	})
	done := make(chan error, 1)
	m.calls <- func() { done <- fn() }
	return <-done
}

func (m *MagnifierPort) Zoom() (float64, error) {
	var factor float64
	err := m.run(func() error {
		if !m.initialized {
			factor = link.MinZoom
			return nil
		}
		var level float32
		var x, y int32
		ret, _, err := magGetFullscreenTransformProc.Call(
			uintptr(unsafe.Pointer(&level)),
			uintptr(unsafe.Pointer(&x)),
			uintptr(unsafe.Pointer(&y)))
		if ret == 0 {
			return fmt.Errorf("MagGetFullscreenTransform failed: %v", err)
		}
		factor = float64(level)
		return nil
	})
	return factor, err
}

func (m *MagnifierPort) SetZoom(factor float64) error {
	if factor <= link.MinZoom {
		return m.Reset()
	}
	return m.run(func() error {
		if !m.initialized {
			if ret, _, err := magInitializeProc.Call(); ret == 0 {
				return fmt.Errorf("MagInitialize failed: %v", err)
			}
			m.initialized = true
		}
		x, y := magnifierOffset(factor)
		ret, _, err := magSetFullscreenTransformProc.Call(
			uintptr(math.Float32bits(float32(factor))),
			uintptr(x),
			uintptr(y))
		if ret == 0 {
			return fmt.Errorf("MagSetFullscreenTransform(%.3f) failed: %v", factor, err)
		}
		m.factor = factor
		return nil
	})
}

func (m *MagnifierPort) Reset() error {
	return m.run(func() error {
		if !m.initialized {
			return nil
		}
		magSetFullscreenTransformProc.Call(uintptr(math.Float32bits(1)), 0, 0)
		if ret, _, err := magUninitializeProc.Call(); ret == 0 {
			glog.Warningf("MagUninitialize failed: %v", err)
		}
		m.initialized = false
		m.factor = link.MinZoom
		return nil
	})
}

// magnifierOffset keeps the cursor at the center of the magnified view.
func magnifierOffset(factor float64) (int32, int32) {
	cx, cy := screenSize()
	p, ok := cursorPos()
	if !ok {
		p = point{x: cx / 2, y: cy / 2}
	}
	viewW := float64(cx) / factor
	viewH := float64(cy) / factor
	x := clampOffset(float64(p.x)-viewW/2, float64(cx)-viewW)
	y := clampOffset(float64(p.y)-viewH/2, float64(cy)-viewH)
	return int32(x), int32(y)
}

func clampOffset(v, max float64) float64 {
	return math.Max(0, math.Min(max, v))
}
