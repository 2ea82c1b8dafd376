package ddc

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/golang/glog"
	"golang.org/x/sys/windows"
)

var (
	user32                          = windows.NewLazySystemDLL("user32.dll")
	dxva2                           = windows.NewLazySystemDLL("dxva2.dll")
	enumDisplayMonitorsProc         = user32.NewProc("EnumDisplayMonitors")
	getNumberOfPhysicalMonitorsProc = dxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	getPhysicalMonitorsProc         = dxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	destroyPhysicalMonitorsProc     = dxva2.NewProc("DestroyPhysicalMonitors")
	getVCPFeatureProc               = dxva2.NewProc("GetVCPFeatureAndVCPFeatureReply")
	setVCPFeatureProc               = dxva2.NewProc("SetVCPFeature")
)

// physicalMonitor mirrors PHYSICAL_MONITOR.
type physicalMonitor struct {
	handle      windows.Handle
	description [128]uint16
}

func (m *physicalMonitor) Name() string {
	return windows.UTF16ToString(m.description[:])
}

func (m *physicalMonitor) VCP(code byte) (uint32, uint32, error) {
	var current, max uint32
	ret, _, err := getVCPFeatureProc.Call(
		uintptr(m.handle),
		uintptr(code),
		0,
		uintptr(unsafe.Pointer(&current)),
		uintptr(unsafe.Pointer(&max)))
	if ret == 0 {
		return 0, 0, fmt.Errorf("GetVCPFeatureAndVCPFeatureReply(%#x) failed: %v", code, err)
	}
	return current, max, nil
}

func (m *physicalMonitor) SetVCP(code byte, value uint32) error {
	if ret, _, err := setVCPFeatureProc.Call(uintptr(m.handle), uintptr(code), uintptr(value)); ret == 0 {
		return fmt.Errorf("SetVCPFeature(%#x, %d) failed: %v", code, value, err)
	}
	return nil
}

var (
	enumMu       sync.Mutex
	enumFound    []uintptr
	enumCallback = windows.NewCallback(func(hmon, hdc, rect, data uintptr) uintptr {
		enumFound = append(enumFound, hmon)
		return 1
	})
)

func displayMonitors() ([]uintptr, error) {
	if err := enumDisplayMonitorsProc.Find(); err != nil {
		return nil, ErrUnsupported
	}
	enumMu.Lock()
	defer enumMu.Unlock()
	enumFound = nil
	if ret, _, err := enumDisplayMonitorsProc.Call(0, 0, enumCallback, 0); ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %v", err)
	}
	return enumFound, nil
}

func platformMonitors() ([]Monitor, func(), error) {
	if err := dxva2.Load(); err != nil {
		return nil, nil, ErrUnsupported
	}
	hmons, err := displayMonitors()
	if err != nil {
		return nil, nil, err
	}

	var batches [][]physicalMonitor
	var monitors []Monitor
	for _, hmon := range hmons {
		var n uint32
		if ret, _, err := getNumberOfPhysicalMonitorsProc.Call(hmon, uintptr(unsafe.Pointer(&n))); ret == 0 {
			glog.V(1).Infof("GetNumberOfPhysicalMonitorsFromHMONITOR failed: %v", err)
			continue
		}
		if n == 0 {
			continue
		}
		batch := make([]physicalMonitor, n)
		if ret, _, err := getPhysicalMonitorsProc.Call(hmon, uintptr(n), uintptr(unsafe.Pointer(&batch[0]))); ret == 0 {
			glog.V(1).Infof("GetPhysicalMonitorsFromHMONITOR failed: %v", err)
			continue
		}
		batches = append(batches, batch)
		for i := range batch {
			monitors = append(monitors, &batch[i])
		}
	}

	release := func() {
		for _, batch := range batches {
			destroyPhysicalMonitorsProc.Call(uintptr(len(batch)), uintptr(unsafe.Pointer(&batch[0])))
		}
	}
	return monitors, release, nil
}
