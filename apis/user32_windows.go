package apis

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	sendInputProc        = user32.NewProc("SendInput")
	getCursorPosProc     = user32.NewProc("GetCursorPos")
	getSystemMetricsProc = user32.NewProc("GetSystemMetrics")
)

const (
	INPUT_MOUSE       = 0
	MOUSEEVENTF_WHEEL = 0x0800
	SM_CXSCREEN       = 0
	SM_CYSCREEN       = 1
)

type point struct {
	x, y int32
}

func cursorPos() (point, bool) {
	var p point
	ret, _, _ := getCursorPosProc.Call(uintptr(unsafe.Pointer(&p)))
	return p, ret != 0
}

func screenSize() (int32, int32) {
	cx, _, _ := getSystemMetricsProc.Call(SM_CXSCREEN)
	cy, _, _ := getSystemMetricsProc.Call(SM_CYSCREEN)
	return int32(cx), int32(cy)
}
