package apis

import (
	"fmt"
	"unsafe"

	"github.com/thiefmaster/knobctl/link"
)

type mouseInput struct {
	dx        int32
	dy        int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input mirrors INPUT for the mouse variant.
type input struct {
	inputType uint32
	mi        mouseInput
}

// WheelPort injects vertical wheel events with SendInput.
type WheelPort struct{}

func newScrollPort() link.ScrollPort {
	if err := sendInputProc.Find(); err != nil {
		return nil
	}
	return WheelPort{}
}

func (WheelPort) Scroll(units int) error {
	in := input{
		inputType: INPUT_MOUSE,
		mi: mouseInput{
			mouseData: uint32(int32(units)),
			flags:     MOUSEEVENTF_WHEEL,
		},
	}
	ret, _, err := sendInputProc.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if ret != 1 {
		return fmt.Errorf("SendInput failed: %v", err)
	}
	return nil
}
