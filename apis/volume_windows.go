package apis

import (
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/thiefmaster/knobctl/link"
)

// EndpointVolume drives the master volume of the default render endpoint.
type EndpointVolume struct{}

func newVolumePort() link.LevelPort {
	return EndpointVolume{}
}

// withEndpointVolume runs fn against the default endpoint on a locked,
// COM-initialized thread.
func withEndpointVolume(fn func(aev *wca.IAudioEndpointVolume) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 { // S_FALSE
			return fmt.Errorf("could not initialize COM: %v", err)
		}
	}
	defer ole.CoUninitialize()

	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return fmt.Errorf("could not create device enumerator: %v", err)
	}
	defer mmde.Release()

	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmd); err != nil {
		return fmt.Errorf("no default audio endpoint: %v", err)
	}
	defer mmd.Release()

	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return fmt.Errorf("could not activate endpoint volume: %v", err)
	}
	defer aev.Release()

	return fn(aev)
}

func (EndpointVolume) Available() bool {
	return withEndpointVolume(func(*wca.IAudioEndpointVolume) error { return nil }) == nil
}

func (EndpointVolume) Level() (float64, error) {
	var level float32
	err := withEndpointVolume(func(aev *wca.IAudioEndpointVolume) error {
		return aev.GetMasterVolumeLevelScalar(&level)
	})
	return float64(level), err
}

func (EndpointVolume) SetLevel(fraction float64) error {
	return withEndpointVolume(func(aev *wca.IAudioEndpointVolume) error {
		return aev.SetMasterVolumeLevelScalar(float32(fraction), nil)
	})
}
