package ddc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	name   string
	vcp    map[byte]uint32
	max    uint32
	getErr error
	setErr error
}

func (m *fakeMonitor) Name() string { return m.name }

func (m *fakeMonitor) VCP(code byte) (uint32, uint32, error) {
	if m.getErr != nil {
		return 0, 0, m.getErr
	}
	return m.vcp[code], m.max, nil
}

func (m *fakeMonitor) SetVCP(code byte, value uint32) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.vcp[code] = value
	return nil
}

func useMonitors(t *testing.T, monitors ...*fakeMonitor) *int {
	released := new(int)
	prev := openMonitors
	openMonitors = func() ([]Monitor, func(), error) {
		var list []Monitor
		for _, m := range monitors {
			list = append(list, m)
		}
		return list, func() { *released++ }, nil
	}
	t.Cleanup(func() { openMonitors = prev })
	return released
}

func newFakeMonitor(name string, brightness, max uint32) *fakeMonitor {
	return &fakeMonitor{name: name, vcp: map[byte]uint32{vcpBrightness: brightness}, max: max}
}

func TestBrightness(t *testing.T) {
	broken := newFakeMonitor("broken", 0, 100)
	broken.getErr = errors.New("no reply")
	released := useMonitors(t, broken, newFakeMonitor("main", 30, 120))

	level, err := Brightness()
	require.NoError(t, err)
	require.InDelta(t, 0.25, level, 1e-9)
	require.True(t, Available())
	require.Equal(t, 2, *released)
}

func TestBrightnessZeroMax(t *testing.T) {
	useMonitors(t, newFakeMonitor("odd", 0, 0))
	_, err := Brightness()
	require.Error(t, err)
	require.False(t, Available())
}

func TestSetBrightness(t *testing.T) {
	a := newFakeMonitor("a", 0, 100)
	b := newFakeMonitor("b", 0, 50)
	useMonitors(t, a, b)

	require.NoError(t, SetBrightness(0.33))
	require.Equal(t, uint32(33), a.vcp[vcpBrightness])
	require.Equal(t, uint32(17), b.vcp[vcpBrightness])

	require.NoError(t, SetBrightness(1.5))
	require.Equal(t, uint32(100), a.vcp[vcpBrightness])
	require.Equal(t, uint32(50), b.vcp[vcpBrightness])
}

func TestSetBrightnessAllFail(t *testing.T) {
	a := newFakeMonitor("a", 0, 100)
	a.setErr = errors.New("i2c nak")
	useMonitors(t, a)
	require.Error(t, SetBrightness(0.5))
}

func TestNoMonitors(t *testing.T) {
	useMonitors(t)
	_, err := Brightness()
	require.True(t, errors.Is(err, ErrNoMonitors))
}

func TestMonitorPower(t *testing.T) {
	a := newFakeMonitor("a", 0, 100)
	useMonitors(t, a)
	require.NoError(t, SetMonitorsStandby())
	require.Equal(t, uint32(monitorStandby), a.vcp[monitorPowerState])
	require.NoError(t, SetMonitorsOn())
	require.Equal(t, uint32(monitorOn), a.vcp[monitorPowerState])
}
