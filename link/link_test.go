package link

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLevel struct {
	available bool
	level     float64
	getErr    error
	setErr    error
	sets      []float64
}

func (p *fakeLevel) Available() bool { return p.available }

func (p *fakeLevel) Level() (float64, error) {
	return p.level, p.getErr
}

func (p *fakeLevel) SetLevel(fraction float64) error {
	if p.setErr != nil {
		return p.setErr
	}
	p.sets = append(p.sets, fraction)
	p.level = fraction
	return nil
}

type fakeScroll struct {
	err   error
	units []int
}

func (p *fakeScroll) Scroll(units int) error {
	if p.err != nil {
		return p.err
	}
	p.units = append(p.units, units)
	return nil
}

func (p *fakeScroll) total() int {
	sum := 0
	for _, u := range p.units {
		sum += u
	}
	return sum
}

type fakeZoom struct {
	available bool
	factor    float64
	sets      []float64
	resets    int
}

func (p *fakeZoom) Available() bool { return p.available }

func (p *fakeZoom) Zoom() (float64, error) {
	return p.factor, nil
}

func (p *fakeZoom) SetZoom(factor float64) error {
	p.sets = append(p.sets, factor)
	p.factor = factor
	return nil
}

func (p *fakeZoom) Reset() error {
	p.resets++
	p.factor = 1
	return nil
}

type linkTestEnv struct {
	volume     *fakeLevel
	brightness *fakeLevel
	scroll     *fakeScroll
	zoom       *fakeZoom
	link       *Link
}

func newLinkTestEnv() *linkTestEnv {
	env := &linkTestEnv{
		volume:     &fakeLevel{available: true, level: 0.5},
		brightness: &fakeLevel{available: true, level: 0.8},
		scroll:     &fakeScroll{},
		zoom:       &fakeZoom{available: true, factor: 1},
	}
	env.link = New(Ports{
		Volume:     env.volume,
		Brightness: env.brightness,
		Scroll:     env.scroll,
		Zoom:       env.zoom,
	}, DefaultTuning())
	return env
}

func (e *linkTestEnv) process(t *testing.T, angle float64) Result {
	res, err := e.link.Process(angle)
	require.NoError(t, err)
	return res
}

func TestLinkVolume(t *testing.T) {
	env := newLinkTestEnv()
	env.volume.level = 0.25

	target, err := env.link.LinkVolume()
	require.NoError(t, err)
	require.InDelta(t, -30.0, target, 1e-9)
	require.Equal(t, Volume, env.link.Active())

	testCases := []struct {
		angle   float64
		percent int
	}{
		{-60, 0},
		{60, 100},
		{0, 50},
		{-90, 0},
		{75, 100},
		{30, 75},
	}
	for _, tc := range testCases {
		res := env.process(t, tc.angle)
		require.Equal(t, Volume, res.Function)
		require.Equalf(t, tc.percent, res.Percent, "angle %v", tc.angle)
	}
	require.Equal(t, []float64{0, 1, 0.5, 0, 1, 0.75}, env.volume.sets)
}

func TestLevelMappingMonotonic(t *testing.T) {
	env := newLinkTestEnv()
	_, err := env.link.LinkBrightness()
	require.NoError(t, err)

	last := -1
	for angle := -80.0; angle <= 80; angle += 0.7 {
		res := env.process(t, angle)
		require.GreaterOrEqual(t, res.Percent, last)
		require.True(t, res.Percent >= 0 && res.Percent <= 100)
		last = res.Percent
	}
	require.Equal(t, 100, last)
}

func TestUpdateBounds(t *testing.T) {
	env := newLinkTestEnv()
	_, err := env.link.LinkVolume()
	require.NoError(t, err)
	require.Equal(t, 50, env.process(t, 0).Percent)

	env.link.UpdateBounds(-90, 30)
	require.Equal(t, Bounds{Lower: -90, Upper: 30}, env.link.Bounds())
	require.Equal(t, 50, env.process(t, -30).Percent)
	require.Equal(t, 100, env.process(t, 45).Percent)
	require.Equal(t, 0, env.process(t, -90).Percent)
}

func TestLinkBrightnessTarget(t *testing.T) {
	env := newLinkTestEnv()
	env.link.UpdateBounds(-100, 100)
	target, err := env.link.LinkBrightness()
	require.NoError(t, err)
	require.InDelta(t, 60.0, target, 1e-9)
}

func TestLinkUnavailable(t *testing.T) {
	env := newLinkTestEnv()
	env.brightness.available = false
	_, err := env.link.LinkBrightness()
	var unavailable *PortUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, Brightness, unavailable.Function)
	require.False(t, env.link.Linked())

	env.zoom.available = false
	err = env.link.LinkZoom()
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, Zoom, unavailable.Function)
	require.False(t, env.link.Linked())

	l := New(Ports{}, DefaultTuning())
	_, err = l.LinkVolume()
	require.True(t, errors.As(err, &unavailable))
	require.True(t, errors.As(l.LinkScroll(0), &unavailable))
}

func TestLinkReadFailureUnlinks(t *testing.T) {
	env := newLinkTestEnv()
	env.volume.getErr = errors.New("no audio endpoint")
	_, err := env.link.LinkVolume()
	require.Error(t, err)
	require.False(t, env.link.Linked())
	require.Equal(t, Binding{}, env.link.Binding())
}

func TestLinkRequiresUnlink(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))

	_, err := env.link.LinkVolume()
	require.True(t, errors.Is(err, ErrAlreadyLinked))
	require.True(t, errors.Is(env.link.LinkZoom(), ErrAlreadyLinked))
	require.True(t, errors.Is(env.link.LinkScroll(3), ErrAlreadyLinked))
	require.Equal(t, Scroll, env.link.Active())

	require.NoError(t, env.link.Unlink())
	_, err = env.link.LinkVolume()
	require.NoError(t, err)
}

func TestLevelPortFailure(t *testing.T) {
	env := newLinkTestEnv()
	_, err := env.link.LinkVolume()
	require.NoError(t, err)

	env.volume.setErr = errors.New("endpoint gone")
	res, err := env.link.Process(60)
	require.Error(t, err)
	require.Equal(t, 100, res.Percent)
	require.Equal(t, Volume, env.link.Active())
}

func TestScrollScenario(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))

	res := env.process(t, 0)
	require.Equal(t, Result{Function: Scroll, Direction: DirectionNone}, res)

	res = env.process(t, 3)
	require.Equal(t, 60, res.Units)
	require.Equal(t, DirectionUp, res.Direction)

	res = env.process(t, 9)
	require.Equal(t, 120, res.Units)
	require.Equal(t, DirectionUp, res.Direction)

	require.Equal(t, []int{60, 120}, env.scroll.units)

	res = env.process(t, 6)
	require.Equal(t, -60, res.Units)
	require.Equal(t, DirectionDown, res.Direction)
}

func TestScrollSensitivity(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(12))
	env.process(t, 100)
	require.Equal(t, 30, env.process(t, 103).Units)
	require.InDelta(t, 10.0, env.link.Binding().UnitsPerDegree, 1e-9)
}

func TestScrollIgnoresNoise(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))
	env.process(t, 10)

	res := env.process(t, 10.05)
	require.Equal(t, 0, res.Units)
	require.Equal(t, DirectionNone, res.Direction)
	require.Empty(t, env.scroll.units)
	require.Equal(t, 10.05, env.link.Binding().LastAngle)
	require.Equal(t, 0.0, env.link.Binding().Accumulator)
}

func TestScrollConservation(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))

	angle := 0.0
	env.process(t, angle)
	for i := 0; i < 1000; i++ {
		angle += 0.13
		env.process(t, angle)
	}
	for i := 0; i < 300; i++ {
		angle -= 0.11
		env.process(t, angle)
	}

	expect := angle * 20
	acc := env.link.Binding().Accumulator
	require.InDelta(t, expect, float64(env.scroll.total()), 1)
	require.InDelta(t, expect, float64(env.scroll.total())+acc, 1e-6)
	require.True(t, math.Abs(acc) < 1)
}

func TestScrollPortFailureKeepsUnits(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))
	env.process(t, 0)

	env.scroll.err = errors.New("input blocked")
	_, err := env.link.Process(1)
	require.Error(t, err)
	require.InDelta(t, 20.0, env.link.Binding().Accumulator, 1e-9)

	env.scroll.err = nil
	require.Equal(t, 40, env.process(t, 2).Units)
}

func TestScrollBaselineResetsOnRelink(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))
	env.process(t, 0)
	env.process(t, 0.5)
	require.NoError(t, env.link.Unlink())

	require.NoError(t, env.link.LinkScroll(0))
	require.Equal(t, 0, env.process(t, 90).Units)
	require.Equal(t, 0.0, env.link.Binding().Accumulator)
}

func TestZoomDeadZone(t *testing.T) {
	env := newLinkTestEnv()
	env.zoom.factor = 2
	require.NoError(t, env.link.LinkZoom())

	for angle := -4.9; angle < 5; angle += 0.1 {
		res := env.process(t, angle)
		require.Equal(t, Hold, res.Action)
		require.Equal(t, 200, res.Percent)
	}
	require.Empty(t, env.zoom.sets)
}

func TestZoomRate(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkZoom())

	res := env.process(t, 45)
	require.Equal(t, ZoomIn, res.Action)
	require.Equal(t, 105, res.Percent)
	require.Len(t, env.zoom.sets, 1)
	require.InDelta(t, 1.05, env.zoom.sets[0], 1e-9)

	// beyond max displacement the rate saturates
	env.process(t, 170)
	require.InDelta(t, 1.10, env.link.Binding().ZoomFactor, 1e-9)

	res = env.process(t, -25)
	require.Equal(t, ZoomOut, res.Action)
	require.InDelta(t, 1.075, env.link.Binding().ZoomFactor, 1e-9)
}

func TestZoomClamps(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkZoom())

	for i := 0; i < 300; i++ {
		env.process(t, 45)
	}
	require.True(t, env.link.Binding().ZoomFactor <= MaxZoom)
	require.InDelta(t, MaxZoom, env.link.Binding().ZoomFactor, 0.01)
	for _, f := range env.zoom.sets {
		require.True(t, f >= MinZoom && f <= MaxZoom)
	}

	writes := len(env.zoom.sets)
	res := env.process(t, 45)
	require.Equal(t, ZoomIn, res.Action)
	require.Len(t, env.zoom.sets, writes)

	for i := 0; i < 300; i++ {
		env.process(t, -45)
	}
	require.True(t, env.link.Binding().ZoomFactor >= MinZoom)
	require.InDelta(t, MinZoom, env.link.Binding().ZoomFactor, 0.01)
	require.Equal(t, 100, env.process(t, -45).Percent)
}

func TestZoomAtMinimumDoesNotWrite(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkZoom())

	res := env.process(t, -30)
	require.Equal(t, ZoomOut, res.Action)
	require.Equal(t, 100, res.Percent)
	require.Empty(t, env.zoom.sets)
}

func TestUnlinkResetsZoom(t *testing.T) {
	env := newLinkTestEnv()
	env.zoom.factor = 3
	require.NoError(t, env.link.LinkZoom())
	require.Equal(t, 3.0, env.link.Binding().ZoomFactor)

	require.NoError(t, env.link.Unlink())
	require.Equal(t, 1, env.zoom.resets)
	require.Equal(t, None, env.link.Active())

	require.NoError(t, env.link.LinkScroll(0))
	require.NoError(t, env.link.Unlink())
	require.NoError(t, env.link.Unlink())
	require.Equal(t, 1, env.zoom.resets)
}

func TestProcessUnlinked(t *testing.T) {
	env := newLinkTestEnv()
	res, err := env.link.Process(42)
	require.NoError(t, err)
	require.Equal(t, None, res.Function)
	require.Empty(t, env.volume.sets)
}

func TestProcessIsValueTransition(t *testing.T) {
	ports := Ports{Scroll: &fakeScroll{}}
	start := Binding{Function: Scroll}

	b1, _, err := Process(start, DefaultBounds, DefaultTuning(), ports, 5)
	require.NoError(t, err)
	require.False(t, start.HasBaseline)
	require.True(t, b1.HasBaseline)

	b2, res, err := Process(b1, DefaultBounds, DefaultTuning(), ports, 5.5)
	require.NoError(t, err)
	require.Equal(t, 10, res.Units)
	require.Equal(t, 5.0, b1.LastAngle)
	require.Equal(t, 5.5, b2.LastAngle)
}

func TestParseFunction(t *testing.T) {
	for _, f := range []Function{None, Volume, Brightness, Scroll, Zoom} {
		parsed, err := ParseFunction(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}
	_, err := ParseFunction("lens")
	require.Error(t, err)
}

func TestScrollSurvivesBadSamples(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))
	env.process(t, 0)

	for _, bad := range []float64{math.Inf(-1), math.Inf(1), math.NaN()} {
		_, err := env.link.Process(bad)
		require.Error(t, err)
	}
	require.Equal(t, 0.0, env.link.Binding().LastAngle)

	env.process(t, 0)
	require.Equal(t, 60, env.process(t, 3).Units)
	require.Equal(t, 60, env.process(t, 6).Units)
	require.Equal(t, []int{60, 60}, env.scroll.units)
}

func TestScrollDropsOutOfRangeStep(t *testing.T) {
	env := newLinkTestEnv()
	require.NoError(t, env.link.LinkScroll(0))
	env.process(t, 0)

	_, err := env.link.Process(1e12)
	require.Error(t, err)
	require.Empty(t, env.scroll.units)
	require.Equal(t, 0.0, env.link.Binding().Accumulator)

	require.Equal(t, 60, env.process(t, 1e12+3).Units)
	require.False(t, math.IsNaN(env.link.Binding().Accumulator))
}

func TestLevelIgnoresNonFiniteAngle(t *testing.T) {
	env := newLinkTestEnv()
	_, err := env.link.LinkVolume()
	require.NoError(t, err)

	_, err = env.link.Process(math.NaN())
	require.Error(t, err)
	require.Empty(t, env.volume.sets)
}
