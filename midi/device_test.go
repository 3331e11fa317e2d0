package midi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-surface/config"
	"go-surface/display"
)

func testOptions(clock display.Clock) Options {
	return Options{Timing: config.DefaultConfig().Display, Clock: clock}
}

func TestLayoutRejectsUnknownType(t *testing.T) {
	_, err := Layout("push")
	assert.Error(t, err)

	cfg, err := Layout(config.ControllerElectra)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Rows)
	assert.Equal(t, 6, cfg.Cols)
}

func TestDeviceFlushesThroughMackieSink(t *testing.T) {
	c := &capture{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	ctrl := config.NewControllerConfig("Desk", "X-Touch", config.ControllerMackie)

	d, err := newDevice(ctrl, c.send, testOptions(clock))
	require.NoError(t, err)
	assert.Equal(t, ctrl.ID, d.ID())
	assert.Equal(t, config.ControllerMackie, d.Type())

	cache := d.Display()
	cache.UpdateElement(0, 0, display.WithLabel("Vol"))
	cache.UpdateValue(0, 0, 127)

	require.NoError(t, cache.Flush())
	assert.Empty(t, c.take(), "value edit still settling")

	clock.Advance(250 * time.Millisecond)
	require.NoError(t, cache.Flush())
	msgs := c.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("Vol    "), msgs[0][7:14])
	assert.Equal(t, cc(0x30, 11), msgs[1])

	require.NoError(t, cache.Flush())
	assert.Empty(t, c.take())
}

func TestDeviceNotificationReachesHardware(t *testing.T) {
	c := &capture{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	ctrl := config.NewControllerConfig("Page", "Electra", config.ControllerElectra)

	d, err := newDevice(ctrl, c.send, testOptions(clock))
	require.NoError(t, err)

	d.Display().Notify("Pan")
	require.NoError(t, d.Display().Flush())
	assert.Equal(t, [][]byte{
		sysex(append([]byte{0x00, 0x21, 0x45, 0x08, 0x0D}, `info.setText("Pan")`...)...),
	}, c.take())
}

func TestLaunchpadDeviceInitialisesHardware(t *testing.T) {
	c := &capture{}
	ctrl := config.NewControllerConfig("Grid", "LPX", config.ControllerLaunchpad)

	_, err := newDevice(ctrl, c.send, testOptions(nil))
	require.NoError(t, err)
	assert.Len(t, c.take(), 3, "programmer mode, brightness, feedback")
}

func TestDeviceInputAndClose(t *testing.T) {
	c := &capture{}
	ctrl := config.NewControllerConfig("Desk", "X-Touch", config.ControllerMackie)

	d, err := newDevice(ctrl, c.send, testOptions(nil))
	require.NoError(t, err)
	d.start(context.Background())

	d.handle(gomidi.ControlChange(0, 0x11, 0x02), 0)
	d.handle(gomidi.NoteOn(0, 0x20, 127), 0)
	d.handle(gomidi.ControlChange(0, 0x50, 1), 0) // not a V-Pot

	select {
	case ev := <-d.EncoderEvents():
		assert.Equal(t, EncoderEvent{Col: 1, Delta: 2}, ev)
	case <-time.After(time.Second):
		t.Fatal("no encoder event")
	}
	select {
	case ev := <-d.PadEvents():
		assert.Equal(t, PadEvent{Col: 0, Velocity: 127}, ev)
	case <-time.After(time.Second):
		t.Fatal("no pad event")
	}

	c.take()
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	msgs := c.take()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, byte(0), last[6], "shutdown blanks the whole LCD")

	_, open := <-d.PadEvents()
	assert.False(t, open)
}

func TestDispatchDropsWhenFull(t *testing.T) {
	pads := make(chan PadEvent, 1)
	encoders := make(chan EncoderEvent, 1)

	dispatch(PadEvent{Row: 1}, pads, encoders)
	dispatch(PadEvent{Row: 2}, pads, encoders)
	dispatch(EncoderEvent{Delta: 1}, pads, encoders)

	assert.Equal(t, PadEvent{Row: 1}, <-pads)
	assert.Equal(t, EncoderEvent{Delta: 1}, <-encoders)
	assert.Empty(t, pads)
}
