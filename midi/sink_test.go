package midi

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-surface/display"
)

type capture struct {
	mu   sync.Mutex
	msgs [][]byte
	fail error
}

func (c *capture) send(msg gomidi.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.msgs = append(c.msgs, append([]byte{}, msg.Bytes()...))
	return nil
}

func (c *capture) take() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.msgs
	c.msgs = nil
	return out
}

func sysex(data ...byte) []byte {
	return append(append([]byte{0xF0}, data...), 0xF7)
}

func cc(num, value uint8) []byte {
	return []byte{0xB0, num, value}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mackieLayout() display.Config {
	return display.Config{Rows: 1, Cols: 8, Groups: 2, MaxValue: 128}
}

func TestMackieLabelGoesToBottomLine(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteLabel(display.Address{Col: 2}, display.Element{Label: "Volume", Changed: display.FieldLabel}))

	want := sysex(append([]byte{0x00, 0x00, 0x66, 0x14, 0x12, 56 + 2*7}, "Volume "...)...)
	assert.Equal(t, [][]byte{want}, c.take())
}

func TestMackieLabelIsTruncatedAndFolded(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteLabel(display.Address{Col: 0}, display.Element{Label: "Résonance", Changed: display.FieldLabel}))

	msgs := c.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("Resona "), msgs[0][7:14])
}

func TestMackieValueDrivesRing(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	addr := display.Address{Col: 3}
	require.NoError(t, s.WriteValue(addr, 0))
	require.NoError(t, s.WriteValue(addr, 127))
	require.NoError(t, s.WriteValue(addr, display.ValueOff))

	assert.Equal(t, [][]byte{cc(0x33, 1), cc(0x33, 11), cc(0x33, 0)}, c.take())
}

func TestMackieHiddenBlanksStripAndRing(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	addr := display.Address{Col: 1}
	require.NoError(t, s.WriteValue(addr, 64))
	c.take()

	require.NoError(t, s.WriteLabel(addr, display.Element{Label: "Pan", Visible: display.Hidden, Changed: display.FieldVisible}))
	msgs := c.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, cc(0x31, 0), msgs[0])
	assert.Equal(t, []byte("       "), msgs[1][7:14])

	// a value arriving while hidden stays dark
	require.NoError(t, s.WriteValue(addr, 100))
	assert.Equal(t, [][]byte{cc(0x31, 0)}, c.take())

	require.NoError(t, s.WriteLabel(addr, display.Element{Label: "Pan", Visible: display.Shown, Changed: display.FieldVisible}))
	msgs = c.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, cc(0x31, 1+100*10/127), msgs[0])
	assert.Equal(t, []byte("Pan    "), msgs[1][7:14])
}

func TestMackieColorSendsWholeRow(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	// tag 1 is red, tag 6 blue in the default palette
	require.NoError(t, s.WriteLabel(display.Address{Col: 2}, display.Element{Color: 1, Changed: display.FieldColor}))
	require.NoError(t, s.WriteLabel(display.Address{Col: 5}, display.Element{Color: 6, Changed: display.FieldColor}))

	msgs := c.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, sysex(0x00, 0x00, 0x66, 0x14, 0x72, 7, 7, 1, 7, 7, 7, 7, 7), msgs[0])
	assert.Equal(t, sysex(0x00, 0x00, 0x66, 0x14, 0x72, 7, 7, 1, 7, 7, 4, 7, 7), msgs[1])
}

func TestMackieGroupLabelSpansStrips(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteGroupLabel(1, "Sends"))
	msgs := c.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(28), msgs[0][6], "group 1 starts at strip 4")
	assert.Len(t, msgs[0], 7+28+1)
	assert.Contains(t, string(msgs[0]), "           Sends            ")

	assert.Error(t, s.WriteGroupLabel(2, "nope"))
}

func TestMackieFullScreenText(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteFullScreenText("Pan"))
	msgs := c.take()
	require.Len(t, msgs, 1)
	text := string(msgs[0][7 : len(msgs[0])-1])
	assert.Len(t, text, 112)
	assert.Equal(t, "Pan", text[26:29])
}

func TestMackieRejectsBadAddress(t *testing.T) {
	c := &capture{}
	s, err := NewMackieSink(c.send, mackieLayout(), nil)
	require.NoError(t, err)

	assert.Error(t, s.WriteValue(display.Address{Row: 1}, 0))
	assert.Error(t, s.WriteLabel(display.Address{Col: 8}, display.Element{}))

	_, err = NewMackieSink(c.send, display.Config{Rows: 2, Cols: 8, MaxValue: 128}, nil)
	assert.Error(t, err)
}

func TestDecodeMackie(t *testing.T) {
	ev, ok := decodeMackie(gomidi.ControlChange(0, 0x12, 0x41))
	require.True(t, ok)
	assert.Equal(t, EncoderEvent{Col: 2, Delta: -1}, ev)

	ev, ok = decodeMackie(gomidi.ControlChange(0, 0x17, 0x03))
	require.True(t, ok)
	assert.Equal(t, EncoderEvent{Col: 7, Delta: 3}, ev)

	ev, ok = decodeMackie(gomidi.NoteOn(0, 0x21, 127))
	require.True(t, ok)
	assert.Equal(t, PadEvent{Col: 1, Velocity: 127}, ev)

	_, ok = decodeMackie(gomidi.ControlChange(0, 0x40, 1))
	assert.False(t, ok)
}

func launchpadLayout() display.Config {
	return display.Config{Rows: 8, Cols: 8, MaxValue: 128}
}

func TestLaunchpadBatchSendsOneMessagePerPad(t *testing.T) {
	c := &capture{}
	s, err := NewLaunchpadSink(c.send, launchpadLayout(), nil)
	require.NoError(t, err)

	top := display.Address{Row: 0, Col: 0}
	err = s.WriteBatch([]display.Op{
		{Kind: display.OpLabel, Addr: top, Element: display.Element{Color: 1, Visible: display.Shown, Changed: display.FieldColor}},
		{Kind: display.OpValue, Addr: top, Value: 127},
		{Kind: display.OpGroupLabel, Group: 0, Text: "ignored"},
	})
	require.NoError(t, err)

	// row 0 is the top row, note 81; full red is palette velocity 5
	assert.Equal(t, [][]byte{{0x90, 81, 5}}, c.take())
	assert.Equal(t, uint64(1), s.Sends())
}

func TestLaunchpadHiddenAndOffAreDark(t *testing.T) {
	c := &capture{}
	s, err := NewLaunchpadSink(c.send, launchpadLayout(), nil)
	require.NoError(t, err)

	bottom := display.Address{Row: 7, Col: 2}
	require.NoError(t, s.WriteValue(bottom, 127))
	require.NoError(t, s.WriteLabel(bottom, display.Element{Visible: display.Hidden, Changed: display.FieldVisible}))
	require.NoError(t, s.WriteLabel(bottom, display.Element{Visible: display.Shown, Changed: display.FieldVisible}))
	require.NoError(t, s.WriteValue(bottom, display.ValueOff))

	assert.Equal(t, [][]byte{
		{0x90, 13, 119},
		{0x90, 13, 0},
		{0x90, 13, 119},
		{0x90, 13, 0},
	}, c.take())
}

func TestLaunchpadFailedBatchReturnsError(t *testing.T) {
	c := &capture{fail: errors.New("unplugged")}
	s, err := NewLaunchpadSink(c.send, launchpadLayout(), nil)
	require.NoError(t, err)

	err = s.WriteBatch([]display.Op{{Kind: display.OpValue, Addr: display.Address{}, Value: 1}})
	assert.ErrorContains(t, err, "unplugged")

	err = s.WriteBatch([]display.Op{{Kind: display.OpValue, Addr: display.Address{Row: 8}, Value: 1}})
	assert.Error(t, err)
}

func TestLaunchpadScrollText(t *testing.T) {
	c := &capture{}
	s, err := NewLaunchpadSink(c.send, launchpadLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteFullScreenText("Hi"))
	require.NoError(t, s.WriteFullScreenText(""))

	assert.Equal(t, [][]byte{
		sysex(0x00, 0x20, 0x29, 0x02, 0x0C, 0x07, 0x00, 0x07, 0x00, ColorWhite, 'H', 'i'),
		sysex(0x00, 0x20, 0x29, 0x02, 0x0C, 0x07),
	}, c.take())
}

func TestLaunchpadInitAndClear(t *testing.T) {
	c := &capture{}
	s, err := NewLaunchpadSink(c.send, launchpadLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Init())
	msgs := c.take()
	require.Len(t, msgs, 3)
	assert.Equal(t, sysex(0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F), msgs[0])

	require.NoError(t, s.Clear())
	assert.Len(t, c.take(), 64)
}

func TestLaunchpadDecoder(t *testing.T) {
	decode := newLaunchpadDecoder(8, 8)

	ev, ok := decode(gomidi.NoteOn(0, 81, 100))
	require.True(t, ok)
	assert.Equal(t, PadEvent{Row: 0, Col: 0, Velocity: 100}, ev)

	ev, ok = decode(gomidi.NoteOn(0, 18, 1))
	require.True(t, ok)
	assert.Equal(t, PadEvent{Row: 7, Col: 7, Velocity: 1}, ev)

	_, ok = decode(gomidi.NoteOn(0, 19, 100)) // scene button
	assert.False(t, ok)
	_, ok = decode(gomidi.NoteOff(0, 81))
	assert.False(t, ok)
}

func TestMapRGBToLaunchpad(t *testing.T) {
	assert.Equal(t, uint8(0), mapRGBToLaunchpad([3]uint8{0, 0, 0}))
	assert.Equal(t, uint8(5), mapRGBToLaunchpad([3]uint8{250, 5, 5}))
	assert.Equal(t, uint8(119), mapRGBToLaunchpad([3]uint8{255, 255, 255}))
}

func electraLayout() display.Config {
	return display.Config{Rows: 6, Cols: 6, Groups: 6, MaxValue: 128}
}

func TestElectraValueIsScaledCC(t *testing.T) {
	c := &capture{}
	s, err := NewElectraSink(c.send, electraLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteValue(display.Address{Row: 1, Col: 2}, 127))
	require.NoError(t, s.WriteValue(display.Address{Row: 0, Col: 0}, display.ValueOff))

	assert.Equal(t, [][]byte{cc(9, 127), cc(1, 0)}, c.take())
}

func TestElectraLabelSendsChangedFieldsOnly(t *testing.T) {
	c := &capture{}
	s, err := NewElectraSink(c.send, electraLayout(), nil)
	require.NoError(t, err)

	addr := display.Address{Row: 1, Col: 2}
	e := display.Element{Label: "Cutoff", Color: 1, Visible: display.Shown, Changed: display.FieldLabel | display.FieldColor}
	require.NoError(t, s.WriteLabel(addr, e))

	want := sysex(append([]byte{0x00, 0x21, 0x45, 0x14, 0x07, 9, 0}, `{"name":"Cutoff","color":"FF0000"}`...)...)
	assert.Equal(t, [][]byte{want}, c.take())

	e.Changed = display.FieldVisible
	e.Visible = display.Hidden
	require.NoError(t, s.WriteLabel(addr, e))
	want = sysex(append([]byte{0x00, 0x21, 0x45, 0x14, 0x07, 9, 0}, `{"visible":false}`...)...)
	assert.Equal(t, [][]byte{want}, c.take())

	e.Changed = 0
	require.NoError(t, s.WriteLabel(addr, e))
	assert.Empty(t, c.take())
}

func TestElectraLuaText(t *testing.T) {
	c := &capture{}
	s, err := NewElectraSink(c.send, electraLayout(), nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteGroupLabel(1, "Osc"))
	require.NoError(t, s.WriteFullScreenText("Volume"))

	assert.Equal(t, [][]byte{
		sysex(append([]byte{0x00, 0x21, 0x45, 0x08, 0x0D}, `groups.get(2):setLabel("Osc")`...)...),
		sysex(append([]byte{0x00, 0x21, 0x45, 0x08, 0x0D}, `info.setText("Volume")`...)...),
	}, c.take())
}

func TestElectraDecoder(t *testing.T) {
	decode := newElectraDecoder(6, 6)

	ev, ok := decode(gomidi.ControlChange(0, 9, 64))
	require.True(t, ok)
	assert.Equal(t, EncoderEvent{Row: 1, Col: 2, Value: 64, Absolute: true}, ev)

	_, ok = decode(gomidi.ControlChange(0, 37, 64))
	assert.False(t, ok)
	_, ok = decode(gomidi.ControlChange(1, 9, 64))
	assert.False(t, ok)
}
