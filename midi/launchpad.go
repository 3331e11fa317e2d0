package midi

import (
	"fmt"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-surface/debug"
	"go-surface/display"
	"go-surface/lcd"
	"go-surface/theme"
)

var lpHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C}

type ledState struct {
	color  display.Color
	hidden bool
	value  int
}

// LaunchpadSink drives the 8x8 grid of a Launchpad X. Each cell is one LED:
// its color tag picks the hue and its value the brightness. Labels and group
// labels have nowhere to go and are dropped.
type LaunchpadSink struct {
	send     func(gomidi.Message) error
	palette  *theme.Palette
	rows     int
	cols     int
	maxValue int

	leds  []ledState
	sends atomic.Uint64
}

// NewLaunchpadSink builds a sink for a grid of at most 8x8
func NewLaunchpadSink(send func(gomidi.Message) error, cfg display.Config, palette *theme.Palette) (*LaunchpadSink, error) {
	if cfg.Rows <= 0 || cfg.Rows > 8 || cfg.Cols <= 0 || cfg.Cols > 8 {
		return nil, fmt.Errorf("launchpad: grid must fit 8x8, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if palette == nil {
		palette = theme.Default()
	}
	s := &LaunchpadSink{
		send:     send,
		palette:  palette,
		rows:     cfg.Rows,
		cols:     cfg.Cols,
		maxValue: cfg.MaxValue,
		leds:     make([]ledState, cfg.Rows*cfg.Cols),
	}
	for i := range s.leds {
		s.leds[i].value = display.ValueOff
	}
	return s, nil
}

// Init switches the device to Programmer mode
func (s *LaunchpadSink) Init() error {
	msgs := [][]byte{
		{0x00, 0x7F},       // programmer mode
		{0x08, 0x7F},       // brightness max
		{0x0A, 0x01, 0x01}, // external LED feedback
	}
	for _, m := range msgs {
		if err := s.send(gomidi.SysEx(append(append([]byte{}, lpHeader...), m...))); err != nil {
			return fmt.Errorf("launchpad init: %w", err)
		}
	}
	return nil
}

// Clear turns every grid LED off
func (s *LaunchpadSink) Clear() error {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			if err := s.send(gomidi.NoteOn(ChannelStatic, s.note(display.Address{Row: row, Col: col}), ColorOff)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sends is the number of LED messages written so far
func (s *LaunchpadSink) Sends() uint64 {
	return s.sends.Load()
}

// Row 0 is the top row of pads; the hardware counts from the bottom
func (s *LaunchpadSink) note(addr display.Address) uint8 {
	return rowColToNote(s.rows-1-addr.Row, addr.Col)
}

func (s *LaunchpadSink) index(addr display.Address) (int, error) {
	if addr.Row < 0 || addr.Row >= s.rows || addr.Col < 0 || addr.Col >= s.cols {
		return 0, fmt.Errorf("launchpad: no pad at %s", addr)
	}
	return addr.Row*s.cols + addr.Col, nil
}

// velocity resolves an LED state to a palette velocity
func (s *LaunchpadSink) velocity(led ledState) uint8 {
	if led.hidden || led.value == display.ValueOff {
		return ColorOff
	}
	rgb := theme.RGB{255, 255, 255}
	if led.color != display.NoColor {
		rgb = s.palette.Tag(led.color)
	}
	scale := 1.0
	if s.maxValue > 1 {
		scale = 0.2 + 0.8*float64(led.value)/float64(s.maxValue-1)
	}
	for i := range rgb {
		rgb[i] = uint8(float64(rgb[i]) * scale)
	}
	return mapRGBToLaunchpad(rgb)
}

func (s *LaunchpadSink) writeLED(idx int) error {
	addr := display.Address{Row: idx / s.cols, Col: idx % s.cols}
	s.sends.Add(1)
	return s.send(gomidi.NoteOn(ChannelStatic, s.note(addr), s.velocity(s.leds[idx])))
}

// apply folds an op into the LED state and reports which LED it touched.
// Touched LEDs are always rewritten: after a reset the hardware may not
// match what this sink last sent.
func (s *LaunchpadSink) apply(op display.Op) (int, bool, error) {
	if op.Kind == display.OpGroupLabel {
		return 0, false, nil
	}
	idx, err := s.index(op.Addr)
	if err != nil {
		return 0, false, err
	}
	led := &s.leds[idx]
	switch op.Kind {
	case display.OpValue:
		led.value = op.Value
	case display.OpLabel:
		led.color = op.Element.Color
		led.hidden = op.Element.Visible == display.Hidden
	}
	return idx, true, nil
}

func (s *LaunchpadSink) WriteValue(addr display.Address, value int) error {
	return s.WriteBatch([]display.Op{{Kind: display.OpValue, Addr: addr, Value: value}})
}

func (s *LaunchpadSink) WriteLabel(addr display.Address, e display.Element) error {
	return s.WriteBatch([]display.Op{{Kind: display.OpLabel, Addr: addr, Element: e}})
}

func (s *LaunchpadSink) WriteGroupLabel(group int, text string) error {
	return nil
}

// WriteBatch sends one NoteOn per LED touched by ops, so a label and value
// for the same pad cost a single message
func (s *LaunchpadSink) WriteBatch(ops []display.Op) error {
	var touched []int
	seen := make(map[int]bool)
	for _, op := range ops {
		idx, ok, err := s.apply(op)
		if err != nil {
			return err
		}
		if ok && !seen[idx] {
			seen[idx] = true
			touched = append(touched, idx)
		}
	}

	for _, idx := range touched {
		if err := s.writeLED(idx); err != nil {
			return fmt.Errorf("launchpad led %d: %w", idx, err)
		}
	}

	count := s.sends.Load()
	if len(touched) > 0 && count%100 < uint64(len(touched)) {
		debug.Log("lp-send", "batch count=%d (this batch=%d)", count, len(touched))
	}
	return nil
}

// WriteFullScreenText scrolls text across the grid; "" stops the scroll
func (s *LaunchpadSink) WriteFullScreenText(text string) error {
	data := append(append([]byte{}, lpHeader...), 0x07)
	if text != "" {
		// loop off, speed 7, palette color
		data = append(data, 0x00, 0x07, 0x00, ColorWhite)
		data = append(data, lcd.ASCII(text)...)
	}
	return s.send(gomidi.SysEx(data))
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb theme.RGB) uint8 {
	// Launchpad X palette - approximate RGB values for key colors
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{1, 30, 30, 30},      // dark grey
		{5, 255, 0, 0},       // red
		{6, 255, 80, 80},     // bright red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{11, 180, 80, 40},    // dim orange
		{13, 255, 200, 0},    // yellow
		{17, 0, 180, 0},      // green
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{47, 80, 150, 255},   // bright blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{78, 100, 100, 255},  // light blue
		{84, 255, 150, 50},   // bright orange
		{87, 150, 255, 100},  // lime
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 999999

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		// Simple Euclidean distance
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}

	return bestMatch
}

// Launchpad X note mapping
// 8x8 Grid: hardware row 0 (bottom) = notes 11-18, row 7 = notes 81-88

func rowColToNote(row, col int) uint8 {
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return -1, -1
	}
	return row, col
}

// newLaunchpadDecoder maps grid pad presses to display addresses
func newLaunchpadDecoder(rows, cols int) decoder {
	return func(msg gomidi.Message) (any, bool) {
		var channel, note, velocity uint8
		if !msg.GetNoteOn(&channel, &note, &velocity) || velocity == 0 {
			return nil, false
		}
		row, col := noteToRowCol(note)
		if row < 0 || row >= rows || col >= cols {
			return nil, false
		}
		return PadEvent{Row: rows - 1 - row, Col: col, Velocity: velocity}, true
	}
}
