package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-surface/display"
	"go-surface/lcd"
	"go-surface/theme"
)

// Mackie Control protocol
const (
	mackieModelMCU = 0x14
	mackieCmdLCD   = 0x12
	mackieCmdColor = 0x72

	mackieCellWidth = 7  // chars per strip
	mackieLineWidth = 56 // top line, the bottom line starts right after

	ccVPotTurn   = 0x10
	ccVPotRing   = 0x30
	noteVPotPush = 0x20

	mackieStrips = 8
)

// X-Touch scribble strip colors, bit 0 red, bit 1 green, bit 2 blue
const (
	xtBlack uint8 = 0
	xtWhite uint8 = 7
)

// MackieSink drives the scribble strips and V-Pot rings of an MCU
// compatible surface (one row of strips). Labels go to the bottom LCD line,
// group labels to the top line, values to the V-Pot LED rings.
type MackieSink struct {
	send     func(gomidi.Message) error
	palette  *theme.Palette
	model    byte
	strips   int
	perGroup int
	maxValue int

	// last written state, needed because rings and colors are per-row writes
	colors []uint8
	hidden []bool
	values []int
}

// NewMackieSink builds a sink for a cfg.Cols strip surface
func NewMackieSink(send func(gomidi.Message) error, cfg display.Config, palette *theme.Palette) (*MackieSink, error) {
	if cfg.Rows != 1 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("mackie: grid must be 1xN, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if palette == nil {
		palette = theme.Default()
	}
	perGroup := cfg.Cols
	if cfg.Groups > 0 {
		perGroup = cfg.Cols / cfg.Groups
	}
	s := &MackieSink{
		send:     send,
		palette:  palette,
		model:    mackieModelMCU,
		strips:   cfg.Cols,
		perGroup: perGroup,
		maxValue: cfg.MaxValue,
		colors:   make([]uint8, cfg.Cols),
		hidden:   make([]bool, cfg.Cols),
		values:   make([]int, cfg.Cols),
	}
	for i := range s.colors {
		s.colors[i] = xtWhite
		s.values[i] = display.ValueOff
	}
	return s, nil
}

func (s *MackieSink) sysex(data ...byte) error {
	msg := append([]byte{0x00, 0x00, 0x66, s.model}, data...)
	return s.send(gomidi.SysEx(msg))
}

// writeLCD writes text at a character offset (0-111)
func (s *MackieSink) writeLCD(offset int, text []byte) error {
	return s.sysex(append([]byte{mackieCmdLCD, byte(offset)}, text...)...)
}

func (s *MackieSink) strip(addr display.Address) (int, error) {
	if addr.Row != 0 || addr.Col < 0 || addr.Col >= s.strips {
		return 0, fmt.Errorf("mackie: no strip at %s", addr)
	}
	return addr.Col, nil
}

// ring encodes a value as a single-dot V-Pot position (1-11, 0 = off)
func (s *MackieSink) ring(strip int) uint8 {
	v := s.values[strip]
	if s.hidden[strip] || v == display.ValueOff {
		return 0
	}
	if s.maxValue <= 1 {
		return 1
	}
	return uint8(1 + v*10/(s.maxValue-1))
}

func (s *MackieSink) writeRing(strip int) error {
	return s.send(gomidi.ControlChange(0, uint8(ccVPotRing+strip), s.ring(strip)))
}

func (s *MackieSink) WriteValue(addr display.Address, value int) error {
	strip, err := s.strip(addr)
	if err != nil {
		return err
	}
	s.values[strip] = value
	return s.writeRing(strip)
}

func (s *MackieSink) WriteLabel(addr display.Address, e display.Element) error {
	strip, err := s.strip(addr)
	if err != nil {
		return err
	}

	if e.Changed&display.FieldVisible != 0 {
		s.hidden[strip] = e.Visible == display.Hidden
		if err := s.writeRing(strip); err != nil {
			return err
		}
	}

	if e.Changed&(display.FieldLabel|display.FieldVisible) != 0 {
		text := e.Label
		if e.Visible == display.Hidden {
			text = ""
		}
		// 6 chars plus a gap so neighbouring strips don't run together
		slot := append(lcd.Bytes(text, mackieCellWidth-1), ' ')
		if err := s.writeLCD(mackieLineWidth+strip*mackieCellWidth, slot); err != nil {
			return err
		}
	}

	if e.Changed&display.FieldColor != 0 {
		s.colors[strip] = s.xtColor(e.Color)
		return s.sysex(append([]byte{mackieCmdColor}, s.colors...)...)
	}
	return nil
}

// xtColor snaps a palette tag to the 8 scribble strip backlight colors
func (s *MackieSink) xtColor(c display.Color) uint8 {
	if c == display.NoColor {
		return xtWhite
	}
	rgb := s.palette.Tag(c)
	var out uint8
	for i, ch := range rgb {
		if ch >= 128 {
			out |= 1 << i
		}
	}
	if out == xtBlack {
		return xtWhite
	}
	return out
}

func (s *MackieSink) WriteGroupLabel(group int, text string) error {
	span := s.perGroup * mackieCellWidth
	offset := group * span
	if group < 0 || offset+span > mackieLineWidth {
		return fmt.Errorf("mackie: no group %d", group)
	}
	return s.writeLCD(offset, []byte(lcd.Center(lcd.ASCII(text), span)))
}

// WriteFullScreenText centres text on the top line and blanks the bottom
func (s *MackieSink) WriteFullScreenText(text string) error {
	top := lcd.Center(lcd.ASCII(text), mackieLineWidth)
	bottom := lcd.Fit("", mackieLineWidth)
	return s.writeLCD(0, []byte(top+bottom))
}

// decodeMackie handles V-Pot turns (relative CC) and V-Pot pushes
func decodeMackie(msg gomidi.Message) (any, bool) {
	var channel, key, value uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &value):
		if value > 0 && key >= noteVPotPush && key < noteVPotPush+mackieStrips {
			return PadEvent{Row: 0, Col: int(key - noteVPotPush), Velocity: value}, true
		}
	case msg.GetControlChange(&channel, &key, &value):
		if key >= ccVPotTurn && key < ccVPotTurn+mackieStrips {
			delta := int(value & 0x3F)
			if value&0x40 != 0 {
				delta = -delta
			}
			return EncoderEvent{Row: 0, Col: int(key - ccVPotTurn), Delta: delta}, true
		}
	}
	return nil, false
}
