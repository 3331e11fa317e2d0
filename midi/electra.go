package midi

import (
	"encoding/json"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-surface/display"
	"go-surface/lcd"
	"go-surface/theme"
)

var electraHeader = []byte{0x00, 0x21, 0x45}

const (
	electraUpdateControl = 0x14 // followed by 0x07 <id lsb> <id msb> <json>
	electraExecuteLua    = 0x08 // followed by 0x0D <lua source>
)

// electraControl is the JSON body of a control update; only changed
// fields are included
type electraControl struct {
	Name    *string `json:"name,omitempty"`
	Color   string  `json:"color,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
}

// ElectraSink drives an Electra One control page. Every cell is a control
// numbered row*cols+col+1; its value travels as a CC with the same number.
type ElectraSink struct {
	send     func(gomidi.Message) error
	palette  *theme.Palette
	rows     int
	cols     int
	maxValue int
}

// NewElectraSink builds a sink for a page of cfg.Rows x cfg.Cols controls
func NewElectraSink(send func(gomidi.Message) error, cfg display.Config, palette *theme.Palette) (*ElectraSink, error) {
	if cfg.Rows*cfg.Cols > 127 || cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("electra: %dx%d controls do not fit in CC numbers", cfg.Rows, cfg.Cols)
	}
	if palette == nil {
		palette = theme.Default()
	}
	return &ElectraSink{
		send:     send,
		palette:  palette,
		rows:     cfg.Rows,
		cols:     cfg.Cols,
		maxValue: cfg.MaxValue,
	}, nil
}

func (s *ElectraSink) controlID(addr display.Address) (int, error) {
	if addr.Row < 0 || addr.Row >= s.rows || addr.Col < 0 || addr.Col >= s.cols {
		return 0, fmt.Errorf("electra: no control at %s", addr)
	}
	return addr.Row*s.cols + addr.Col + 1, nil
}

func (s *ElectraSink) sysex(data ...byte) error {
	return s.send(gomidi.SysEx(append(append([]byte{}, electraHeader...), data...)))
}

func (s *ElectraSink) lua(format string, args ...any) error {
	src := lcd.ASCII(fmt.Sprintf(format, args...))
	return s.sysex(append([]byte{electraExecuteLua, 0x0D}, src...)...)
}

// WriteValue sends the value scaled to 0-127; ValueOff sends 0
func (s *ElectraSink) WriteValue(addr display.Address, value int) error {
	id, err := s.controlID(addr)
	if err != nil {
		return err
	}
	cc := 0
	if value != display.ValueOff && s.maxValue > 1 {
		cc = value * 127 / (s.maxValue - 1)
	}
	return s.send(gomidi.ControlChange(0, uint8(id), uint8(cc)))
}

func (s *ElectraSink) WriteLabel(addr display.Address, e display.Element) error {
	id, err := s.controlID(addr)
	if err != nil {
		return err
	}

	var body electraControl
	if e.Changed&display.FieldLabel != 0 {
		name := lcd.ASCII(e.Label)
		body.Name = &name
	}
	if e.Changed&display.FieldColor != 0 {
		rgb := theme.RGB{255, 255, 255}
		if e.Color != display.NoColor {
			rgb = s.palette.Tag(e.Color)
		}
		body.Color = fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2])
	}
	if e.Changed&display.FieldVisible != 0 {
		visible := e.Visible != display.Hidden
		body.Visible = &visible
	}
	if body == (electraControl{}) {
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("electra control %d: %w", id, err)
	}
	data := []byte{electraUpdateControl, 0x07, byte(id & 0x7F), byte(id >> 7)}
	return s.sysex(append(data, payload...)...)
}

// WriteGroupLabel relabels the page group with the same index (1-based on the device)
func (s *ElectraSink) WriteGroupLabel(group int, text string) error {
	return s.lua("groups.get(%d):setLabel(%q)", group+1, lcd.ASCII(text))
}

func (s *ElectraSink) WriteFullScreenText(text string) error {
	return s.lua("info.setText(%q)", lcd.ASCII(text))
}

// newElectraDecoder maps absolute control CCs back to cell addresses
func newElectraDecoder(rows, cols int) decoder {
	return func(msg gomidi.Message) (any, bool) {
		var channel, cc, value uint8
		if !msg.GetControlChange(&channel, &cc, &value) || channel != 0 {
			return nil, false
		}
		id := int(cc) - 1
		if id < 0 || id >= rows*cols {
			return nil, false
		}
		return EncoderEvent{Row: id / cols, Col: id % cols, Value: int(value), Absolute: true}, true
	}
}
