package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// PadEvent is sent when a pad/button is pressed on a controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

func (e PadEvent) String() string {
	return fmt.Sprintf("pad (%d,%d) vel=%d", e.Row, e.Col, e.Velocity)
}

// EncoderEvent is sent when a knob moves. Relative encoders report Delta;
// absolute controls report Value (0-127) with Absolute set.
type EncoderEvent struct {
	Row, Col int
	Delta    int
	Value    int
	Absolute bool
}

func (e EncoderEvent) String() string {
	if e.Absolute {
		return fmt.Sprintf("encoder (%d,%d) = %d", e.Row, e.Col, e.Value)
	}
	return fmt.Sprintf("encoder (%d,%d) %+d", e.Row, e.Col, e.Delta)
}

// decoder turns one incoming message into at most one event
type decoder func(msg gomidi.Message) (any, bool)

// dispatch pushes decoded events without blocking the driver callback
func dispatch(ev any, pads chan<- PadEvent, encoders chan<- EncoderEvent) {
	switch e := ev.(type) {
	case PadEvent:
		select {
		case pads <- e:
		default:
		}
	case EncoderEvent:
		select {
		case encoders <- e:
		default:
		}
	}
}
