package midi

import (
	"go-surface/config"
	"go-surface/display"
)

// Controller is a connected surface: a display cache plus its input events
type Controller interface {
	ID() string
	Name() string
	Type() config.ControllerType

	// Display is the cache driving the controller's screen/LEDs
	Display() *display.Cache

	// Input events from the controller
	PadEvents() <-chan PadEvent
	EncoderEvents() <-chan EncoderEvent

	// Lifecycle
	Close() error
}

// Launchpad X color palette (velocity values 0-127)
// See Programmer's Reference Manual for full palette
const (
	ColorOff   uint8 = 0
	ColorWhite uint8 = 3

	// Channel mode for NoteOn LED writes (1 flashes, 2 pulses)
	ChannelStatic uint8 = 0
)
