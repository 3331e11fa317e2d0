package display

import "fmt"

// ValueOff marks a cell whose value indicator is switched off
const ValueOff = -1

// Address identifies a cell in the display grid
type Address struct {
	Row, Col int
}

func (a Address) String() string {
	return fmt.Sprintf("(%d,%d)", a.Row, a.Col)
}

// Color is an opaque palette tag - the sink decides what it means
type Color uint16

// NoColor is the blank color
const NoColor Color = 0

// Visibility is tri-state so partial updates can leave it alone
type Visibility uint8

const (
	VisibilityUnset Visibility = iota // no change
	Shown
	Hidden
)

func (v Visibility) String() string {
	switch v {
	case Shown:
		return "shown"
	case Hidden:
		return "hidden"
	default:
		return "unset"
	}
}

// Field is a bitmask of cell fields
type Field uint8

const (
	FieldValue Field = 1 << iota
	FieldLabel
	FieldColor
	FieldVisible

	elementFields = FieldLabel | FieldColor | FieldVisible
	allFields     = FieldValue | elementFields
)

// Has reports whether every bit of f2 is set in f
func (f Field) Has(f2 Field) bool {
	return f&f2 == f2
}

// Cell is the state of one addressable display unit
type Cell struct {
	Value   int
	Label   string
	Color   Color
	Visible Visibility
}

// differs returns the subset of mask whose fields differ between a and b
func (a Cell) differs(b Cell, mask Field) Field {
	var out Field
	if mask&FieldValue != 0 && a.Value != b.Value {
		out |= FieldValue
	}
	if mask&FieldLabel != 0 && a.Label != b.Label {
		out |= FieldLabel
	}
	if mask&FieldColor != 0 && a.Color != b.Color {
		out |= FieldColor
	}
	if mask&FieldVisible != 0 && a.Visible != b.Visible {
		out |= FieldVisible
	}
	return out
}

// copyFields copies the fields in mask from src into c
func (c *Cell) copyFields(src Cell, mask Field) {
	if mask&FieldValue != 0 {
		c.Value = src.Value
	}
	if mask&FieldLabel != 0 {
		c.Label = src.Label
	}
	if mask&FieldColor != 0 {
		c.Color = src.Color
	}
	if mask&FieldVisible != 0 {
		c.Visible = src.Visible
	}
}

// Element is the non-value part of a cell as handed to a sink.
// All fields are resolved (pending where set, otherwise last sent);
// Changed says which of them actually differ from the hardware.
type Element struct {
	Label   string
	Color   Color
	Visible Visibility
	Changed Field
}

// ElementOption sets one field in UpdateElement
type ElementOption func(*elementUpdate)

type elementUpdate struct {
	cell Cell
	mask Field
}

// WithLabel sets the cell label
func WithLabel(label string) ElementOption {
	return func(u *elementUpdate) {
		u.cell.Label = label
		u.mask |= FieldLabel
	}
}

// WithColor sets the cell color
func WithColor(c Color) ElementOption {
	return func(u *elementUpdate) {
		u.cell.Color = c
		u.mask |= FieldColor
	}
}

// WithVisible shows or hides the cell
func WithVisible(visible bool) ElementOption {
	return func(u *elementUpdate) {
		if visible {
			u.cell.Visible = Shown
		} else {
			u.cell.Visible = Hidden
		}
		u.mask |= FieldVisible
	}
}
