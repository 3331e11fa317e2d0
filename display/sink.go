package display

import (
	"errors"
	"fmt"
)

// Sink is the hardware-write endpoint a Cache flushes into.
// Calls are made outside the cache lock, one flush at a time.
// A sink must not call Flush on the cache that drives it.
type Sink interface {
	WriteValue(addr Address, value int) error
	WriteLabel(addr Address, e Element) error
	WriteGroupLabel(group int, text string) error
	WriteFullScreenText(text string) error
}

// BatchSink is a Sink whose protocol can carry a whole flush in one go.
// A non-nil error means none of the ops are considered delivered.
type BatchSink interface {
	Sink
	WriteBatch(ops []Op) error
}

// OpKind identifies what an Op writes
type OpKind uint8

const (
	OpLabel OpKind = iota
	OpValue
	OpGroupLabel
)

func (k OpKind) String() string {
	switch k {
	case OpLabel:
		return "label"
	case OpValue:
		return "value"
	case OpGroupLabel:
		return "group"
	default:
		return "unknown"
	}
}

// Op is a single write produced by the diff
type Op struct {
	Kind    OpKind
	Addr    Address // OpLabel, OpValue
	Value   int     // OpValue
	Element Element // OpLabel
	Group   int     // OpGroupLabel
	Text    string  // OpGroupLabel
}

// Apply dispatches op to the matching Sink method
func (op Op) Apply(s Sink) error {
	switch op.Kind {
	case OpLabel:
		return s.WriteLabel(op.Addr, op.Element)
	case OpValue:
		return s.WriteValue(op.Addr, op.Value)
	case OpGroupLabel:
		return s.WriteGroupLabel(op.Group, op.Text)
	}
	return fmt.Errorf("unknown op kind %d", op.Kind)
}

func (op Op) String() string {
	switch op.Kind {
	case OpGroupLabel:
		return fmt.Sprintf("%s[%d]=%q", op.Kind, op.Group, op.Text)
	case OpValue:
		return fmt.Sprintf("%s%s=%d", op.Kind, op.Addr, op.Value)
	default:
		return fmt.Sprintf("%s%s=%q", op.Kind, op.Addr, op.Element.Label)
	}
}

// send delivers ops and reports which of them failed
func send(s Sink, ops []Op) ([]bool, error) {
	failed := make([]bool, len(ops))
	if bs, ok := s.(BatchSink); ok {
		if err := bs.WriteBatch(ops); err != nil {
			for i := range failed {
				failed[i] = true
			}
			return failed, fmt.Errorf("write batch of %d: %w", len(ops), err)
		}
		return failed, nil
	}

	var errs []error
	for i, op := range ops {
		if err := op.Apply(s); err != nil {
			failed[i] = true
			errs = append(errs, fmt.Errorf("write %s: %w", op, err))
		}
	}
	return failed, errors.Join(errs...)
}
