package display

import "slices"

// buffer holds pending and shadow state for the cell grid and group labels.
// It is not safe for concurrent use; Cache guards it.
type buffer struct {
	rows, cols int

	pending    []Cell
	pendingSet []Field // fields a caller has set at least once
	shadow     []Cell
	known      []Field // shadow fields that reflect the hardware

	dirty  []int
	queued []bool

	groupPending []string
	groupSet     []bool
	groupShadow  []string
	groupKnown   []bool
	groupDirty   []int
	groupQueued  []bool
}

func newBuffer(rows, cols, groups int) *buffer {
	n := rows * cols
	return &buffer{
		rows:         rows,
		cols:         cols,
		pending:      make([]Cell, n),
		pendingSet:   make([]Field, n),
		shadow:       make([]Cell, n),
		known:        make([]Field, n),
		queued:       make([]bool, n),
		groupPending: make([]string, groups),
		groupSet:     make([]bool, groups),
		groupShadow:  make([]string, groups),
		groupKnown:   make([]bool, groups),
		groupQueued:  make([]bool, groups),
	}
}

func (b *buffer) isDirty() bool {
	return len(b.dirty) > 0 || len(b.groupDirty) > 0
}

func (b *buffer) markCell(idx int) {
	if !b.queued[idx] {
		b.queued[idx] = true
		b.dirty = append(b.dirty, idx)
	}
}

func (b *buffer) markGroup(g int) {
	if !b.groupQueued[g] {
		b.groupQueued[g] = true
		b.groupDirty = append(b.groupDirty, g)
	}
}

// set writes the masked fields of c into pending; returns true if anything changed
func (b *buffer) set(idx int, c Cell, mask Field) bool {
	changed := b.pending[idx].differs(c, mask) | (mask &^ b.pendingSet[idx])
	if changed == 0 {
		return false
	}
	b.pending[idx].copyFields(c, changed)
	b.pendingSet[idx] |= mask
	b.markCell(idx)
	return true
}

func (b *buffer) setGroup(g int, text string) bool {
	if b.groupSet[g] && b.groupPending[g] == text {
		return false
	}
	b.groupPending[g] = text
	b.groupSet[g] = true
	b.markGroup(g)
	return true
}

// invalidate forgets everything the hardware is known to show and queues
// every cell and group that has pending content
func (b *buffer) invalidate() {
	for i := range b.known {
		b.known[i] = 0
		if b.pendingSet[i] != 0 {
			b.markCell(i)
		}
	}
	for g := range b.groupKnown {
		b.groupKnown[g] = false
		if b.groupSet[g] {
			b.markGroup(g)
		}
	}
}

// diff turns the dirty queues into sink ops and empties them.
// Per cell the label element always precedes the value.
func (b *buffer) diff() []Op {
	slices.Sort(b.dirty)
	slices.Sort(b.groupDirty)

	var ops []Op
	for _, idx := range b.dirty {
		b.queued[idx] = false

		set := b.pendingSet[idx]
		pend := b.pending[idx]
		known := b.known[idx]
		changed := (set &^ known) | pend.differs(b.shadow[idx], set&known)
		if changed == 0 {
			continue
		}

		addr := Address{Row: idx / b.cols, Col: idx % b.cols}
		if changed&elementFields != 0 {
			resolved := b.shadow[idx]
			resolved.copyFields(Cell{}, elementFields&^known)
			resolved.copyFields(pend, set)
			ops = append(ops, Op{
				Kind: OpLabel,
				Addr: addr,
				Element: Element{
					Label:   resolved.Label,
					Color:   resolved.Color,
					Visible: resolved.Visible,
					Changed: changed & elementFields,
				},
			})
		}
		if changed&FieldValue != 0 {
			ops = append(ops, Op{Kind: OpValue, Addr: addr, Value: pend.Value})
		}
	}
	b.dirty = b.dirty[:0]

	for _, g := range b.groupDirty {
		b.groupQueued[g] = false
		if !b.groupSet[g] {
			continue
		}
		if b.groupKnown[g] && b.groupShadow[g] == b.groupPending[g] {
			continue
		}
		ops = append(ops, Op{Kind: OpGroupLabel, Group: g, Text: b.groupPending[g]})
	}
	b.groupDirty = b.groupDirty[:0]

	return ops
}

// commit records delivered ops in the shadow and re-queues failed ones
func (b *buffer) commit(ops []Op, failed []bool) {
	for i, op := range ops {
		switch op.Kind {
		case OpLabel, OpValue:
			idx := op.Addr.Row*b.cols + op.Addr.Col
			if failed[i] {
				b.markCell(idx)
				continue
			}
			if op.Kind == OpValue {
				b.shadow[idx].Value = op.Value
				b.known[idx] |= FieldValue
				continue
			}
			sent := Cell{Label: op.Element.Label, Color: op.Element.Color, Visible: op.Element.Visible}
			b.shadow[idx].copyFields(sent, op.Element.Changed)
			b.known[idx] |= op.Element.Changed
		case OpGroupLabel:
			if failed[i] {
				b.markGroup(op.Group)
				continue
			}
			b.groupShadow[op.Group] = op.Text
			b.groupKnown[op.Group] = true
		}
	}
}
