package migoto

import (
	"fmt"
	"io"
	"strings"
)

// slotOffset identifies a byte range start within an input slot.
type slotOffset struct {
	slot   int
	offset int
}

// InputLayout is an ordered list of elements sharing one vertex stride.
// Element order defines serialization order. A layout must not be modified
// once a buffer refers to it; use Clone to derive a new one.
type InputLayout struct {
	Stride int

	elements []*Element
	byName   map[string]*Element
	owners   map[slotOffset]*Element
}

// NewInputLayout creates a layout from elements in declaration order.
// Element names must be unique. Byte ranges are checked by Validate, which
// the binary codecs call before touching data.
func NewInputLayout(stride int, elements ...*Element) (*InputLayout, error) {
	l := &InputLayout{
		Stride:   stride,
		byName:   make(map[string]*Element, len(elements)),
		owners:   make(map[slotOffset]*Element, len(elements)),
		elements: make([]*Element, 0, len(elements)),
	}
	for _, e := range elements {
		if err := l.add(e); err != nil {
			return nil, err
		}
	}
	if l.Stride < 0 {
		return nil, fmt.Errorf("%w: negative stride %d", ErrInvalidLayout, l.Stride)
	}
	return l, nil
}

// add appends e and records its (slot, offset) claim if it is the first.
func (l *InputLayout) add(e *Element) error {
	if _, dup := l.byName[e.Name()]; dup {
		return fmt.Errorf("%w: duplicate element %s", ErrInvalidLayout, e.Name())
	}
	l.elements = append(l.elements, e)
	l.byName[e.Name()] = e
	if e.PerVertex() {
		key := slotOffset{e.InputSlot, e.AlignedByteOffset}
		if _, claimed := l.owners[key]; !claimed {
			l.owners[key] = e
		}
	}
	return nil
}

// ParseInputLayout parses "element[N]:" stanzas and an optional "stride:" line.
func ParseInputLayout(r io.Reader) (*InputLayout, error) {
	lr, err := newLineReader(r)
	if err != nil {
		return nil, err
	}

	var stride int
	var elements []*Element
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		switch {
		case line == "":
			continue
		case isElementHeader(line):
			e, err := parseElement(lr)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", strings.TrimSuffix(line, ":"), err)
			}
			elements = append(elements, e)
		default:
			key, value, ok := header(line)
			if !ok || key != "stride" {
				return nil, fmt.Errorf("%w: line %d: unexpected %q", ErrInvalidLayout, lr.lineNo(), line)
			}
			if stride, err = headerInt(key, value); err != nil {
				return nil, err
			}
		}
	}

	return NewInputLayout(stride, elements...)
}

// Validate checks that element names are unique and that every per-vertex
// element fits inside the stride.
func (l *InputLayout) Validate() error {
	if l.Stride < 0 {
		return fmt.Errorf("%w: negative stride %d", ErrInvalidLayout, l.Stride)
	}
	seen := make(map[string]bool, len(l.elements))
	for _, e := range l.elements {
		if seen[e.Name()] {
			return fmt.Errorf("%w: duplicate element %s", ErrInvalidLayout, e.Name())
		}
		seen[e.Name()] = true

		if !e.PerVertex() {
			continue
		}
		if e.AlignedByteOffset < 0 {
			return fmt.Errorf("%w: %s has negative offset %d", ErrInvalidLayout, e.Name(), e.AlignedByteOffset)
		}
		if l.Stride > 0 && e.AlignedByteOffset+e.Size() > l.Stride {
			return fmt.Errorf("%w: %s at offset %d (%d bytes) exceeds stride %d",
				ErrInvalidLayout, e.Name(), e.AlignedByteOffset, e.Size(), l.Stride)
		}
	}
	return nil
}

// Len returns the number of elements.
func (l *InputLayout) Len() int {
	return len(l.elements)
}

// Elements returns the elements in declaration order.
func (l *InputLayout) Elements() []*Element {
	out := make([]*Element, len(l.elements))
	copy(out, l.elements)
	return out
}

// Element looks up an element by record name, e.g. "TEXCOORD1".
func (l *InputLayout) Element(name string) (*Element, bool) {
	e, ok := l.byName[name]
	return e, ok
}

// Owner returns the per-vertex element that first claimed (slot, offset).
func (l *InputLayout) Owner(slot, offset int) (*Element, bool) {
	e, ok := l.owners[slotOffset{slot, offset}]
	return e, ok
}

// IsAlias reports whether e reuses a byte range claimed by an earlier element.
func (l *InputLayout) IsAlias(e *Element) bool {
	owner, ok := l.Owner(e.InputSlot, e.AlignedByteOffset)
	return ok && owner != e
}

// VertexElements returns the per-vertex elements that make up a vertex
// record, in declaration order. Per-instance elements and aliases of an
// earlier element are left out. An alias named POSITION is an error since
// position data could not be recovered from that offset.
func (l *InputLayout) VertexElements() ([]*Element, error) {
	out := make([]*Element, 0, len(l.elements))
	for _, e := range l.elements {
		if !e.PerVertex() {
			continue
		}
		if l.IsAlias(e) {
			if e.SemanticName == SemanticPosition {
				owner, _ := l.Owner(e.InputSlot, e.AlignedByteOffset)
				return nil, fmt.Errorf("%w: %s shares slot %d offset %d with %s",
					ErrAmbiguousAlias, e.Name(), e.InputSlot, e.AlignedByteOffset, owner.Name())
			}
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Equal reports whether both layouts have the same stride and elements.
func (l *InputLayout) Equal(o *InputLayout) bool {
	if l == o {
		return true
	}
	if l == nil || o == nil || l.Stride != o.Stride || len(l.elements) != len(o.elements) {
		return false
	}
	for i := range l.elements {
		if !l.elements[i].Equal(o.elements[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (l *InputLayout) Clone() *InputLayout {
	c := &InputLayout{
		Stride:   l.Stride,
		byName:   make(map[string]*Element, len(l.elements)),
		owners:   make(map[slotOffset]*Element, len(l.elements)),
		elements: make([]*Element, 0, len(l.elements)),
	}
	for _, e := range l.elements {
		cp := *e
		_ = c.add(&cp) // names are already unique in l
	}
	return c
}

// String serializes the elements as "element[N]:" stanzas.
// The stride is not included; descriptors write it separately.
func (l *InputLayout) String() string {
	var b strings.Builder
	for i, e := range l.elements {
		fmt.Fprintf(&b, "element[%d]:\n", i)
		b.WriteString(e.String())
	}
	return b.String()
}
