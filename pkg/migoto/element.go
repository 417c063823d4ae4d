package migoto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/migoto-mesh/pkg/dxgi"
)

// SlotClass says whether an element advances per vertex or per instance.
type SlotClass string

const (
	PerVertex   SlotClass = "per-vertex"
	PerInstance SlotClass = "per-instance"
)

// Element describes one entry of an input layout.
type Element struct {
	SemanticName         string
	SemanticIndex        int
	Format               dxgi.Format
	InputSlot            int
	AlignedByteOffset    int
	InputSlotClass       SlotClass
	InstanceDataStepRate int
}

// NewElement builds a per-vertex element, parsing the format identifier.
func NewElement(semantic string, index int, format string, slot, offset int) (*Element, error) {
	f, err := dxgi.Parse(format)
	if err != nil {
		return nil, err
	}
	return &Element{
		SemanticName:      semantic,
		SemanticIndex:     index,
		Format:            f,
		InputSlot:         slot,
		AlignedByteOffset: offset,
		InputSlotClass:    PerVertex,
	}, nil
}

// Name returns the semantic name with its index appended when non-zero,
// e.g. "TEXCOORD1". This is the key used in vertex records.
func (e *Element) Name() string {
	if e.SemanticIndex != 0 {
		return e.SemanticName + strconv.Itoa(e.SemanticIndex)
	}
	return e.SemanticName
}

// Components returns the declared component count.
func (e *Element) Components() int {
	return e.Format.Components()
}

// Size returns the element's byte size.
func (e *Element) Size() int {
	return e.Format.ByteSize()
}

// IsFloat reports whether the element format is a FLOAT format.
func (e *Element) IsFloat() bool {
	return e.Format.IsFloat()
}

// IsInt reports whether the element format is UINT or SINT.
func (e *Element) IsInt() bool {
	return e.Format.IsInt()
}

// PerVertex reports whether the element takes part in vertex assembly.
func (e *Element) PerVertex() bool {
	return e.InputSlotClass == PerVertex
}

// Pad right-pads values with fill up to the declared arity.
// Values longer than the arity are rejected; callers clip first.
func (e *Element) Pad(values []float64, fill float64) (Attribute, error) {
	n := e.Components()
	if len(values) > n {
		return nil, fmt.Errorf("%w: %s has %d components, got %d", ErrInvalidDimension, e.Name(), n, len(values))
	}
	out := make(Attribute, n)
	copy(out, values)
	for i := len(values); i < n; i++ {
		out[i] = fill
	}
	return out, nil
}

// Clip truncates values to the declared arity without padding.
func (e *Element) Clip(values []float64) Attribute {
	n := min(len(values), e.Components())
	out := make(Attribute, n)
	copy(out, values[:n])
	return out
}

// Decode decodes one element from its byte range.
func (e *Element) Decode(data []byte) (Attribute, error) {
	if len(data) < e.Size() {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrTruncatedBuffer, e.Name(), e.Size(), len(data))
	}
	vals, err := e.Format.Decode(data[:e.Size()])
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", e.Name(), err)
	}
	return Attribute(vals), nil
}

// Put encodes a into dst, which must be at least Size() bytes.
func (e *Element) Put(dst []byte, a Attribute) error {
	if len(a) != e.Components() {
		return fmt.Errorf("%w: %s wants %d components, got %d", ErrInvalidDimension, e.Name(), e.Components(), len(a))
	}
	if err := e.Format.Put(dst, a); err != nil {
		return fmt.Errorf("encoding %s: %w", e.Name(), err)
	}
	return nil
}

// Equal reports whether two elements describe the same layout entry.
func (e *Element) Equal(o *Element) bool {
	return e.SemanticName == o.SemanticName &&
		e.SemanticIndex == o.SemanticIndex &&
		e.Format.Name == o.Format.Name &&
		e.InputSlot == o.InputSlot &&
		e.AlignedByteOffset == o.AlignedByteOffset &&
		e.InputSlotClass == o.InputSlotClass &&
		e.InstanceDataStepRate == o.InstanceDataStepRate
}

// String returns the element's stanza body, fields indented by two spaces.
func (e *Element) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  SemanticName: %s\n", e.SemanticName)
	fmt.Fprintf(&b, "  SemanticIndex: %d\n", e.SemanticIndex)
	fmt.Fprintf(&b, "  Format: %s\n", e.Format.Name)
	fmt.Fprintf(&b, "  InputSlot: %d\n", e.InputSlot)
	fmt.Fprintf(&b, "  AlignedByteOffset: %d\n", e.AlignedByteOffset)
	fmt.Fprintf(&b, "  InputSlotClass: %s\n", e.InputSlotClass)
	fmt.Fprintf(&b, "  InstanceDataStepRate: %d\n", e.InstanceDataStepRate)
	return b.String()
}

// parseElement reads the seven stanza fields that follow an "element[N]:" line.
func parseElement(lr *lineReader) (*Element, error) {
	e := &Element{}

	name, err := lr.field("SemanticName")
	if err != nil {
		return nil, err
	}
	e.SemanticName = name

	if e.SemanticIndex, err = lr.intField("SemanticIndex"); err != nil {
		return nil, err
	}

	format, err := lr.field("Format")
	if err != nil {
		return nil, err
	}
	if e.Format, err = dxgi.Parse(format); err != nil {
		return nil, fmt.Errorf("element %s: %w", e.Name(), err)
	}

	if e.InputSlot, err = lr.intField("InputSlot"); err != nil {
		return nil, err
	}

	offset, err := lr.field("AlignedByteOffset")
	if err != nil {
		return nil, err
	}
	if offset == "append" {
		return nil, fmt.Errorf("%w: element %s uses AlignedByteOffset=append", ErrInvalidLayout, e.Name())
	}
	if e.AlignedByteOffset, err = strconv.Atoi(offset); err != nil {
		return nil, fmt.Errorf("%w: AlignedByteOffset %q", ErrInvalidLayout, offset)
	}

	class, err := lr.field("InputSlotClass")
	if err != nil {
		return nil, err
	}
	e.InputSlotClass = SlotClass(class)
	if e.InputSlotClass != PerVertex && e.InputSlotClass != PerInstance {
		return nil, fmt.Errorf("%w: InputSlotClass %q", ErrInvalidLayout, class)
	}

	if e.InstanceDataStepRate, err = lr.intField("InstanceDataStepRate"); err != nil {
		return nil, err
	}

	return e, nil
}
