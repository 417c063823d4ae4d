package migoto

import (
	"encoding/binary"
	"math"
	"slices"
	"strings"
)

// Attribute holds the components of one vertex element.
// Every supported format value (float16/32, and integers up to 32 bits)
// is exactly representable as float64.
type Attribute []float64

// Clone returns a copy of a.
func (a Attribute) Clone() Attribute {
	if a == nil {
		return nil
	}
	out := make(Attribute, len(a))
	copy(out, a)
	return out
}

// Equal reports whether a and b hold bit-identical components.
func (a Attribute) Equal(b Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// Vertex maps element names (e.g. "POSITION", "TEXCOORD1") to their values.
type Vertex map[string]Attribute

// Clone returns a deep copy of v.
func (v Vertex) Clone() Vertex {
	out := make(Vertex, len(v))
	for name, a := range v {
		out[name] = a.Clone()
	}
	return out
}

// Names returns the attribute names in sorted order.
func (v Vertex) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// VertexKey is a canonical, comparable form of a Vertex. Two vertices have
// equal keys exactly when they hold the same names with bit-identical values.
type VertexKey string

// Key returns the canonical key of v.
func (v Vertex) Key() VertexKey {
	var buf []byte
	for _, name := range v.Names() {
		buf = append(buf, name...)
		buf = append(buf, 0)
		buf = appendAttribute(buf, v[name])
	}
	return VertexKey(buf)
}

// Equal reports whether v and o are attribute-wise bit identical.
func (v Vertex) Equal(o Vertex) bool {
	if len(v) != len(o) {
		return false
	}
	return v.Key() == o.Key()
}

func appendAttribute(buf []byte, a Attribute) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(a)))
	for _, x := range a {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	return buf
}

// attributeKey joins the bit patterns of several attributes, in order.
func attributeKey(attrs ...Attribute) string {
	var buf []byte
	for _, a := range attrs {
		buf = appendAttribute(buf, a)
	}
	return string(buf)
}

// isBlendIndices matches BLENDINDICES, BLENDINDICES1, ...
func isBlendIndices(name string) bool {
	return strings.HasPrefix(name, SemanticBlendIndices)
}
