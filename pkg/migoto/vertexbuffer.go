package migoto

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/pkg/math"
)

// VertexBuffer is a decoded vertex buffer: a layout plus one record per vertex.
// It is not safe for concurrent use.
type VertexBuffer struct {
	Layout   *InputLayout
	Topology string
	First    int // first vertex of the draw call
	Offset   int // bytes to skip before the first record
	Vertices []Vertex

	// pre-remap BLENDINDICES* values, one entry per vertex
	backup   []Vertex
	remapped bool

	log *zap.Logger
}

// NewVertexBuffer creates an empty triangle-list buffer bound to layout.
func NewVertexBuffer(layout *InputLayout) *VertexBuffer {
	return &VertexBuffer{
		Layout:   layout,
		Topology: TopologyTriangleList,
		log:      zap.NewNop(),
	}
}

// SetLogger sets the logger used for informational notes.
func (vb *VertexBuffer) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	vb.log = l
}

func (vb *VertexBuffer) logger() *zap.Logger {
	if vb.log == nil {
		return zap.NewNop()
	}
	return vb.log
}

// Len returns the number of vertices.
func (vb *VertexBuffer) Len() int {
	return len(vb.Vertices)
}

// Append adds a vertex record.
func (vb *VertexBuffer) Append(v Vertex) {
	vb.Vertices = append(vb.Vertices, v)
}

// ParseBinary decodes raw records and appends them. The first Offset bytes
// are skipped. On error no records are added.
func (vb *VertexBuffer) ParseBinary(data []byte) error {
	stride := vb.Layout.Stride
	if stride <= 0 {
		return fmt.Errorf("%w: stride %d", ErrInvalidLayout, stride)
	}
	if err := vb.Layout.Validate(); err != nil {
		return err
	}
	if vb.Offset < 0 || vb.Offset > len(data) {
		return fmt.Errorf("%w: byte offset %d outside %d bytes", ErrTruncatedBuffer, vb.Offset, len(data))
	}
	data = data[vb.Offset:]
	if len(data)%stride != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of stride %d", ErrTruncatedBuffer, len(data), stride)
	}

	elems, err := vb.Layout.VertexElements()
	if err != nil {
		return err
	}

	count := len(data) / stride
	vertices := make([]Vertex, 0, count)
	for i := 0; i < count; i++ {
		block := data[i*stride : (i+1)*stride]
		v := make(Vertex, len(elems))
		for _, e := range elems {
			a, err := e.Decode(block[e.AlignedByteOffset:])
			if err != nil {
				return fmt.Errorf("vertex %d: %w", i, err)
			}
			v[e.Name()] = a
		}
		vertices = append(vertices, v)
	}

	vb.Vertices = append(vb.Vertices, vertices...)
	return nil
}

// ParseBinaryFile reads and decodes a .vb or .buf file.
func (vb *VertexBuffer) ParseBinaryFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading vertex buffer: %w", err)
	}
	return vb.ParseBinary(data)
}

// WriteBinary encodes every record into a zeroed stride-sized block. Each
// record must carry every non-aliased per-vertex element at its declared
// arity. Record entries the layout does not declare are skipped.
func (vb *VertexBuffer) WriteBinary() ([]byte, error) {
	stride := vb.Layout.Stride
	if stride <= 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrInvalidLayout, stride)
	}
	if err := vb.Layout.Validate(); err != nil {
		return nil, err
	}
	elems, err := vb.Layout.VertexElements()
	if err != nil {
		return nil, err
	}

	out := make([]byte, stride*len(vb.Vertices))
	skipped := make(map[string]bool)
	for i, v := range vb.Vertices {
		block := out[i*stride : (i+1)*stride]
		for _, e := range elems {
			a, ok := v[e.Name()]
			if !ok {
				return nil, fmt.Errorf("%w: vertex %d has no %s", ErrMissingSemantic, i, e.Name())
			}
			if err := e.Put(block[e.AlignedByteOffset:], a); err != nil {
				return nil, fmt.Errorf("vertex %d: %w", i, err)
			}
		}
		for name := range v {
			if _, ok := vb.Layout.Element(name); !ok {
				skipped[name] = true
			}
		}
	}

	if len(skipped) > 0 {
		names := make([]string, 0, len(skipped))
		for name := range skipped {
			names = append(names, name)
		}
		slices.Sort(names)
		vb.logger().Info("skipping semantics not in layout", zap.Strings("semantics", names))
	}
	return out, nil
}

// WriteTo writes the encoded buffer to w.
func (vb *VertexBuffer) WriteTo(w io.Writer) (int64, error) {
	data, err := vb.WriteBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Merge appends the records of other, a fragment of the same draw call.
func (vb *VertexBuffer) Merge(other *VertexBuffer) error {
	if !vb.Layout.Equal(other.Layout) {
		return fmt.Errorf("%w: vertex buffers have different input layouts", ErrIncompatibleLayout)
	}
	if vb.remapped || other.remapped {
		return ErrRemapPending
	}
	for _, v := range other.Vertices {
		vb.Vertices = append(vb.Vertices, v.Clone())
	}
	vb.First = min(vb.First, other.First)
	return nil
}

// Clone returns a deep copy sharing the layout.
func (vb *VertexBuffer) Clone() *VertexBuffer {
	c := &VertexBuffer{
		Layout:   vb.Layout,
		Topology: vb.Topology,
		First:    vb.First,
		Offset:   vb.Offset,
		Vertices: make([]Vertex, len(vb.Vertices)),
		remapped: vb.remapped,
		log:      vb.log,
	}
	for i, v := range vb.Vertices {
		c.Vertices[i] = v.Clone()
	}
	if vb.backup != nil {
		c.backup = make([]Vertex, len(vb.backup))
		for i, v := range vb.backup {
			c.backup[i] = v.Clone()
		}
	}
	return c
}

// RemapBlendIndices rewrites every BLENDINDICES* attribute through m and
// keeps the previous values for RevertBlendIndices.
func (vb *VertexBuffer) RemapBlendIndices(m BlendIndexMap) error {
	if vb.remapped {
		return ErrRemapPending
	}
	backup := make([]Vertex, len(vb.Vertices))
	for i, v := range vb.Vertices {
		saved := make(Vertex)
		for name, a := range v {
			if isBlendIndices(name) {
				saved[name] = a
			}
		}
		backup[i] = saved
		vb.Vertices[i] = RemapVertex(v, m)
	}
	vb.backup = backup
	vb.remapped = true
	return nil
}

// RevertBlendIndices restores the values saved by the last remap.
// It does nothing when no remap is pending.
func (vb *VertexBuffer) RevertBlendIndices() {
	if !vb.remapped {
		return
	}
	for i := 0; i < min(len(vb.Vertices), len(vb.backup)); i++ {
		for name, a := range vb.backup[i] {
			vb.Vertices[i][name] = a
		}
	}
	vb.backup = nil
	vb.remapped = false
}

// Remapped reports whether a remap is pending revert.
func (vb *VertexBuffer) Remapped() bool {
	return vb.remapped
}

// WipeSemanticForTesting overwrites an attribute on every vertex with value.
// The selector is either a record name ("TANGENT") or a name with one
// component ("POSITION.w"). Only meant for diagnosing captures.
func (vb *VertexBuffer) WipeSemanticForTesting(selector string, value float64) error {
	name, comp, hasComp := strings.Cut(selector, ".")
	component := -1
	if hasComp {
		component = strings.Index("xyzw", comp)
		if len(comp) != 1 || component < 0 {
			return fmt.Errorf("%w: bad component selector %q", ErrInvalidDimension, selector)
		}
	}

	vb.logger().Warn("wiping semantic for testing", zap.String("selector", selector), zap.Float64("value", value))
	for _, v := range vb.Vertices {
		a, ok := v[name]
		if !ok {
			continue
		}
		if component < 0 {
			for i := range a {
				a[i] = value
			}
		} else if component < len(a) {
			a[component] = value
		}
	}
	return nil
}

// Positions returns the xyz position of every vertex. A four component
// position must be homogeneous with w == 1.
func (vb *VertexBuffer) Positions() ([]math.Vec3, error) {
	out := make([]math.Vec3, len(vb.Vertices))
	for i, v := range vb.Vertices {
		p, ok := v[SemanticPosition]
		if !ok {
			return nil, fmt.Errorf("%w: vertex %d has no %s", ErrMissingSemantic, i, SemanticPosition)
		}
		if len(p) == 4 && p[3] != 1.0 {
			return nil, fmt.Errorf("%w: vertex %d POSITION.w is %v, want 1.0", ErrInvalidDimension, i, p[3])
		}
		if len(p) > 4 {
			return nil, fmt.Errorf("%w: vertex %d POSITION has %d components", ErrInvalidDimension, i, len(p))
		}
		var xyz [3]float64
		copy(xyz[:], p)
		out[i] = math.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return out, nil
}

// Bounds returns the axis-aligned box around all positions.
func (vb *VertexBuffer) Bounds() (math.AABB, error) {
	positions, err := vb.Positions()
	if err != nil {
		return math.AABB{}, err
	}
	return math.BoundsOf(positions), nil
}

// DegenerateFaces counts the faces of ib whose corners span no area in vb,
// including faces that repeat an index.
func DegenerateFaces(vb *VertexBuffer, ib *IndexBuffer) (int, error) {
	positions, err := vb.Positions()
	if err != nil {
		return 0, err
	}
	n := 0
	for i, f := range ib.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(positions) {
				return 0, fmt.Errorf("%w: face %d index %d, %d vertices", ErrInvalidIndex, i, idx, len(positions))
			}
		}
		if math.TriangleArea(positions[f[0]], positions[f[1]], positions[f[2]]) == 0 {
			n++
		}
	}
	return n, nil
}
