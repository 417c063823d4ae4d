package migoto

import "fmt"

// DedupOptions controls vertex deduplication.
type DedupOptions struct {
	// CanonicalizeTangents replaces the TANGENT of every corner with the
	// first TANGENT seen for the same POSITION and NORMAL before hashing.
	// This is an approximation of averaging, not a true average.
	CanonicalizeTangents bool
}

// DedupStats summarizes a deduplication run.
type DedupStats struct {
	Corners           int // records inserted
	Unique            int // distinct records kept
	Faces             int
	TangentsRewritten int
}

// DedupIndex collapses a stream of per-corner vertex records into a unique
// vertex list and a face list indexing it. Unique records keep first-seen
// order. A DedupIndex belongs to one mesh and is not safe for concurrent use.
type DedupIndex struct {
	opts     DedupOptions
	index    map[VertexKey]int
	tangents map[string]Attribute
	vb       *VertexBuffer
	ib       *IndexBuffer
	stats    DedupStats
}

// NewDedupIndex creates an empty index producing buffers with the given
// layout and index format.
func NewDedupIndex(layout *InputLayout, ibFormat string, opts DedupOptions) (*DedupIndex, error) {
	ib, err := NewIndexBuffer(ibFormat)
	if err != nil {
		return nil, err
	}
	return &DedupIndex{
		opts:     opts,
		index:    make(map[VertexKey]int),
		tangents: make(map[string]Attribute),
		vb:       NewVertexBuffer(layout),
		ib:       ib,
	}, nil
}

// Insert returns the dense index of v, adding it if it has not been seen.
// The caller's record is never modified or retained.
func (d *DedupIndex) Insert(v Vertex) int {
	d.stats.Corners++
	if d.opts.CanonicalizeTangents {
		v = d.canonicalTangent(v)
	}
	key := v.Key()
	if idx, ok := d.index[key]; ok {
		return idx
	}
	idx := len(d.vb.Vertices)
	d.index[key] = idx
	d.vb.Append(v.Clone())
	return idx
}

// canonicalTangent returns v, or a shallow copy carrying the first tangent
// recorded for v's POSITION and NORMAL.
func (d *DedupIndex) canonicalTangent(v Vertex) Vertex {
	pos, hasPos := v[SemanticPosition]
	normal, hasNormal := v[SemanticNormal]
	tangent, hasTangent := v[SemanticTangent]
	if !hasPos || !hasNormal || !hasTangent {
		return v
	}

	group := attributeKey(pos, normal)
	first, seen := d.tangents[group]
	if !seen {
		d.tangents[group] = tangent.Clone()
		return v
	}
	if first.Equal(tangent) {
		return v
	}

	d.stats.TangentsRewritten++
	out := make(Vertex, len(v))
	for name, a := range v {
		out[name] = a
	}
	out[SemanticTangent] = first
	return out
}

// AddFace inserts the three corners of a triangle and records the face.
func (d *DedupIndex) AddFace(a, b, c Vertex) Face {
	f := Face{d.Insert(a), d.Insert(b), d.Insert(c)}
	d.ib.Append(f)
	d.stats.Faces++
	return f
}

// VertexBuffer returns the unique vertices collected so far.
func (d *DedupIndex) VertexBuffer() *VertexBuffer {
	return d.vb
}

// IndexBuffer returns the faces collected so far.
func (d *DedupIndex) IndexBuffer() *IndexBuffer {
	return d.ib
}

// Stats returns counters for the run so far.
func (d *DedupIndex) Stats() DedupStats {
	s := d.stats
	s.Unique = len(d.vb.Vertices)
	return s
}

// Dedup builds an indexed mesh from a flat triangle-list corner stream.
func Dedup(layout *InputLayout, ibFormat string, corners []Vertex, opts DedupOptions) (*VertexBuffer, *IndexBuffer, error) {
	if len(corners)%3 != 0 {
		return nil, nil, fmt.Errorf("%w: %d corners is not a whole number of triangles", ErrTruncatedBuffer, len(corners))
	}
	d, err := NewDedupIndex(layout, ibFormat, opts)
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < len(corners); i += 3 {
		d.AddFace(corners[i], corners[i+1], corners[i+2])
	}
	return d.VertexBuffer(), d.IndexBuffer(), nil
}

// Expand returns one record per face corner, the inverse of Dedup.
func Expand(vb *VertexBuffer, ib *IndexBuffer) ([]Vertex, error) {
	out := make([]Vertex, 0, ib.IndexCount())
	for i, f := range ib.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vb.Vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", ErrInvalidIndex, i, idx, len(vb.Vertices))
			}
			out = append(out, vb.Vertices[idx].Clone())
		}
	}
	return out, nil
}
