package migoto

import (
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/migoto-mesh/pkg/dxgi"
)

// Face is one triangle of a triangle-list index buffer.
type Face [3]int

// IndexBuffer is a decoded triangle-list index buffer.
type IndexBuffer struct {
	Format   dxgi.Format
	Topology string
	First    int // first index of the draw call
	Offset   int // bytes to skip before the first index
	Faces    []Face
}

// NewIndexBuffer creates an empty buffer. The format must be a single
// component 16 or 32 bit UINT format.
func NewIndexBuffer(format string) (*IndexBuffer, error) {
	f, err := parseIndexFormat(format)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{Format: f, Topology: TopologyTriangleList}, nil
}

func parseIndexFormat(format string) (dxgi.Format, error) {
	f, err := dxgi.Parse(format)
	if err != nil {
		return dxgi.Format{}, err
	}
	if f.Kind != dxgi.UInt || f.Components() != 1 || f.Bits == 8 {
		return dxgi.Format{}, fmt.Errorf("%w: %s is not an index format", ErrInvalidLayout, format)
	}
	return f, nil
}

// Len returns the number of faces.
func (ib *IndexBuffer) Len() int {
	return len(ib.Faces)
}

// IndexCount returns the number of indices.
func (ib *IndexBuffer) IndexCount() int {
	return 3 * len(ib.Faces)
}

// Append adds a face.
func (ib *IndexBuffer) Append(f Face) {
	ib.Faces = append(ib.Faces, f)
}

// ParseBinary decodes raw indices after Offset and appends them as faces.
// On error no faces are added.
func (ib *IndexBuffer) ParseBinary(data []byte) error {
	if ib.Offset < 0 || ib.Offset > len(data) {
		return fmt.Errorf("%w: byte offset %d outside %d bytes", ErrTruncatedBuffer, ib.Offset, len(data))
	}
	data = data[ib.Offset:]
	faceSize := 3 * ib.Format.ByteSize()
	if faceSize == 0 {
		return fmt.Errorf("%w: index buffer has no format", ErrInvalidLayout)
	}
	if len(data)%faceSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %s triangles",
			ErrTruncatedBuffer, len(data), ib.Format)
	}

	indices, err := ib.Format.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding indices: %w", err)
	}
	faces := make([]Face, 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		faces = append(faces, Face{int(indices[i]), int(indices[i+1]), int(indices[i+2])})
	}
	ib.Faces = append(ib.Faces, faces...)
	return nil
}

// ParseBinaryFile reads and decodes a .ib or .buf file.
func (ib *IndexBuffer) ParseBinaryFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading index buffer: %w", err)
	}
	return ib.ParseBinary(data)
}

// WriteBinary flattens the faces and encodes them.
func (ib *IndexBuffer) WriteBinary() ([]byte, error) {
	limit := float64(uint64(1)<<ib.Format.Bits - 1)
	flat := make([]float64, 0, ib.IndexCount())
	for i, f := range ib.Faces {
		for _, idx := range f {
			if idx < 0 || float64(idx) > limit {
				return nil, fmt.Errorf("%w: face %d index %d does not fit %s", ErrInvalidIndex, i, idx, ib.Format)
			}
			flat = append(flat, float64(idx))
		}
	}
	return ib.Format.Encode(flat)
}

// WriteTo writes the encoded buffer to w.
func (ib *IndexBuffer) WriteTo(w io.Writer) (int64, error) {
	data, err := ib.WriteBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Merge appends the faces of other. Indices are not shifted.
func (ib *IndexBuffer) Merge(other *IndexBuffer) error {
	if !ib.Format.Same(other.Format) {
		return fmt.Errorf("%w: index formats %s and %s differ", ErrIncompatibleLayout, ib.Format, other.Format)
	}
	ib.Faces = append(ib.Faces, other.Faces...)
	ib.First = min(ib.First, other.First)
	return nil
}

// Promote switches a 16 bit buffer to R32_UINT. Other formats are kept.
func (ib *IndexBuffer) Promote() {
	if ib.Format.Bits == 16 {
		ib.Format = dxgi.MustParse("DXGI_FORMAT_R32_UINT")
	}
}

// Clone returns a deep copy.
func (ib *IndexBuffer) Clone() *IndexBuffer {
	c := *ib
	c.Faces = append([]Face(nil), ib.Faces...)
	return &c
}

// MaxIndex returns the largest referenced index, or -1 for an empty buffer.
func (ib *IndexBuffer) MaxIndex() int {
	highest := -1
	for _, f := range ib.Faces {
		for _, idx := range f {
			highest = max(highest, idx)
		}
	}
	return highest
}
