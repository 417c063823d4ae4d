package migoto

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Descriptor is the content of a .fmt file: the vertex layout, topology and
// optionally the index format of an exported mesh.
type Descriptor struct {
	Topology    string
	IndexFormat string // empty when the mesh has no index buffer
	Layout      *InputLayout
}

// NewDescriptor describes vb and, when non-nil, ib.
func NewDescriptor(vb *VertexBuffer, ib *IndexBuffer) *Descriptor {
	d := &Descriptor{Topology: vb.Topology, Layout: vb.Layout}
	if d.Topology == "" {
		d.Topology = TopologyTriangleList
	}
	if ib != nil {
		d.IndexFormat = ib.Format.String()
	}
	return d
}

// ReadDescriptor parses a .fmt file. A frame-analysis .txt dump is also
// accepted; its data section is ignored.
func ReadDescriptor(r io.Reader) (*Descriptor, error) {
	lr, err := newLineReader(r)
	if err != nil {
		return nil, err
	}
	h, err := scanHeader(lr, false)
	if err != nil {
		return nil, err
	}
	layout, err := NewInputLayout(h.stride, h.elements...)
	if err != nil {
		return nil, err
	}
	if h.format != "" {
		if _, err := parseIndexFormat(h.format); err != nil {
			return nil, err
		}
	}
	return &Descriptor{
		Topology:    h.topology,
		IndexFormat: h.format,
		Layout:      layout,
	}, nil
}

// ReadDescriptorFile reads a .fmt file from disk.
func ReadDescriptorFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening format file: %w", err)
	}
	defer f.Close()
	d, err := ReadDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// VertexBuffer returns an empty vertex buffer using the descriptor layout.
func (d *Descriptor) VertexBuffer() *VertexBuffer {
	vb := NewVertexBuffer(d.Layout)
	vb.Topology = d.Topology
	return vb
}

// IndexBuffer returns an empty index buffer, or nil when the descriptor
// names no index format.
func (d *Descriptor) IndexBuffer() (*IndexBuffer, error) {
	if d.IndexFormat == "" {
		return nil, nil
	}
	ib, err := NewIndexBuffer(d.IndexFormat)
	if err != nil {
		return nil, err
	}
	ib.Topology = d.Topology
	return ib, nil
}

// String renders the descriptor in .fmt form.
func (d *Descriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stride: %d\n", d.Layout.Stride)
	fmt.Fprintf(&b, "topology: %s\n", d.Topology)
	if d.IndexFormat != "" {
		fmt.Fprintf(&b, "format: %s\n", d.IndexFormat)
	}
	b.WriteString(d.Layout.String())
	return b.String()
}

// WriteTo writes the .fmt text to w.
func (d *Descriptor) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}
