package migoto

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ReadOptions controls how frame-analysis text dumps are read.
type ReadOptions struct {
	// DropUnknown discards vertex-data entries whose semantic is not in the
	// layout instead of keeping them as pass-through attributes.
	DropUnknown bool
	// Logger receives informational notes. Nil means no logging.
	Logger *zap.Logger
}

func (o ReadOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// textHeader collects the header lines shared by .fmt descriptors and
// frame-analysis .txt dumps.
type textHeader struct {
	offset      int
	first       int
	count       int // vertex or index count, -1 when absent
	stride      int
	topology    string
	format      string
	elements    []*Element
	sawHeader   bool
	sawDataMark bool // stopped at "vertex-data:" or the blank line before indices
}

// scanHeader reads header lines and element stanzas. It stops after a
// "vertex-data:" line, or after the first blank line following a header
// when blankEndsHeader is set, as index dumps have no data marker.
func scanHeader(lr *lineReader, blankEndsHeader bool) (*textHeader, error) {
	h := &textHeader{count: -1, topology: TopologyTriangleList}
	for {
		line, ok := lr.next()
		if !ok {
			return h, nil
		}
		switch {
		case line == "vertex-data:":
			h.sawDataMark = true
			return h, nil
		case line == "":
			if blankEndsHeader && h.sawHeader {
				h.sawDataMark = true
				return h, nil
			}
			continue
		case isElementHeader(line):
			e, err := parseElement(lr)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", strings.TrimSuffix(line, ":"), err)
			}
			h.elements = append(h.elements, e)
			continue
		}

		key, value, ok := header(line)
		if !ok {
			continue
		}
		var err error
		switch key {
		case "byte offset":
			h.offset, err = headerInt(key, value)
		case "first vertex", "first index":
			h.first, err = headerInt(key, value)
		case "vertex count", "index count":
			h.count, err = headerInt(key, value)
		case "stride":
			h.stride, err = headerInt(key, value)
		case "topology":
			if value != TopologyTriangleList {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedTopology, value)
			}
			h.topology = value
		case "format":
			h.format = value
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lr.lineNo(), err)
		}
		h.sawHeader = true
	}
}

// ReadVertexText parses a frame-analysis vertex buffer dump, including
// its vertex-data section.
func ReadVertexText(r io.Reader, opts ReadOptions) (*VertexBuffer, error) {
	return readVertexText(r, true, opts)
}

// ReadVertexTextHeader parses only the layout part of a vertex buffer dump
// or .fmt file. The returned buffer is empty, ready for ParseBinary.
func ReadVertexTextHeader(r io.Reader) (*VertexBuffer, error) {
	return readVertexText(r, false, ReadOptions{})
}

// ReadVertexTextFile opens and parses a vertex buffer dump.
func ReadVertexTextFile(path string, opts ReadOptions) (*VertexBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vertex dump: %w", err)
	}
	defer f.Close()
	vb, err := ReadVertexText(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vb, nil
}

func readVertexText(r io.Reader, loadVertices bool, opts ReadOptions) (*VertexBuffer, error) {
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
	vb := NewVertexBuffer(layout)
	vb.Topology = h.topology
	vb.First = h.first
	vb.Offset = h.offset
	vb.SetLogger(opts.Logger)

	if !loadVertices {
		return vb, nil
	}
	if h.sawDataMark {
		if err := parseVertexData(lr, vb, opts); err != nil {
			return nil, err
		}
	}
	if h.count >= 0 && len(vb.Vertices) != h.count {
		return nil, fmt.Errorf("%w: header declares %d vertices, found %d", ErrTruncatedBuffer, h.count, len(vb.Vertices))
	}
	return vb, nil
}

// vertexDataLine matches "vb0[12]+024 TEXCOORD: 0.5, 0.25".
var vertexDataLine = regexp.MustCompile(`^vb\d+\[\d*\]\+\d+ (?P<semantic>[^:]+): (?P<data>.*)$`)

func parseVertexData(lr *lineReader, vb *VertexBuffer, opts ReadOptions) error {
	unknown := make(map[string]bool)
	vertex := make(Vertex)
	flush := func() {
		if len(vertex) > 0 {
			vb.Vertices = append(vb.Vertices, vertex)
			vertex = make(Vertex)
		}
	}

	for {
		line, ok := lr.next()
		if !ok || line == "instance-data:" {
			break
		}
		if line == "" {
			flush()
			continue
		}
		m := vertexDataLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		semantic, data := m[1], m[2]

		e, known := vb.Layout.Element(semantic)
		if !known {
			unknown[semantic] = true
			if opts.DropUnknown {
				continue
			}
		}
		a, err := parseValues(data, known && e.IsInt())
		if err != nil {
			return fmt.Errorf("%w: line %d: %s: %v", ErrInvalidLayout, lr.lineNo(), semantic, err)
		}
		vertex[semantic] = a
	}
	flush()

	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for name := range unknown {
			names = append(names, name)
		}
		slices.Sort(names)
		opts.logger().Info("semantics not declared by layout",
			zap.Strings("semantics", names), zap.Bool("dropped", opts.DropUnknown))
	}
	return nil
}

// parseValues parses a comma separated list. Integer formats must hold
// integers; everything else is read as floating point.
func parseValues(data string, integers bool) (Attribute, error) {
	fields := strings.Split(data, ",")
	out := make(Attribute, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if integers {
			n, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, float64(n))
			continue
		}
		x, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// ReadIndexText parses a frame-analysis index buffer dump with its faces.
func ReadIndexText(r io.Reader) (*IndexBuffer, error) {
	return readIndexText(r, true)
}

// ReadIndexTextHeader parses only the header of an index buffer dump or
// .fmt file. The returned buffer is empty, ready for ParseBinary.
func ReadIndexTextHeader(r io.Reader) (*IndexBuffer, error) {
	return readIndexText(r, false)
}

// ReadIndexTextFile opens and parses an index buffer dump.
func ReadIndexTextFile(path string) (*IndexBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index dump: %w", err)
	}
	defer f.Close()
	ib, err := ReadIndexText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ib, nil
}

func readIndexText(r io.Reader, loadIndices bool) (*IndexBuffer, error) {
	lr, err := newLineReader(r)
	if err != nil {
		return nil, err
	}
	h, err := scanHeader(lr, true)
	if err != nil {
		return nil, err
	}
	if h.format == "" {
		return nil, fmt.Errorf("%w: index dump has no format line", ErrInvalidLayout)
	}

	ib, err := NewIndexBuffer(h.format)
	if err != nil {
		return nil, err
	}
	ib.Topology = h.topology
	ib.First = h.first
	ib.Offset = h.offset

	if !loadIndices {
		return ib, nil
	}
	if h.sawDataMark {
		for {
			line, ok := lr.next()
			if !ok {
				break
			}
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: %q is not a triangle", ErrTruncatedBuffer, lr.lineNo(), line)
			}
			var face Face
			for i, field := range fields {
				if face[i], err = strconv.Atoi(field); err != nil {
					return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidIndex, lr.lineNo(), field)
				}
			}
			ib.Append(face)
		}
	}
	if h.count >= 0 && ib.IndexCount() != h.count {
		return nil, fmt.Errorf("%w: header declares %d indices, found %d", ErrTruncatedBuffer, h.count, ib.IndexCount())
	}
	return ib, nil
}
