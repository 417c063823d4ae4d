package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// bufferPattern finds the "-ib=hash" or "-vb0=hash" part of a frame-analysis
// dump name such as "000123-vb0=8a2f11c0-vs=...-ps=....txt".
var bufferPattern = regexp.MustCompile(`-(?:ib|vb[0-9]+)(=[0-9a-f]+)?[^0-9a-f=]`)

// bufferMatch locates the buffer tag in name. end excludes the character
// following the tag.
func bufferMatch(name string) (start, end int, hashed, ok bool) {
	m := bufferPattern.FindStringSubmatchIndex(name)
	if m == nil {
		return 0, 0, false, false
	}
	return m[0], m[1] - 1, m[2] >= 0, true
}

// FindRelatedBuffers returns the vertex and index buffer dumps in dir that
// belong to the same draw call as filename. Both lists are sorted.
func FindRelatedBuffers(dir, filename string) (vbs, ibs []string, err error) {
	start, end, _, ok := bufferMatch(filename)
	if !ok {
		return nil, nil, fmt.Errorf("%s: name does not look like a frame analysis dump: %w", filename, ErrMissingBuffer)
	}
	prefix, suffix := filename[:start], filename[end:]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < len(prefix)+len(suffix) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		rest := name[len(prefix):]
		switch {
		case strings.HasPrefix(rest, "-ib"):
			ibs = append(ibs, filepath.Join(dir, name))
		case strings.HasPrefix(rest, "-vb"):
			vbs = append(vbs, filepath.Join(dir, name))
		}
	}
	sort.Strings(vbs)
	sort.Strings(ibs)
	return vbs, ibs, nil
}

// RelatedDumps returns every .txt dump in dir carrying the same buffer tag
// and hash as filename, i.e. the other draw calls of the same mesh. Names
// without a hash return only themselves.
func RelatedDumps(dir, filename string) ([]string, error) {
	start, end, hashed, ok := bufferMatch(filename)
	if !ok {
		return nil, fmt.Errorf("%s: name does not look like a frame analysis dump: %w", filename, ErrMissingBuffer)
	}
	if !hashed {
		return []string{filename}, nil
	}
	tag := filename[start:end]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), tag) && strings.HasSuffix(e.Name(), ".txt") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// DrawCall names the dump files of one draw call. When VBBuf is set the
// mesh is loaded from the .buf files and the .txt files only supply the
// layout.
type DrawCall struct {
	VB, IB       string
	VBBuf, IBBuf string
}

// Binary reports whether the draw call loads from .buf files.
func (d DrawCall) Binary() bool {
	return d.VBBuf != ""
}

// FindDrawCall resolves the single vertex and index buffer dump of the draw
// call filename belongs to. Dumps without a hash in their name may be
// incomplete text dumps of custom resources, so their .buf files are used
// when present.
func (p *Pipeline) FindDrawCall(dir, filename string) (DrawCall, error) {
	_, _, hashed, ok := bufferMatch(filename)
	if !ok {
		return DrawCall{}, fmt.Errorf("%s: name does not look like a timestamped frame analysis dump: %w", filename, ErrMissingBuffer)
	}
	vbs, ibs, err := FindRelatedBuffers(dir, filename)
	if err != nil {
		return DrawCall{}, err
	}
	if len(vbs) != 1 || len(ibs) != 1 {
		return DrawCall{}, fmt.Errorf("%s: found %d vertex and %d index buffers, only draw calls with one of each are supported: %w",
			filename, len(vbs), len(ibs), ErrMissingBuffer)
	}
	dc := DrawCall{VB: vbs[0], IB: ibs[0]}
	if hashed {
		return dc, nil
	}

	p.log.Info("dump name has no hash, text may be incomplete, trying .buf files", zap.String("file", filename))
	vbBuf, ibBuf := withExt(dc.VB, ".buf"), withExt(dc.IB, ".buf")
	if !exists(vbBuf) || !exists(ibBuf) {
		p.log.Warn("matching .buf files not found, using .txt files", zap.String("file", filename))
		return dc, nil
	}
	dc.VBBuf, dc.IBBuf = vbBuf, ibBuf
	return dc, nil
}

// LoadDrawCalls loads one mesh from the given draw calls. Text dumps of
// several draw calls are merged. Binary draw calls cannot be merged.
func (p *Pipeline) LoadDrawCalls(calls []DrawCall) (*Mesh, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("no draw calls: %w", ErrMissingBuffer)
	}
	if calls[0].Binary() {
		if len(calls) != 1 {
			return nil, fmt.Errorf("cannot merge %d meshes loaded from binary files", len(calls))
		}
		dc := calls[0]
		return p.LoadFrameAnalysisBinary(dc.VBBuf, dc.VB, dc.IBBuf, dc.IB)
	}

	var vbs, ibs []string
	for _, dc := range calls {
		vbs = append(vbs, dc.VB)
		if dc.IB != "" {
			ibs = append(ibs, dc.IB)
		}
	}
	return p.LoadFrameAnalysis(vbs, ibs)
}

// LoadFrameAnalysis loads text dumps, merging the vertex and index buffers
// of meshes split over several draw calls.
func (p *Pipeline) LoadFrameAnalysis(vbPaths, ibPaths []string) (*Mesh, error) {
	if len(vbPaths) == 0 {
		return nil, fmt.Errorf("no vertex buffer dump: %w", ErrMissingBuffer)
	}

	vb, err := migoto.ReadVertexTextFile(vbPaths[0], p.readOptions())
	if err != nil {
		return nil, err
	}
	for _, path := range vbPaths[1:] {
		other, err := migoto.ReadVertexTextFile(path, p.readOptions())
		if err != nil {
			return nil, err
		}
		if err := vb.Merge(other); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}
	}

	var ib *migoto.IndexBuffer
	for i, path := range ibPaths {
		other, err := migoto.ReadIndexTextFile(path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ib = other
			continue
		}
		if err := ib.Merge(other); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}
	}

	p.log.Debug("loaded frame analysis dump",
		zap.String("vb", vbPaths[0]),
		zap.Int("draw_calls", len(vbPaths)),
		zap.Int("vertices", vb.Len()))

	return &Mesh{Name: meshName(vbPaths[0]), VB: vb, IB: ib}, nil
}

// LoadFrameAnalysisBinary loads .buf files, taking the layouts from the
// matching .txt dumps. An empty ibBuf loads no index buffer.
func (p *Pipeline) LoadFrameAnalysisBinary(vbBuf, vbTxt, ibBuf, ibTxt string) (*Mesh, error) {
	return p.loadBinary(vbTxt, ibTxt, vbBuf, ibBuf)
}

// LoadRaw loads an exported .vb/.ib pair described by a .fmt file.
func (p *Pipeline) LoadRaw(fmtPath, vbPath, ibPath string) (*Mesh, error) {
	return p.loadBinary(fmtPath, fmtPath, vbPath, ibPath)
}

// loadBinary reads the layout of the vertex buffer from vbRef and the index
// format from ibRef, either of which may be a .fmt file or a .txt dump.
func (p *Pipeline) loadBinary(vbRef, ibRef, vbPath, ibPath string) (*Mesh, error) {
	vb, err := readVertexHeader(vbRef)
	if err != nil {
		return nil, err
	}
	vb.SetLogger(p.log)
	if err := vb.ParseBinaryFile(vbPath); err != nil {
		return nil, fmt.Errorf("%s: %w", vbPath, err)
	}

	var ib *migoto.IndexBuffer
	if ibPath != "" {
		ib, err = readIndexHeader(ibRef)
		if err != nil {
			return nil, err
		}
		if err := ib.ParseBinaryFile(ibPath); err != nil {
			return nil, fmt.Errorf("%s: %w", ibPath, err)
		}
	}

	p.log.Debug("loaded binary buffers",
		zap.String("vb", vbPath),
		zap.String("layout", vbRef),
		zap.Int("vertices", vb.Len()))

	return &Mesh{Name: meshName(vbPath), VB: vb, IB: ib}, nil
}

func readVertexHeader(path string) (*migoto.VertexBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening layout reference: %w", err)
	}
	defer f.Close()
	vb, err := migoto.ReadVertexTextHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vb, nil
}

func readIndexHeader(path string) (*migoto.IndexBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index format reference: %w", err)
	}
	defer f.Close()
	ib, err := migoto.ReadIndexTextHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ib, nil
}
