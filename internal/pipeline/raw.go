package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// RawBuffers names an exported .vb/.ib pair and its .fmt descriptor.
// Fmt is empty when no descriptor sits beside the buffers.
type RawBuffers struct {
	Name string
	VB   string
	IB   string
	Fmt  string
}

// FindRawBuffers resolves the .vb, .ib and .fmt siblings of path, which may
// name any of the three.
func FindRawBuffers(path string) (RawBuffers, error) {
	rb := RawBuffers{
		Name: meshName(path),
		VB:   withExt(path, ".vb"),
		IB:   withExt(path, ".ib"),
		Fmt:  withExt(path, ".fmt"),
	}
	if !exists(rb.VB) {
		return RawBuffers{}, fmt.Errorf("no .vb file for %s: %w", path, ErrMissingBuffer)
	}
	if !exists(rb.IB) {
		return RawBuffers{}, fmt.Errorf("no .ib file for %s: %w", path, ErrMissingBuffer)
	}
	if !exists(rb.Fmt) {
		rb.Fmt = ""
	}
	return rb, nil
}

// ScanOutputFolder lists every <name>.ib in dir that has a <name>.vb
// beside it, sorted by name.
func ScanOutputFolder(dir string) ([]RawBuffers, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var out []RawBuffers
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ib") {
			continue
		}
		rb, err := FindRawBuffers(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, rb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ImportRaw loads the raw buffers next to path. When they have no .fmt
// descriptor the mesh cannot be decoded yet, and a session is returned
// instead, to be completed with a reference layout.
func (p *Pipeline) ImportRaw(path string) (*Mesh, *RawImportSession, error) {
	rb, err := FindRawBuffers(path)
	if err != nil {
		return nil, nil, err
	}
	if rb.Fmt == "" {
		p.log.Info("no .fmt beside buffers, a reference layout is needed", zap.String("vb", rb.VB))
		return nil, p.NewRawImportSession(rb.VB, rb.IB), nil
	}
	mesh, err := p.LoadRaw(rb.Fmt, rb.VB, rb.IB)
	if err != nil {
		return nil, nil, err
	}
	return mesh, nil, nil
}

// RawImportSession holds a .vb/.ib pair waiting for a layout reference.
// A session is used once: Complete and Close both end it.
type RawImportSession struct {
	p      *Pipeline
	VBPath string
	IBPath string

	mu     sync.Mutex
	closed bool
}

// NewRawImportSession starts a session for buffers with no descriptor.
func (p *Pipeline) NewRawImportSession(vbPath, ibPath string) *RawImportSession {
	return &RawImportSession{p: p, VBPath: vbPath, IBPath: ibPath}
}

// Complete loads the pending buffers using referencePath for their layout.
// The reference is either a .fmt file, used for both buffers, or a frame
// analysis .txt dump whose vertex and index buffer siblings are used.
func (s *RawImportSession) Complete(referencePath string) (*Mesh, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.closed = true

	vbRef, ibRef, err := referenceLayouts(referencePath)
	if err != nil {
		return nil, err
	}
	return s.p.loadBinary(vbRef, ibRef, s.VBPath, s.IBPath)
}

// Close abandons the session.
func (s *RawImportSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

func referenceLayouts(path string) (vbRef, ibRef string, err error) {
	if strings.EqualFold(filepath.Ext(path), ".fmt") {
		return path, path, nil
	}
	vbs, ibs, err := FindRelatedBuffers(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return "", "", err
	}
	if len(vbs) == 0 || len(ibs) == 0 {
		return "", "", fmt.Errorf("%s: no reference dumps for both vertex and index buffer: %w", path, ErrMissingBuffer)
	}
	return vbs[0], ibs[0], nil
}
