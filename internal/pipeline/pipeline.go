// Package pipeline ties the buffer codecs together into the import and
// export flows of the tool: locating frame-analysis dumps, loading meshes,
// reindexing and writing .vb/.ib/.fmt/.vgmap sets.
package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/internal/config"
	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// Pipeline errors.
var (
	ErrSessionClosed = errors.New("import session already completed")
	ErrMissingBuffer = errors.New("matching buffer file not found")
)

// Mesh is one draw call: a vertex buffer and an optional index buffer.
type Mesh struct {
	Name string
	VB   *migoto.VertexBuffer
	IB   *migoto.IndexBuffer // nil when faces come straight from the vertex buffer
}

// Options controls loading and export.
type Options struct {
	DropUnknownSemantics bool
	SameVertexCount      bool // canonicalize tangents when reindexing
	PromoteIndexFormat   bool // write 16 bit index buffers as R32_UINT
	Logger               *zap.Logger
}

// OptionsFromConfig maps the tool configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) Options {
	return Options{
		DropUnknownSemantics: cfg.Import.DropUnknownSemantics,
		SameVertexCount:      cfg.Export.SameVertexCount,
		PromoteIndexFormat:   cfg.Export.PromoteIndexFormat,
		Logger:               log,
	}
}

// Pipeline runs import and export flows. It holds no per-mesh state and
// may be shared between goroutines working on different meshes.
type Pipeline struct {
	opts Options
	log  *zap.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opts: opts, log: log}
}

func (p *Pipeline) readOptions() migoto.ReadOptions {
	return migoto.ReadOptions{
		DropUnknown: p.opts.DropUnknownSemantics,
		Logger:      p.log,
	}
}

// meshName derives a mesh name from a buffer path.
func meshName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// withExt replaces the extension of path.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
