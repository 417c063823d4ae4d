package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// ExportRequest describes one mesh to write.
type ExportRequest struct {
	Mesh *Mesh
	// VBPath is the main vertex buffer path. The .ib and .fmt files are
	// written beside it with the same base name.
	VBPath string
	// VGMaps writes one remapped vertex buffer per suffix. The empty suffix
	// remaps the main vertex buffer itself.
	VGMaps migoto.VGMapSet
	// Reindex rebuilds the buffers through Reindex before writing.
	Reindex bool
}

// ExportResult lists what an export wrote.
type ExportResult struct {
	Files []string
	Stats *migoto.DedupStats // set when the request asked for a reindex
}

// Export writes the vertex buffers, vertex group maps, index buffer and
// format descriptor for req. Every file is encoded before the first is
// written. Cancellation is checked between files.
func (p *Pipeline) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if req.Mesh == nil || req.Mesh.VB == nil {
		return nil, fmt.Errorf("export %s: %w", req.VBPath, ErrMissingBuffer)
	}
	res := &ExportResult{}

	mesh := req.Mesh
	if req.Reindex {
		reindexed, stats, err := p.Reindex(mesh)
		if err != nil {
			return nil, err
		}
		mesh = reindexed
		res.Stats = &stats
	}
	vb, ib := mesh.VB, mesh.IB
	if ib != nil && p.opts.PromoteIndexFormat {
		ib = ib.Clone()
		ib.Promote()
	}

	files, err := encodeExport(req.VBPath, vb, ib, req.VGMaps)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(req.VBPath), 0755); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := p.writeFile(ctx, f.path, f.data, res); err != nil {
			return nil, err
		}
	}

	p.log.Info("exported mesh",
		zap.String("vb", req.VBPath),
		zap.Int("vertices", vb.Len()),
		zap.Int("files", len(res.Files)))
	return res, nil
}

// outputFile is one encoded file waiting to be written.
type outputFile struct {
	path string
	data []byte
}

type binaryWriter interface {
	WriteBinary() ([]byte, error)
}

// encodeExport builds every file of an export in write order: the main
// vertex buffer, each remapped vertex buffer with its .vgmap, the index
// buffer and the format descriptor. Nothing is written if any of them
// fails to encode.
func encodeExport(vbPath string, vb *migoto.VertexBuffer, ib *migoto.IndexBuffer, vgmaps migoto.VGMapSet) ([]outputFile, error) {
	var files []outputFile

	if _, ok := vgmaps[""]; !ok {
		f, err := encodeBuffer(vbPath, vb)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	base, ext := trimExt(vbPath)
	for _, suffix := range vgmaps.Suffixes() {
		path := vbPath
		if suffix != "" {
			path = base + "-" + suffix + ext
		}
		remapped, err := encodeRemapped(path, vb, vgmaps[suffix])
		if err != nil {
			return nil, err
		}
		files = append(files, remapped...)
	}

	if ib != nil {
		f, err := encodeBuffer(base+".ib", ib)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	var fmtText bytes.Buffer
	if _, err := migoto.NewDescriptor(vb, ib).WriteTo(&fmtText); err != nil {
		return nil, err
	}
	return append(files, outputFile{base + ".fmt", fmtText.Bytes()}), nil
}

func encodeBuffer(path string, buf binaryWriter) (outputFile, error) {
	data, err := buf.WriteBinary()
	if err != nil {
		return outputFile{}, fmt.Errorf("encoding %s: %w", path, err)
	}
	return outputFile{path, data}, nil
}

// encodeRemapped encodes vb with its blend indices remapped through m,
// then restores them. The matching .vgmap follows the buffer.
func encodeRemapped(path string, vb *migoto.VertexBuffer, m migoto.BlendIndexMap) ([]outputFile, error) {
	if err := vb.RemapBlendIndices(m); err != nil {
		return nil, fmt.Errorf("remapping %s: %w", path, err)
	}
	data, err := vb.WriteBinary()
	vb.RevertBlendIndices()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", path, err)
	}

	var vgmap bytes.Buffer
	if err := migoto.WriteVGMap(&vgmap, m); err != nil {
		return nil, err
	}
	vgmapPath, _ := trimExt(path)
	return []outputFile{{path, data}, {vgmapPath + ".vgmap", vgmap.Bytes()}}, nil
}

func (p *Pipeline) writeFile(ctx context.Context, path string, data []byte, res *ExportResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	p.log.Debug("wrote file", zap.String("path", path), zap.Int("bytes", len(data)))
	res.Files = append(res.Files, path)
	return nil
}

func trimExt(path string) (base, ext string) {
	ext = filepath.Ext(path)
	return path[:len(path)-len(ext)], ext
}
