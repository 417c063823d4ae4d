package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// Reindex expands mesh to one record per face corner and deduplicates it
// again, which drops unreferenced and repeated vertices. With
// SameVertexCount set, tangents are canonicalized first. Meshes without an
// index buffer take their faces from consecutive vertex triples and gain an
// index buffer.
func (p *Pipeline) Reindex(mesh *Mesh) (*Mesh, migoto.DedupStats, error) {
	var corners []migoto.Vertex
	ibFormat := "DXGI_FORMAT_R32_UINT"
	if mesh.IB != nil {
		var err error
		corners, err = migoto.Expand(mesh.VB, mesh.IB)
		if err != nil {
			return nil, migoto.DedupStats{}, fmt.Errorf("%s: %w", mesh.Name, err)
		}
		if !p.opts.PromoteIndexFormat {
			ibFormat = mesh.IB.Format.String()
		}
	} else {
		corners = mesh.VB.Vertices
	}
	if len(corners)%3 != 0 {
		return nil, migoto.DedupStats{}, fmt.Errorf("%s: %d corners is not a whole number of triangles: %w",
			mesh.Name, len(corners), migoto.ErrTruncatedBuffer)
	}

	d, err := migoto.NewDedupIndex(mesh.VB.Layout, ibFormat, migoto.DedupOptions{
		CanonicalizeTangents: p.opts.SameVertexCount,
	})
	if err != nil {
		return nil, migoto.DedupStats{}, err
	}
	for i := 0; i < len(corners); i += 3 {
		d.AddFace(corners[i], corners[i+1], corners[i+2])
	}

	vb, ib := d.VertexBuffer(), d.IndexBuffer()
	vb.Topology = mesh.VB.Topology
	vb.SetLogger(p.log)
	stats := d.Stats()

	p.log.Debug("reindexed mesh",
		zap.String("mesh", mesh.Name),
		zap.Int("vertices_before", mesh.VB.Len()),
		zap.Int("vertices_after", stats.Unique),
		zap.Int("faces", stats.Faces),
		zap.Int("tangents_rewritten", stats.TangentsRewritten))

	return &Mesh{Name: mesh.Name, VB: vb, IB: ib}, stats, nil
}
