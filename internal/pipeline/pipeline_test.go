package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/migoto-mesh/internal/config"
	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

const testLayout = `element[0]:
  SemanticName: POSITION
  SemanticIndex: 0
  Format: R32G32B32_FLOAT
  InputSlot: 0
  AlignedByteOffset: 0
  InputSlotClass: per-vertex
  InstanceDataStepRate: 0
element[1]:
  SemanticName: BLENDINDICES
  SemanticIndex: 0
  Format: R8G8B8A8_UINT
  InputSlot: 0
  AlignedByteOffset: 12
  InputSlotClass: per-vertex
  InstanceDataStepRate: 0
element[2]:
  SemanticName: TEXCOORD
  SemanticIndex: 0
  Format: R16G16_FLOAT
  InputSlot: 0
  AlignedByteOffset: 16
  InputSlotClass: per-vertex
  InstanceDataStepRate: 0
`

const testFmt = "stride: 20\ntopology: trianglelist\nformat: DXGI_FORMAT_R16_UINT\n" + testLayout

// vbDumpHeader is the header of a frame analysis vertex buffer dump using
// the test layout.
const vbDumpHeader = "byte offset: 0\nfirst vertex: 0\nstride: 20\ntopology: trianglelist\n" + testLayout

func testVertex(i int) migoto.Vertex {
	x := float64(i)
	return migoto.Vertex{
		"POSITION":     {x, x * 2, -x},
		"BLENDINDICES": {float64(i), float64(i + 1), 0, 0},
		"TEXCOORD":     {float64(i%2) * 0.5, 1},
	}
}

// newTestMesh returns a quad: four vertices, two faces, 16 bit indices.
func newTestMesh(t *testing.T) *Mesh {
	t.Helper()
	d, err := migoto.ReadDescriptor(strings.NewReader(testFmt))
	require.NoError(t, err)

	vb := d.VertexBuffer()
	for i := 0; i < 4; i++ {
		vb.Append(testVertex(i))
	}
	ib, err := d.IndexBuffer()
	require.NoError(t, err)
	ib.Append(migoto.Face{0, 1, 2})
	ib.Append(migoto.Face{0, 2, 3})

	return &Mesh{Name: "quad", VB: vb, IB: ib}
}

// writeRaw writes mesh as <dir>/<name>.vb and .ib, plus .fmt when withFmt.
func writeRaw(t *testing.T, dir, name string, mesh *Mesh, withFmt bool) RawBuffers {
	t.Helper()
	rb := RawBuffers{
		Name: name,
		VB:   filepath.Join(dir, name+".vb"),
		IB:   filepath.Join(dir, name+".ib"),
	}

	vbData, err := mesh.VB.WriteBinary()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rb.VB, vbData, 0644))

	ibData, err := mesh.IB.WriteBinary()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rb.IB, ibData, 0644))

	if withFmt {
		rb.Fmt = filepath.Join(dir, name+".fmt")
		require.NoError(t, os.WriteFile(rb.Fmt, []byte(migoto.NewDescriptor(mesh.VB, mesh.IB).String()), 0644))
	}
	return rb
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func requireSameMesh(t *testing.T, want, got *Mesh) {
	t.Helper()
	require.Equal(t, want.VB.Len(), got.VB.Len(), "vertex count")
	for i := range want.VB.Vertices {
		require.True(t, want.VB.Vertices[i].Equal(got.VB.Vertices[i]), "vertex %d: want %v, got %v", i, want.VB.Vertices[i], got.VB.Vertices[i])
	}
	if want.IB == nil {
		require.Nil(t, got.IB)
		return
	}
	require.NotNil(t, got.IB)
	require.Equal(t, want.IB.Faces, got.IB.Faces)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.SameVertexCount = true
	cfg.Import.DropUnknownSemantics = true

	opts := OptionsFromConfig(cfg, nil)
	require.True(t, opts.SameVertexCount)
	require.True(t, opts.DropUnknownSemantics)
	require.True(t, opts.PromoteIndexFormat)

	// a nil logger is replaced
	require.NotNil(t, New(opts).log)
}
