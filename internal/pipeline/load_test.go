package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

const (
	drawVB = "000012-vb0=1a2b3c4d-vs=9e8f-ps=7a6b.txt"
	drawIB = "000012-ib=5e6f7a8b-vs=9e8f-ps=7a6b.txt"
)

const vbDumpBody = `vertex-data:

vb0[0]+000 POSITION: 0, 0, 0
vb0[0]+012 BLENDINDICES: 0, 1, 0, 0
vb0[0]+016 TEXCOORD: 0, 1

vb0[1]+000 POSITION: 1, 2, -1
vb0[1]+012 BLENDINDICES: 1, 2, 0, 0
vb0[1]+016 TEXCOORD: 0.5, 1

vb0[2]+000 POSITION: 2, 4, -2
vb0[2]+012 BLENDINDICES: 2, 3, 0, 0
vb0[2]+016 TEXCOORD: 0, 1
`

const ibDump = `byte offset: 0
first index: 0
index count: 3
topology: trianglelist
format: DXGI_FORMAT_R16_UINT

0 1 2
`

func TestFindRelatedBuffers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		drawVB,
		drawIB,
		"000012-vb1=0badf00d-vs=9e8f-ps=7a6b.txt",
		"000013-vb0=1a2b3c4d-vs=9e8f-ps=7a6b.txt", // other draw call
		"000012-vs-cb0=aaaa-vs=9e8f-ps=7a6b.txt",  // constant buffer
	} {
		writeFile(t, filepath.Join(dir, name), "")
	}

	vbs, ibs, err := FindRelatedBuffers(dir, drawVB)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, drawVB),
		filepath.Join(dir, "000012-vb1=0badf00d-vs=9e8f-ps=7a6b.txt"),
	}, vbs)
	assert.Equal(t, []string{filepath.Join(dir, drawIB)}, ibs)

	_, _, err = FindRelatedBuffers(dir, "notes.txt")
	assert.ErrorIs(t, err, ErrMissingBuffer)
}

func TestBufferMatch(t *testing.T) {
	tests := []struct {
		name   string
		tag    string
		hashed bool
		ok     bool
	}{
		{drawVB, "-vb0=1a2b3c4d", true, true},
		{drawIB, "-ib=5e6f7a8b", true, true},
		{"000012-vb0-vs=9e8f.txt", "-vb0", false, true},
		{"000012-ib.txt", "-ib", false, true},
		{"000012-ps-t0=abcd.dds", "", false, false},
		{"000012-vb0=abc", "", false, false}, // tag must be followed by a separator
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, hashed, ok := bufferMatch(tt.name)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.tag, tt.name[start:end])
			assert.Equal(t, tt.hashed, hashed)
		})
	}
}

func TestRelatedDumps(t *testing.T) {
	dir := t.TempDir()
	other := "000020-vb0=1a2b3c4d-vs=9e8f-ps=7a6b.txt"
	for _, name := range []string{drawVB, drawIB, other, "000020-vb0=1a2b3c4d-vs=9e8f-ps=7a6b.buf"} {
		writeFile(t, filepath.Join(dir, name), "")
	}

	got, err := RelatedDumps(dir, drawVB)
	require.NoError(t, err)
	assert.Equal(t, []string{drawVB, other}, got)

	got, err = RelatedDumps(dir, "000012-vb0-vs=9e8f.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"000012-vb0-vs=9e8f.txt"}, got)
}

func TestLoadFrameAnalysis_Merge(t *testing.T) {
	dir := t.TempDir()
	vb1 := filepath.Join(dir, drawVB)
	vb2 := filepath.Join(dir, "000013-vb0=1a2b3c4d-vs=9e8f-ps=7a6b.txt")
	ib1 := filepath.Join(dir, drawIB)
	ib2 := filepath.Join(dir, "000013-ib=5e6f7a8b-vs=9e8f-ps=7a6b.txt")
	writeFile(t, vb1, vbDumpHeader+"\n"+vbDumpBody)
	writeFile(t, vb2, vbDumpHeader+"\n"+vbDumpBody)
	writeFile(t, ib1, ibDump)
	writeFile(t, ib2, ibDump)

	p := New(Options{})
	mesh, err := p.LoadFrameAnalysis([]string{vb1, vb2}, []string{ib1, ib2})
	require.NoError(t, err)

	assert.Equal(t, "000012-vb0=1a2b3c4d-vs=9e8f-ps=7a6b", mesh.Name)
	assert.Equal(t, 6, mesh.VB.Len())
	require.NotNil(t, mesh.IB)
	assert.Equal(t, []migoto.Face{{0, 1, 2}, {0, 1, 2}}, mesh.IB.Faces)
	assert.Equal(t, migoto.Attribute{1, 2, -1}, mesh.VB.Vertices[4]["POSITION"])

	_, err = p.LoadFrameAnalysis(nil, nil)
	assert.ErrorIs(t, err, ErrMissingBuffer)
}

func TestFindDrawCall(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, drawVB), vbDumpHeader+"\n"+vbDumpBody)
	writeFile(t, filepath.Join(dir, drawIB), ibDump)

	p := New(Options{})
	dc, err := p.FindDrawCall(dir, drawVB)
	require.NoError(t, err)
	assert.False(t, dc.Binary())
	assert.Equal(t, filepath.Join(dir, drawIB), dc.IB)

	mesh, err := p.LoadDrawCalls([]DrawCall{dc})
	require.NoError(t, err)
	assert.Equal(t, 3, mesh.VB.Len())
}

func TestFindDrawCall_BufFallback(t *testing.T) {
	dir := t.TempDir()
	mesh := newTestMesh(t)

	vbTxt := filepath.Join(dir, "000031-vb0-vs=9e8f.txt")
	ibTxt := filepath.Join(dir, "000031-ib-vs=9e8f.txt")
	writeFile(t, vbTxt, vbDumpHeader)
	writeFile(t, ibTxt, ibDump)

	p := New(Options{})
	dc, err := p.FindDrawCall(dir, filepath.Base(vbTxt))
	require.NoError(t, err)
	assert.False(t, dc.Binary(), "no .buf files yet, text dumps are used")

	vbData, err := mesh.VB.WriteBinary()
	require.NoError(t, err)
	ibData, err := mesh.IB.WriteBinary()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(withExt(vbTxt, ".buf"), vbData, 0644))
	require.NoError(t, os.WriteFile(withExt(ibTxt, ".buf"), ibData, 0644))

	dc, err = p.FindDrawCall(dir, filepath.Base(vbTxt))
	require.NoError(t, err)
	require.True(t, dc.Binary())

	got, err := p.LoadDrawCalls([]DrawCall{dc})
	require.NoError(t, err)
	requireSameMesh(t, mesh, got)

	_, err = p.LoadDrawCalls([]DrawCall{dc, dc})
	assert.Error(t, err, "binary draw calls cannot be merged")
}

func TestFindDrawCall_Ambiguous(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, drawVB), "")
	writeFile(t, filepath.Join(dir, "000012-vb1=0badf00d-vs=9e8f-ps=7a6b.txt"), "")
	writeFile(t, filepath.Join(dir, drawIB), "")

	_, err := New(Options{}).FindDrawCall(dir, drawVB)
	assert.ErrorIs(t, err, ErrMissingBuffer)
}

func TestLoadRaw(t *testing.T) {
	dir := t.TempDir()
	mesh := newTestMesh(t)
	rb := writeRaw(t, dir, "body", mesh, true)

	got, err := New(Options{}).LoadRaw(rb.Fmt, rb.VB, rb.IB)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Name)
	requireSameMesh(t, mesh, got)
}

func TestLoadRaw_Truncated(t *testing.T) {
	dir := t.TempDir()
	rb := writeRaw(t, dir, "body", newTestMesh(t), true)

	data, err := os.ReadFile(rb.VB)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rb.VB, data[:len(data)-3], 0644))

	_, err = New(Options{}).LoadRaw(rb.Fmt, rb.VB, rb.IB)
	assert.ErrorIs(t, err, migoto.ErrTruncatedBuffer)
}
