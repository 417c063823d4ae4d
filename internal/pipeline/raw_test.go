package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRawBuffers(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "body", newTestMesh(t), true)
	writeRaw(t, dir, "hair", newTestMesh(t), false)
	writeFile(t, filepath.Join(dir, "lonely.vb"), "")

	rb, err := FindRawBuffers(filepath.Join(dir, "body.ib"))
	require.NoError(t, err)
	assert.Equal(t, "body", rb.Name)
	assert.Equal(t, filepath.Join(dir, "body.vb"), rb.VB)
	assert.Equal(t, filepath.Join(dir, "body.fmt"), rb.Fmt)

	rb, err = FindRawBuffers(filepath.Join(dir, "hair.vb"))
	require.NoError(t, err)
	assert.Empty(t, rb.Fmt)

	_, err = FindRawBuffers(filepath.Join(dir, "lonely.vb"))
	assert.ErrorIs(t, err, ErrMissingBuffer)
}

func TestScanOutputFolder(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "b-body", newTestMesh(t), true)
	writeRaw(t, dir, "a-hair", newTestMesh(t), false)
	writeFile(t, filepath.Join(dir, "c-orphan.ib"), "")

	got, err := ScanOutputFolder(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a-hair", got[0].Name)
	assert.Empty(t, got[0].Fmt)
	assert.Equal(t, "b-body", got[1].Name)
	assert.NotEmpty(t, got[1].Fmt)

	_, err = ScanOutputFolder(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestImportRaw_WithFmt(t *testing.T) {
	dir := t.TempDir()
	mesh := newTestMesh(t)
	writeRaw(t, dir, "body", mesh, true)

	got, session, err := New(Options{}).ImportRaw(filepath.Join(dir, "body.vb"))
	require.NoError(t, err)
	assert.Nil(t, session)
	requireSameMesh(t, mesh, got)
}

func TestRawImportSession_FmtReference(t *testing.T) {
	dir := t.TempDir()
	mesh := newTestMesh(t)
	writeRaw(t, dir, "body", mesh, false)
	ref := filepath.Join(dir, "reference.fmt")
	writeFile(t, ref, testFmt)

	got, session, err := New(Options{}).ImportRaw(filepath.Join(dir, "body.ib"))
	require.NoError(t, err)
	require.Nil(t, got)
	require.NotNil(t, session)

	got, err = session.Complete(ref)
	require.NoError(t, err)
	requireSameMesh(t, mesh, got)

	_, err = session.Complete(ref)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, session.Close(), ErrSessionClosed)
}

func TestRawImportSession_DumpReference(t *testing.T) {
	dir := t.TempDir()
	mesh := newTestMesh(t)
	rb := writeRaw(t, dir, "body", mesh, false)
	writeFile(t, filepath.Join(dir, drawVB), vbDumpHeader+"\n"+vbDumpBody)
	writeFile(t, filepath.Join(dir, drawIB), ibDump)

	session := New(Options{}).NewRawImportSession(rb.VB, rb.IB)
	got, err := session.Complete(filepath.Join(dir, drawIB))
	require.NoError(t, err)
	requireSameMesh(t, mesh, got)
}

func TestRawImportSession_BadReference(t *testing.T) {
	dir := t.TempDir()
	rb := writeRaw(t, dir, "body", newTestMesh(t), false)
	writeFile(t, filepath.Join(dir, drawVB), vbDumpHeader)

	session := New(Options{}).NewRawImportSession(rb.VB, rb.IB)
	_, err := session.Complete(filepath.Join(dir, drawVB))
	assert.ErrorIs(t, err, ErrMissingBuffer, "no index buffer dump beside the reference")

	// a failed completion still ends the session
	_, err = session.Complete(filepath.Join(dir, drawVB))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRawImportSession_Close(t *testing.T) {
	session := New(Options{}).NewRawImportSession("body.vb", "body.ib")
	require.NoError(t, session.Close())

	_, err := session.Complete("reference.fmt")
	assert.ErrorIs(t, err, ErrSessionClosed)
}
