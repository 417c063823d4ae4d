package migoto

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDescriptorText = "stride: 40\ntopology: trianglelist\nformat: DXGI_FORMAT_R16_UINT\n" + testLayoutText

func TestReadDescriptor_RoundTrip(t *testing.T) {
	d, err := ReadDescriptor(strings.NewReader(testDescriptorText))
	if err != nil {
		t.Fatalf("ReadDescriptor failed: %v", err)
	}
	if d.Layout.Stride != 40 {
		t.Errorf("stride = %d, want 40", d.Layout.Stride)
	}
	if d.Topology != TopologyTriangleList {
		t.Errorf("topology = %q", d.Topology)
	}
	if d.IndexFormat != "DXGI_FORMAT_R16_UINT" {
		t.Errorf("index format = %q", d.IndexFormat)
	}

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if buf.String() != testDescriptorText {
		t.Errorf("descriptor did not round trip:\n%s", buf.String())
	}
}

func TestReadDescriptor_NoIndexFormat(t *testing.T) {
	text := "stride: 40\ntopology: trianglelist\n" + testLayoutText
	d, err := ReadDescriptor(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadDescriptor failed: %v", err)
	}
	ib, err := d.IndexBuffer()
	if err != nil || ib != nil {
		t.Errorf("expected no index buffer, got %v, %v", ib, err)
	}
	if d.String() != text {
		t.Errorf("descriptor without format did not round trip:\n%s", d.String())
	}
}

func TestReadDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"strip topology", strings.Replace(testDescriptorText, "trianglelist", "trianglestrip", 1), ErrUnsupportedTopology},
		{"bad stride", strings.Replace(testDescriptorText, "stride: 40", "stride: forty", 1), ErrInvalidLayout},
		{"float index format", strings.Replace(testDescriptorText, "R16_UINT", "R32_FLOAT", 1), ErrInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDescriptor(strings.NewReader(tt.text))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadDescriptor_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, strings.ReplaceAll(testDescriptorText, "\n", "\r\n")...)
	d, err := ReadDescriptor(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDescriptor failed on BOM/CRLF input: %v", err)
	}
	if d.Layout.Len() != 6 {
		t.Errorf("expected 6 elements, got %d", d.Layout.Len())
	}
}

func TestNewDescriptor(t *testing.T) {
	vb := createTestVB(t, 1)
	ib := createTestIB(t, "DXGI_FORMAT_R32_UINT", Face{0, 0, 0})

	d := NewDescriptor(vb, ib)
	if d.IndexFormat != "DXGI_FORMAT_R32_UINT" {
		t.Errorf("index format = %q", d.IndexFormat)
	}
	if !strings.HasPrefix(d.String(), "stride: 40\ntopology: trianglelist\nformat: DXGI_FORMAT_R32_UINT\nelement[0]:\n") {
		t.Errorf("unexpected descriptor text:\n%s", d.String())
	}

	d = NewDescriptor(vb, nil)
	if strings.Contains(d.String(), "format:") {
		t.Error("descriptor without index buffer should have no format line")
	}
}

func TestReadDescriptorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.fmt")
	if err := os.WriteFile(path, []byte(testDescriptorText), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := ReadDescriptorFile(path)
	if err != nil {
		t.Fatalf("ReadDescriptorFile failed: %v", err)
	}
	vb := d.VertexBuffer()
	if vb.Layout.Stride != 40 || vb.Topology != TopologyTriangleList {
		t.Errorf("unexpected vertex buffer %+v", vb)
	}

	if _, err := ReadDescriptorFile(filepath.Join(t.TempDir(), "missing.fmt")); err == nil {
		t.Error("expected error for missing file")
	}
}
