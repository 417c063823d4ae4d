// Package encoding provides text decoding utilities for 3DMigoto descriptor and dump files.
package encoding

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is stripped by the decoder; UTF-16 BOMs switch the decoder.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decoder() transform.Transformer {
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// NewReader wraps r so that BOM-prefixed UTF-8 and UTF-16 (LE or BE) input
// is delivered as plain UTF-8. Input without a BOM passes through as UTF-8.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, decoder())
}

// DecodeText converts file contents to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func DecodeText(data []byte) string {
	result, _, err := transform.Bytes(decoder(), data)
	if err != nil {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}
	return string(result)
}

// NormalizeLineEndings converts CRLF and lone CR line endings to LF.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// NormalizePath normalizes a file path for case-insensitive comparison.
// Dumps are produced on Windows, so paths differing only in case or
// separator refer to the same file.
func NormalizePath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
