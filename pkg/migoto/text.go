package migoto

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Faultbox/migoto-mesh/pkg/encoding"
)

// lineReader walks a text file line by line with surrounding whitespace removed.
type lineReader struct {
	lines []string
	pos   int
}

func newLineReader(r io.Reader) (*lineReader, error) {
	data, err := io.ReadAll(encoding.NewReader(r))
	if err != nil {
		return nil, err
	}
	text := encoding.NormalizeLineEndings(string(data))
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return &lineReader{lines: lines}, nil
}

// next returns the next line, or false at end of input.
func (lr *lineReader) next() (string, bool) {
	if lr.pos >= len(lr.lines) {
		return "", false
	}
	line := lr.lines[lr.pos]
	lr.pos++
	return line, true
}

// lineNo returns the 1-based number of the line last returned by next.
func (lr *lineReader) lineNo() int {
	return lr.pos
}

// field reads the next line and requires it to be "name: value".
func (lr *lineReader) field(name string) (string, error) {
	line, ok := lr.next()
	if !ok {
		return "", fmt.Errorf("%w: expected %s, got end of input", ErrInvalidLayout, name)
	}
	key, value, found := strings.Cut(line, ":")
	if !found || strings.TrimSpace(key) != name {
		return "", fmt.Errorf("%w: line %d: expected %s, got %q", ErrInvalidLayout, lr.lineNo(), name, line)
	}
	return strings.TrimSpace(value), nil
}

func (lr *lineReader) intField(name string) (int, error) {
	value, err := lr.field(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not an integer", ErrInvalidLayout, lr.lineNo(), name, value)
	}
	return n, nil
}

// header splits a "key: value" header line.
func header(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// isElementHeader matches "element[N]:".
func isElementHeader(line string) bool {
	return strings.HasPrefix(line, "element[") && strings.HasSuffix(line, "]:")
}

// headerInt parses a header count, offset or stride. All of them are
// non-negative.
func headerInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidLayout, key, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s %d is negative", ErrInvalidLayout, key, n)
	}
	return n, nil
}
