// Package dxgi provides encoding and decoding of DXGI vertex and index formats.
package dxgi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
)

const prefix = "DXGI_FORMAT_"

// Codec errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported DXGI format")
	ErrShortBuffer       = errors.New("data is not a whole number of components")
	ErrOutOfRange        = errors.New("value does not fit the format")
)

// FormatError reports an identifier that no codec accepts.
type FormatError struct {
	ID string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnsupportedFormat, e.ID)
}

// Is makes errors.Is(err, ErrUnsupportedFormat) hold.
func (e *FormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// Kind is the numeric interpretation shared by every component of a format.
type Kind uint8

const (
	Float Kind = iota + 1
	UInt
	SInt
	UNorm
	SNorm
)

// String returns the suffix used in format identifiers.
func (k Kind) String() string {
	switch k {
	case Float:
		return "FLOAT"
	case UInt:
		return "UINT"
	case SInt:
		return "SINT"
	case UNorm:
		return "UNORM"
	case SNorm:
		return "SNORM"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

func kindFromSuffix(s string) (Kind, bool) {
	switch s {
	case "FLOAT":
		return Float, true
	case "UINT":
		return UInt, true
	case "SINT":
		return SInt, true
	case "UNORM":
		return UNorm, true
	case "SNORM":
		return SNorm, true
	}
	return 0, false
}

// Format is a parsed format identifier such as "R32G32B32_FLOAT".
type Format struct {
	Name string // identifier as written, prefix included if it had one
	Kind Kind
	Bits int // width of every component
	N    int // component count, 1-4
}

// Parse parses a format identifier into a Format.
// The DXGI_FORMAT_ prefix is optional. All components must share one width,
// and the width must be one the kind supports.
func Parse(id string) (Format, error) {
	body := strings.TrimPrefix(id, prefix)
	sep := strings.LastIndexByte(body, '_')
	if sep <= 0 {
		return Format{}, &FormatError{ID: id}
	}

	kind, ok := kindFromSuffix(body[sep+1:])
	if !ok {
		return Format{}, &FormatError{ID: id}
	}

	widths, ok := channelWidths(body[:sep])
	if !ok || len(widths) < 1 || len(widths) > 4 {
		return Format{}, &FormatError{ID: id}
	}
	for _, w := range widths[1:] {
		if w != widths[0] {
			return Format{}, &FormatError{ID: id}
		}
	}

	f := Format{Name: id, Kind: kind, Bits: widths[0], N: len(widths)}
	if !f.supported() {
		return Format{}, &FormatError{ID: id}
	}
	return f, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(id string) Format {
	f, err := Parse(id)
	if err != nil {
		panic(err)
	}
	return f
}

// channelWidths splits "R32G32B32" into [32 32 32].
func channelWidths(s string) ([]int, bool) {
	var widths []int
	for len(s) > 0 {
		if !strings.ContainsRune("RGBAD", rune(s[0])) {
			return nil, false
		}
		i := 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 1 {
			return nil, false
		}
		w, err := strconv.Atoi(s[1:i])
		if err != nil {
			return nil, false
		}
		widths = append(widths, w)
		s = s[i:]
	}
	return widths, true
}

func (f Format) supported() bool {
	switch f.Kind {
	case Float:
		return f.Bits == 32 || f.Bits == 16
	case UInt, SInt:
		return f.Bits == 32 || f.Bits == 16 || f.Bits == 8
	case UNorm, SNorm:
		return f.Bits == 16 || f.Bits == 8
	}
	return false
}

// String returns the identifier the format was parsed from.
func (f Format) String() string {
	return f.Name
}

// Same reports whether two formats have the same encoding, ignoring
// whether the identifiers carried the DXGI_FORMAT_ prefix.
func (f Format) Same(o Format) bool {
	return f.Kind == o.Kind && f.Bits == o.Bits && f.N == o.N
}

// Components returns the number of components.
func (f Format) Components() int {
	return f.N
}

// ComponentSize returns the byte width of one component.
func (f Format) ComponentSize() int {
	return f.Bits / 8
}

// ByteSize returns the total byte size of one element.
func (f Format) ByteSize() int {
	return f.N * f.Bits / 8
}

// IsFloat reports whether the identifier carries the FLOAT suffix.
func (f Format) IsFloat() bool {
	return f.Kind == Float
}

// IsInt reports whether the format holds raw integers (UINT or SINT).
func (f Format) IsInt() bool {
	return f.Kind == UInt || f.Kind == SInt
}

// normMax returns the integer that 1.0 maps to for normalized kinds.
func (f Format) normMax() float64 {
	if f.Kind == UNorm {
		return float64(uint64(1)<<f.Bits - 1)
	}
	return float64(uint64(1)<<(f.Bits-1) - 1)
}

// Encode converts values into little-endian bytes, one component per value.
func (f Format) Encode(values []float64) ([]byte, error) {
	buf := make([]byte, len(values)*f.ComponentSize())
	if err := f.Put(buf, values); err != nil {
		return nil, err
	}
	return buf, nil
}

// Put encodes values into dst, which must hold len(values) components.
func (f Format) Put(dst []byte, values []float64) error {
	size := f.ComponentSize()
	if len(dst) < len(values)*size {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, len(values)*size, len(dst))
	}
	for i, v := range values {
		if err := f.putComponent(dst[i*size:], v); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}

// intRange returns the inclusive bounds of a UINT or SINT component.
func (f Format) intRange() (lo, hi float64) {
	if f.Kind == UInt {
		return 0, float64(uint64(1)<<f.Bits - 1)
	}
	half := float64(uint64(1) << (f.Bits - 1))
	return -half, half - 1
}

func (f Format) putComponent(b []byte, v float64) error {
	switch f.Kind {
	case Float:
		if f.Bits == 32 {
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		} else {
			// Narrowed to float32 before rounding to half; float16 has no float64 entry point.
			binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
		}
	case UInt, SInt:
		lo, hi := f.intRange()
		if v != math.Trunc(v) || v < lo || v > hi {
			return fmt.Errorf("%w: %v as %s", ErrOutOfRange, v, f.Name)
		}
		f.putBits(b, uint64(int64(v)))
	case UNorm:
		m := f.normMax()
		f.putBits(b, uint64(clamp(math.RoundToEven(v*m), 0, m)))
	case SNorm:
		m := f.normMax()
		f.putBits(b, uint64(int64(clamp(math.RoundToEven(v*m), -m, m))))
	}
	return nil
}

// putBits stores the low f.Bits bits of u.
func (f Format) putBits(b []byte, u uint64) {
	switch f.Bits {
	case 32:
		binary.LittleEndian.PutUint32(b, uint32(u))
	case 16:
		binary.LittleEndian.PutUint16(b, uint16(u))
	case 8:
		b[0] = uint8(u)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Decode converts little-endian bytes into component values.
func (f Format) Decode(data []byte) ([]float64, error) {
	size := f.ComponentSize()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrShortBuffer, len(data), f.Name)
	}
	out := make([]float64, len(data)/size)
	for i := range out {
		out[i] = f.component(data[i*size:])
	}
	return out, nil
}

func (f Format) component(b []byte) float64 {
	switch f.Kind {
	case Float:
		if f.Bits == 32 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	case UInt:
		return float64(f.unsigned(b))
	case SInt:
		return float64(f.signed(b))
	case UNorm:
		return float64(f.unsigned(b)) / f.normMax()
	case SNorm:
		return float64(f.signed(b)) / f.normMax()
	}
	return 0
}

func (f Format) unsigned(b []byte) uint32 {
	switch f.Bits {
	case 32:
		return binary.LittleEndian.Uint32(b)
	case 16:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return uint32(b[0])
	}
}

func (f Format) signed(b []byte) int32 {
	switch f.Bits {
	case 32:
		return int32(binary.LittleEndian.Uint32(b))
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	default:
		return int32(int8(b[0]))
	}
}

// Encode parses id and encodes values with it.
func Encode(id string, values []float64) ([]byte, error) {
	f, err := Parse(id)
	if err != nil {
		return nil, err
	}
	return f.Encode(values)
}

// Decode parses id and decodes data with it.
func Decode(id string, data []byte) ([]float64, error) {
	f, err := Parse(id)
	if err != nil {
		return nil, err
	}
	return f.Decode(data)
}

// widthTokens returns the standalone numbers embedded in an identifier.
func widthTokens(id string) []int {
	var out []int
	for i := 0; i < len(id); {
		if id[i] < '0' || id[i] > '9' {
			i++
			continue
		}
		j := i
		for j < len(id) && id[j] >= '0' && id[j] <= '9' {
			j++
		}
		if n, err := strconv.Atoi(id[i:j]); err == nil {
			out = append(out, n)
		}
		i = j
	}
	return out
}

// ComponentCount returns the number of components named by id.
// Works for identifiers the codec cannot transcode, e.g. R10G10B10A2_UNORM.
func ComponentCount(id string) int {
	return len(widthTokens(id))
}

// ByteSize returns the summed component widths of id in bytes.
func ByteSize(id string) int {
	total := 0
	for _, w := range widthTokens(id) {
		total += w
	}
	return total / 8
}
