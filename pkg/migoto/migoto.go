// Package migoto provides readers and writers for 3DMigoto vertex and index
// buffers, their input layout descriptors and vertex group maps.
package migoto

import "errors"

// Buffer and layout errors.
var (
	ErrTruncatedBuffer     = errors.New("truncated buffer")
	ErrIncompatibleLayout  = errors.New("incompatible layout")
	ErrMissingSemantic     = errors.New("vertex is missing a semantic declared by the layout")
	ErrInvalidDimension    = errors.New("invalid attribute dimension")
	ErrAmbiguousAlias      = errors.New("POSITION aliases an earlier element")
	ErrInvalidLayout       = errors.New("invalid input layout")
	ErrUnsupportedTopology = errors.New("unsupported topology")
	ErrInvalidIndex        = errors.New("index out of range")
	ErrRemapPending        = errors.New("blend indices are already remapped")
)

// TopologyTriangleList is the only primitive topology supported.
const TopologyTriangleList = "trianglelist"

// Semantic names with special handling.
const (
	SemanticPosition     = "POSITION"
	SemanticNormal       = "NORMAL"
	SemanticTangent      = "TANGENT"
	SemanticBlendIndices = "BLENDINDICES"
	SemanticBlendWeight  = "BLENDWEIGHT"
	SemanticColor        = "COLOR"
	SemanticTexcoord     = "TEXCOORD"
)
