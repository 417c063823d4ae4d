package migoto

import (
	"fmt"
	"strconv"
)

// BlendIndexMap maps original bone indices to their replacements.
type BlendIndexMap map[int]int

// ParseBlendIndexMap converts a map keyed by numeric strings, as found in
// vgmap files, into a BlendIndexMap.
func ParseBlendIndexMap(m map[string]int) (BlendIndexMap, error) {
	out := make(BlendIndexMap, len(m))
	for key, to := range m {
		from, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("blend index key %q is not an integer", key)
		}
		out[from] = to
	}
	return out, nil
}

// Lookup returns the replacement for idx, or idx itself when unmapped.
func (m BlendIndexMap) Lookup(idx int) int {
	if to, ok := m[idx]; ok {
		return to
	}
	return idx
}

// RemapVertex returns a copy of v with every BLENDINDICES* value replaced
// through m. Other attributes are shared with v; neither v nor m is modified.
func RemapVertex(v Vertex, m BlendIndexMap) Vertex {
	out := make(Vertex, len(v))
	for name, a := range v {
		if !isBlendIndices(name) {
			out[name] = a
			continue
		}
		remapped := make(Attribute, len(a))
		for i, idx := range a {
			remapped[i] = float64(m.Lookup(int(idx)))
		}
		out[name] = remapped
	}
	return out
}
