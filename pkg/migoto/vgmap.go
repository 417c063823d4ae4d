package migoto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/migoto-mesh/pkg/encoding"
)

// VGMapPair is one old to new blend index assignment.
type VGMapPair struct {
	Old, New int
}

// Pairs returns the assignments ordered by new index, then old index.
func (m BlendIndexMap) Pairs() []VGMapPair {
	pairs := make([]VGMapPair, 0, len(m))
	for from, to := range m {
		pairs = append(pairs, VGMapPair{from, to})
	}
	slices.SortFunc(pairs, func(a, b VGMapPair) int {
		if a.New != b.New {
			return a.New - b.New
		}
		return a.Old - b.Old
	})
	return pairs
}

// WriteVGMap writes m as a .vgmap JSON object keyed by the old index in
// string form, ordered by new index and indented by two spaces.
func WriteVGMap(w io.Writer, m BlendIndexMap) error {
	var b bytes.Buffer
	pairs := m.Pairs()
	if len(pairs) == 0 {
		b.WriteString("{}")
	} else {
		b.WriteString("{\n")
		for i, p := range pairs {
			fmt.Fprintf(&b, "  %q: %d", strconv.Itoa(p.Old), p.New)
			if i < len(pairs)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("}")
	}
	_, err := w.Write(b.Bytes())
	return err
}

// WriteVGMapFile writes m to path.
func WriteVGMapFile(path string, m BlendIndexMap) error {
	var b bytes.Buffer
	if err := WriteVGMap(&b, m); err != nil {
		return err
	}
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing vgmap: %w", err)
	}
	return nil
}

// ReadVGMap parses a .vgmap JSON object. A leading BOM is accepted.
func ReadVGMap(r io.Reader) (BlendIndexMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading vgmap: %w", err)
	}
	var raw map[string]int
	if err := json.Unmarshal([]byte(encoding.DecodeText(data)), &raw); err != nil {
		return nil, fmt.Errorf("decoding vgmap: %w", err)
	}
	return ParseBlendIndexMap(raw)
}

// ReadVGMapFile reads a .vgmap file.
func ReadVGMapFile(path string) (BlendIndexMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vgmap: %w", err)
	}
	defer f.Close()
	return ReadVGMap(f)
}

// VGMapSet holds one blend index map per output suffix. The empty suffix
// replaces the default export.
type VGMapSet map[string]BlendIndexMap

// Suffixes returns the set's suffixes in sorted order.
func (s VGMapSet) Suffixes() []string {
	out := make([]string, 0, len(s))
	for suffix := range s {
		out = append(out, suffix)
	}
	slices.Sort(out)
	return out
}

// ReadVGMapSet parses a YAML document mapping suffixes to vgmaps:
//
//	"": {0: 0, 1: 1}
//	head: {"12": 0, "13": 1}
func ReadVGMapSet(r io.Reader) (VGMapSet, error) {
	var raw map[string]map[string]int
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return VGMapSet{}, nil
		}
		return nil, fmt.Errorf("decoding vgmap set: %w", err)
	}
	set := make(VGMapSet, len(raw))
	for suffix, m := range raw {
		parsed, err := ParseBlendIndexMap(m)
		if err != nil {
			return nil, fmt.Errorf("vgmap %q: %w", suffix, err)
		}
		set[suffix] = parsed
	}
	return set, nil
}

// ReadVGMapSetFile reads a vgmap set from a YAML file.
func ReadVGMapSetFile(path string) (VGMapSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vgmap set: %w", err)
	}
	defer f.Close()
	return ReadVGMapSet(f)
}

// WriteVGMapSet writes s as YAML, suffixes sorted, old indices as keys.
func WriteVGMapSet(w io.Writer, s VGMapSet) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, suffix := range s.Suffixes() {
		m := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		for _, p := range s[suffix].Pairs() {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: strconv.Itoa(p.Old), Style: yaml.DoubleQuotedStyle},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(p.New)},
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: suffix, Style: yaml.DoubleQuotedStyle},
			m,
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding vgmap set: %w", err)
	}
	return enc.Close()
}

// WriteVGMapSetFile writes s to path as YAML.
func WriteVGMapSetFile(path string, s VGMapSet) error {
	var b bytes.Buffer
	if err := WriteVGMapSet(&b, s); err != nil {
		return err
	}
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing vgmap set: %w", err)
	}
	return nil
}
