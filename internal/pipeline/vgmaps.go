package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// CollectVGMaps gathers the .vgmap files an export wrote beside vbPath
// into a set: <base>.vgmap under the empty suffix and <base>-<suffix>.vgmap
// under its suffix. The set can be fed back to Export or BatchExport.
func CollectVGMaps(vbPath string) (migoto.VGMapSet, error) {
	dir := filepath.Dir(vbPath)
	base := meshName(vbPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	set := make(migoto.VGMapSet)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".vgmap") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		var suffix string
		switch {
		case stem == base:
		case strings.HasPrefix(stem, base+"-") && len(stem) > len(base)+1:
			suffix = stem[len(base)+1:]
		default:
			continue
		}
		m, err := migoto.ReadVGMapFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		set[suffix] = m
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no .vgmap files for %s: %w", vbPath, ErrMissingBuffer)
	}
	return set, nil
}
