// migototool is a CLI utility for 3DMigoto vertex and index buffers: it
// inspects frame analysis dumps and exported meshes, converts dumps to
// .vb/.ib/.fmt sets, reindexes and remaps blend indices.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/migoto-mesh/internal/config"
	"github.com/Faultbox/migoto-mesh/internal/logger"
	"github.com/Faultbox/migoto-mesh/internal/pipeline"
	"github.com/Faultbox/migoto-mesh/pkg/encoding"
	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, logFileConfig(cfg.Logging), !cfg.Logging.Quiet); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	t := &tool{
		cfg: cfg,
		p:   pipeline.New(pipeline.OptionsFromConfig(cfg, logger.Named("pipeline"))),
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		err = t.cmdInfo(args)
	case "dump":
		err = t.cmdDump(args)
	case "convert", "c":
		err = t.cmdConvert(args)
	case "reindex":
		err = t.cmdReindex(args)
	case "remap":
		err = t.cmdRemap(args)
	case "batch":
		err = t.cmdBatch(args)
	case "stats":
		err = t.cmdStats(args)
	case "vgmaps":
		err = t.cmdVGMaps(args)
	case "config":
		err = t.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Debug("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`migototool - 3DMigoto vertex and index buffer utility

Usage:
  migototool [global options] <command> [options] <args>

Global options:
  -config <file>        Config file (default ./migoto.yaml or user config dir)
  -debug                Debug logging
  -quiet                No log output on the console
  -workers <n>          Meshes exported in parallel by batch
  -same-vertex-count    Canonicalize tangents when reindexing
  -keep-index-format    Do not promote 16 bit index buffers to R32_UINT
  -drop-unknown         Drop dump semantics missing from the layout

Commands:
  info <file>                        Show layout and buffer information
  dump <file>                        Print decoded vertices and faces
  convert <dump.txt|file.vb> <out.vb>
                                     Write a .vb/.ib/.fmt set
  reindex <file.vb> <out.vb>         Drop duplicate and unused vertices
  remap <file.vb> <map> <out.vb>     Remap blend indices (.vgmap or .yaml set)
  batch <input_dir> <output_dir>     Convert every .vb/.ib/.fmt set in a folder
  stats <file>                       Show counts, bounds and dedup statistics
  vgmaps <file.vb> <set.yaml>        Collect exported .vgmap files into a set
  config [-o file] [-user]           Write the current configuration

Commands that write a .vb refuse to replace their input unless -force is given.

Inputs may be frame analysis dumps (*-vb0=*.txt, *-ib=*.txt) or exported
.vb/.ib files. Exported buffers without a .fmt need -ref <file.fmt|dump.txt>.

Examples:
  migototool info 000123-vb0=8a2f11c0-vs=d1c0-ps=77a1.txt
  migototool convert -related 000123-vb0=8a2f11c0-vs=d1c0-ps=77a1.txt out/body.vb
  migototool -same-vertex-count reindex out/body.vb out/body-clean.vb
  migototool remap -suffix head out/body.vb head.vgmap mod/body.vb
  migototool -workers 8 batch ./exported ./mod`)
}

// logFileConfig maps the logging section onto rotation settings.
func logFileConfig(c config.LoggingConfig) logger.FileConfig {
	return logger.FileConfig{
		Path:       c.LogFile,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}.WithDefaults()
}

// tool carries the loaded configuration into the commands.
type tool struct {
	cfg *config.Config
	p   *pipeline.Pipeline
}

// sourceFlags are the input options shared by commands that load a mesh.
type sourceFlags struct {
	ref     *string
	related *bool
}

func addSourceFlags(fs *flag.FlagSet) sourceFlags {
	return sourceFlags{
		ref:     fs.String("ref", "", "Reference .fmt or dump .txt for buffers without a .fmt"),
		related: fs.Bool("related", false, "Merge every draw call of the same mesh (dumps only)"),
	}
}

// loadMesh loads a frame analysis dump or an exported buffer set.
func (t *tool) loadMesh(path string, sf sourceFlags) (*pipeline.Mesh, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return t.loadDump(path, *sf.related)
	}

	mesh, session, err := t.p.ImportRaw(path)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return mesh, nil
	}
	if *sf.ref == "" {
		session.Close()
		return nil, fmt.Errorf("%s has no .fmt beside it, pass -ref with a .fmt or frame analysis dump", path)
	}
	return session.Complete(*sf.ref)
}

func (t *tool) loadDump(path string, related bool) (*pipeline.Mesh, error) {
	dir, name := filepath.Dir(path), filepath.Base(path)
	names := []string{name}
	if related {
		var err error
		if names, err = pipeline.RelatedDumps(dir, name); err != nil {
			return nil, err
		}
	}

	var calls []pipeline.DrawCall
	seen := make(map[string]bool)
	for _, n := range names {
		dc, err := t.p.FindDrawCall(dir, n)
		if err != nil {
			return nil, err
		}
		if seen[dc.VB] {
			continue
		}
		seen[dc.VB] = true
		calls = append(calls, dc)
	}
	return t.p.LoadDrawCalls(calls)
}

func (t *tool) cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	sf := addSourceFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: migototool info [-ref file] <file>")
	}
	path := fs.Arg(0)

	if strings.EqualFold(filepath.Ext(path), ".fmt") {
		d, err := migoto.ReadDescriptorFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Descriptor: %s\n", path)
		fmt.Printf("Stride:     %d\n", d.Layout.Stride)
		fmt.Printf("Topology:   %s\n", d.Topology)
		if d.IndexFormat != "" {
			fmt.Printf("Indices:    %s\n", d.IndexFormat)
		}
		printLayout(d.Layout)
		return nil
	}

	mesh, err := t.loadMesh(path, sf)
	if err != nil {
		return err
	}
	fmt.Printf("Mesh:       %s\n", mesh.Name)
	fmt.Printf("Stride:     %d\n", mesh.VB.Layout.Stride)
	fmt.Printf("Topology:   %s\n", mesh.VB.Topology)
	fmt.Printf("Vertices:   %d (first %d)\n", mesh.VB.Len(), mesh.VB.First)
	if mesh.IB != nil {
		fmt.Printf("Faces:      %d (first index %d, %s)\n", mesh.IB.Len(), mesh.IB.First, mesh.IB.Format)
	}
	printLayout(mesh.VB.Layout)
	return nil
}

func printLayout(l *migoto.InputLayout) {
	fmt.Println()
	fmt.Println("Elements:")
	for _, e := range l.Elements() {
		note := ""
		if !e.PerVertex() {
			note = " (per-instance)"
		} else if l.IsAlias(e) {
			owner, _ := l.Owner(e.InputSlot, e.AlignedByteOffset)
			note = " (alias of " + owner.Name() + ")"
		}
		fmt.Printf("  %-14s %-22s slot %d  offset %3d%s\n",
			e.Name(), e.Format, e.InputSlot, e.AlignedByteOffset, note)
	}
}

func (t *tool) cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	sf := addSourceFlags(fs)
	limit := fs.Int("n", 0, "Limit output to N vertices (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: migototool dump [-n N] [-ref file] <file>")
	}

	mesh, err := t.loadMesh(fs.Arg(0), sf)
	if err != nil {
		return err
	}
	elems, err := mesh.VB.Layout.VertexElements()
	if err != nil {
		return err
	}

	fmt.Println("vertex-data:")
	for i, v := range mesh.VB.Vertices {
		if *limit > 0 && i >= *limit {
			fmt.Fprintf(os.Stderr, "\n(showing first %d vertices, use -n 0 for all)\n", *limit)
			break
		}
		fmt.Println()
		for _, e := range elems {
			a, ok := v[e.Name()]
			if !ok {
				continue
			}
			fmt.Printf("vb%d[%d]+%03d %s: %s\n", e.InputSlot, i, e.AlignedByteOffset, e.Name(), formatAttribute(a))
		}
	}

	if mesh.IB != nil {
		fmt.Println()
		fmt.Println("index-data:")
		fmt.Println()
		for i, f := range mesh.IB.Faces {
			if *limit > 0 && i >= *limit {
				break
			}
			fmt.Printf("%d %d %d\n", f[0], f[1], f[2])
		}
	}
	return nil
}

// formatAttribute renders values the way frame analysis dumps do.
func formatAttribute(a migoto.Attribute) string {
	parts := make([]string, len(a))
	for i, x := range a {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func (t *tool) cmdConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	sf := addSourceFlags(fs)
	reindex := fs.Bool("reindex", false, "Rebuild buffers through deduplication")
	vgmaps := fs.String("vgmaps", "", "YAML file of vertex group maps, one per output suffix")
	wipe := fs.String("wipe", "", "Overwrite a semantic before writing, e.g. POSITION.w=1 (diagnostics)")
	force := fs.Bool("force", false, "Allow replacing the input buffers")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: migototool convert [-related] [-ref file] [-reindex] [-vgmaps set.yaml] [-force] <input> <out.vb>")
	}
	if err := checkOutput(fs.Arg(0), fs.Arg(1), *force); err != nil {
		return err
	}

	mesh, err := t.loadMesh(fs.Arg(0), sf)
	if err != nil {
		return err
	}
	if *wipe != "" {
		selector, value, err := parseWipe(*wipe)
		if err != nil {
			return err
		}
		if err := mesh.VB.WipeSemanticForTesting(selector, value); err != nil {
			return err
		}
	}

	req := pipeline.ExportRequest{Mesh: mesh, VBPath: fs.Arg(1), Reindex: *reindex}
	if *vgmaps != "" {
		if req.VGMaps, err = migoto.ReadVGMapSetFile(*vgmaps); err != nil {
			return err
		}
	}
	return t.export(req)
}

// parseWipe splits "SELECTOR=VALUE".
func parseWipe(s string) (string, float64, error) {
	selector, value, ok := strings.Cut(s, "=")
	if !ok || selector == "" {
		return "", 0, fmt.Errorf("wipe %q: want SELECTOR=VALUE", s)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", 0, fmt.Errorf("wipe %q: %w", s, err)
	}
	return selector, v, nil
}

func (t *tool) export(req pipeline.ExportRequest) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := t.p.Export(ctx, req)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Printf("Wrote: %s\n", f)
	}
	if res.Stats != nil {
		printDedupStats(*res.Stats)
	}
	return nil
}

func printDedupStats(s migoto.DedupStats) {
	fmt.Printf("Corners:    %d\n", s.Corners)
	fmt.Printf("Unique:     %d\n", s.Unique)
	fmt.Printf("Faces:      %d\n", s.Faces)
	if s.TangentsRewritten > 0 {
		fmt.Printf("Tangents:   %d rewritten\n", s.TangentsRewritten)
	}
}

func (t *tool) cmdReindex(args []string) error {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	sf := addSourceFlags(fs)
	force := fs.Bool("force", false, "Allow replacing the input buffers")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: migototool reindex [-ref file] [-force] <file.vb> <out.vb>")
	}
	in, out := fs.Arg(0), fs.Arg(1)
	if err := checkOutput(in, out, *force); err != nil {
		return err
	}

	mesh, err := t.loadMesh(in, sf)
	if err != nil {
		return err
	}
	return t.export(pipeline.ExportRequest{Mesh: mesh, VBPath: out, Reindex: true})
}

func (t *tool) cmdRemap(args []string) error {
	fs := flag.NewFlagSet("remap", flag.ExitOnError)
	sf := addSourceFlags(fs)
	suffix := fs.String("suffix", "", "Output suffix for a single .vgmap (empty replaces the main .vb)")
	force := fs.Bool("force", false, "Allow replacing the input buffers")
	fs.Parse(args)

	if fs.NArg() < 3 {
		return fmt.Errorf("usage: migototool remap [-suffix name] [-ref file] [-force] <file.vb> <map.vgmap|set.yaml> <out.vb>")
	}
	in, mapPath, out := fs.Arg(0), fs.Arg(1), fs.Arg(2)
	if err := checkOutput(in, out, *force); err != nil {
		return err
	}

	set, err := loadVGMaps(mapPath, *suffix)
	if err != nil {
		return err
	}
	mesh, err := t.loadMesh(in, sf)
	if err != nil {
		return err
	}
	return t.export(pipeline.ExportRequest{Mesh: mesh, VBPath: out, VGMaps: set})
}

// loadVGMaps reads a YAML set, or a single .vgmap placed under suffix.
func loadVGMaps(path, suffix string) (migoto.VGMapSet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return migoto.ReadVGMapSetFile(path)
	default:
		m, err := migoto.ReadVGMapFile(path)
		if err != nil {
			return nil, err
		}
		return migoto.VGMapSet{suffix: m}, nil
	}
}

func withVB(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".vb"
}

// checkOutput refuses an output .vb that would replace the input buffers.
// Paths are compared case-insensitively since dumps come from Windows.
func checkOutput(in, out string, force bool) error {
	if force {
		return nil
	}
	inAbs, err := filepath.Abs(withVB(in))
	if err != nil {
		return err
	}
	outAbs, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	if encoding.NormalizePath(inAbs) == encoding.NormalizePath(outAbs) {
		return fmt.Errorf("%s would replace the input, pick another output or pass -force", out)
	}
	return nil
}

func (t *tool) cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	reindex := fs.Bool("reindex", false, "Rebuild buffers through deduplication")
	vgmaps := fs.String("vgmaps", "", "YAML file of vertex group maps applied to every mesh")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: migototool batch [-reindex] [-vgmaps set.yaml] <input_dir> <output_dir>")
	}
	inDir, outDir := fs.Arg(0), fs.Arg(1)

	var set migoto.VGMapSet
	if *vgmaps != "" {
		var err error
		if set, err = migoto.ReadVGMapSetFile(*vgmaps); err != nil {
			return err
		}
	}

	sources, err := pipeline.ScanOutputFolder(inDir)
	if err != nil {
		return err
	}
	var jobs []pipeline.BatchJob
	for _, src := range sources {
		if src.Fmt == "" {
			fmt.Fprintf(os.Stderr, "Skipping %s: no .fmt file\n", src.Name)
			continue
		}
		jobs = append(jobs, pipeline.BatchJob{Source: src, OutDir: outDir, VGMaps: set, Reindex: *reindex})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no .vb/.ib/.fmt sets found in %s", inDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.Default(int64(len(jobs)), "exporting")
	results, err := t.p.BatchExport(ctx, jobs, t.cfg.Batch.Workers, bar)
	bar.Close()
	if err != nil {
		return err
	}

	files := 0
	for _, res := range results {
		files += len(res.Files)
	}
	fmt.Fprintf(os.Stderr, "\nExported %d meshes (%d files) to %s\n", len(results), files, outDir)
	return nil
}

func (t *tool) cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	sf := addSourceFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: migototool stats [-related] [-ref file] <file>")
	}

	mesh, err := t.loadMesh(fs.Arg(0), sf)
	if err != nil {
		return err
	}

	fmt.Printf("Mesh:       %s\n", mesh.Name)
	fmt.Printf("Vertices:   %d\n", mesh.VB.Len())
	if mesh.IB != nil {
		fmt.Printf("Faces:      %d\n", mesh.IB.Len())
		fmt.Printf("Max index:  %d\n", mesh.IB.MaxIndex())
	}

	bounds, err := mesh.VB.Bounds()
	switch {
	case err != nil:
		fmt.Printf("Bounds:     unavailable (%v)\n", err)
	case bounds.Empty():
		fmt.Println("Bounds:     empty")
	default:
		size, center := bounds.Size(), bounds.Center()
		fmt.Printf("Bounds:     min (%g, %g, %g) max (%g, %g, %g)\n",
			bounds.Min.X, bounds.Min.Y, bounds.Min.Z, bounds.Max.X, bounds.Max.Y, bounds.Max.Z)
		fmt.Printf("Size:       %g x %g x %g, center (%g, %g, %g)\n",
			size.X, size.Y, size.Z, center.X, center.Y, center.Z)
		fmt.Printf("Diagonal:   %g\n", size.Length())
	}
	if mesh.IB != nil && err == nil {
		degenerate, err := migoto.DegenerateFaces(mesh.VB, mesh.IB)
		if err != nil {
			return err
		}
		fmt.Printf("Degenerate: %d faces\n", degenerate)
	}

	fmt.Println()
	fmt.Println("After reindex:")
	_, stats, err := t.p.Reindex(mesh)
	if err != nil {
		return err
	}
	printDedupStats(stats)
	return nil
}

func (t *tool) cmdVGMaps(args []string) error {
	fs := flag.NewFlagSet("vgmaps", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: migototool vgmaps <file.vb> <set.yaml>")
	}
	set, err := pipeline.CollectVGMaps(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := migoto.WriteVGMapSetFile(fs.Arg(1), set); err != nil {
		return err
	}
	for _, suffix := range set.Suffixes() {
		name := suffix
		if name == "" {
			name = "(main)"
		}
		fmt.Printf("%-12s %d groups\n", name, len(set[suffix]))
	}
	fmt.Printf("Wrote: %s\n", fs.Arg(1))
	return nil
}

func (t *tool) cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", config.LocalFile, "Output file")
	user := fs.Bool("user", false, "Write to the user config directory instead")
	force := fs.Bool("force", false, "Replace an existing file")
	fs.Parse(args)

	path := *out
	if *user {
		path = config.UserConfigPath()
	}
	if err := t.cfg.SaveTo(path, *force); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s\n", path)
	return nil
}
