package config

import "flag"

var (
	flagConfig          = flag.String("config", "", "Path to config file")
	flagDebug           = flag.Bool("debug", false, "Enable debug logging")
	flagQuiet           = flag.Bool("quiet", false, "No log output on the console")
	flagWorkers         = flag.Int("workers", 0, "Meshes exported in parallel by batch")
	flagSameVertexCount = flag.Bool("same-vertex-count", false, "Canonicalize tangents to keep the captured vertex count")
	flagKeepIndexFormat = flag.Bool("keep-index-format", false, "Write 16 bit index buffers as 16 bit")
	flagDropUnknown     = flag.Bool("drop-unknown", false, "Drop vertex-data semantics missing from the layout")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after the global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagQuiet {
		cfg.Logging.Quiet = true
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
	if *flagSameVertexCount {
		cfg.Export.SameVertexCount = true
	}
	if *flagKeepIndexFormat {
		cfg.Export.PromoteIndexFormat = false
	}
	if *flagDropUnknown {
		cfg.Import.DropUnknownSemantics = true
	}
}
