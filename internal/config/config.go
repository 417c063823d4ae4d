// Package config handles migototool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Import  ImportConfig  `yaml:"import"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds settings used when writing .vb/.ib/.fmt files.
type ExportConfig struct {
	SameVertexCount    bool `yaml:"same_vertex_count"`    // Canonicalize tangents so vertex counts match the capture
	PromoteIndexFormat bool `yaml:"promote_index_format"` // Always write R32_UINT indices
}

// ImportConfig holds settings used when reading dumps.
type ImportConfig struct {
	DropUnknownSemantics bool `yaml:"drop_unknown_semantics"`
}

// BatchConfig holds settings for batch export.
type BatchConfig struct {
	Workers int `yaml:"workers"` // Meshes exported in parallel
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Quiet      bool   `yaml:"quiet"` // No console output; the log file still receives entries
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			SameVertexCount:    false,
			PromoteIndexFormat: true,
		},
		Import: ImportConfig{
			DropUnknownSemantics: false,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
