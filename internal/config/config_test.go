package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test export defaults
	if cfg.Export.SameVertexCount {
		t.Error("expected same_vertex_count to be false by default")
	}
	if !cfg.Export.PromoteIndexFormat {
		t.Error("expected promote_index_format to be true by default")
	}

	// Test import defaults
	if cfg.Import.DropUnknownSemantics {
		t.Error("expected drop_unknown_semantics to be false by default")
	}

	// Test batch defaults
	if cfg.Batch.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Batch.Workers)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  same_vertex_count: true
  promote_index_format: false

import:
  drop_unknown_semantics: true

batch:
  workers: 12

logging:
  level: "debug"
  log_file: "migoto.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if !cfg.Export.SameVertexCount {
		t.Error("expected same_vertex_count to be true")
	}
	if cfg.Export.PromoteIndexFormat {
		t.Error("expected promote_index_format to be false")
	}
	if !cfg.Import.DropUnknownSemantics {
		t.Error("expected drop_unknown_semantics to be true")
	}
	if cfg.Batch.Workers != 12 {
		t.Errorf("expected 12 workers, got %d", cfg.Batch.Workers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "migoto.log" {
		t.Errorf("expected log file 'migoto.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("batch:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Batch.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Batch.Workers)
	}
	// Sections missing from the file keep their defaults
	if !cfg.Export.PromoteIndexFormat {
		t.Error("expected promote_index_format default to survive a partial file")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
batch:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Keep the user's real config dir out of the search
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create migoto.yaml in current directory
	configPath := filepath.Join(tmpDir, "migoto.yaml")
	if err := os.WriteFile(configPath, []byte("batch:\n  workers: 8\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find migoto.yaml in current directory")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Batch.Workers = 3
	cfg.Export.SameVertexCount = true
	if err := cfg.SaveTo(path, false); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Batch.Workers != 3 || !loaded.Export.SameVertexCount {
		t.Errorf("saved config did not reload: %+v", loaded)
	}

	// Existing files are kept unless overwrite is set
	cfg.Batch.Workers = 9
	if err := cfg.SaveTo(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("expected ErrConfigExists, got %v", err)
	}
	if err := cfg.SaveTo(path, true); err != nil {
		t.Fatalf("SaveTo with overwrite failed: %v", err)
	}
	loaded = Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatal(err)
	}
	if loaded.Batch.Workers != 9 {
		t.Errorf("overwrite did not replace the file, workers = %d", loaded.Batch.Workers)
	}
}

func TestSave_FoundByLoad(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("user config dir ignores XDG_CONFIG_HOME here")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(t.TempDir())

	cfg := Default()
	cfg.Batch.Workers = 6
	path, err := cfg.Save(false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != UserConfigPath() {
		t.Errorf("Save wrote %s, want %s", path, UserConfigPath())
	}
	if found := findConfigFile(); found != path {
		t.Errorf("findConfigFile = %q, want %q", found, path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config) error
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				return nil
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "quiet flag",
			setup: func() {
				*flagQuiet = true
			},
			verify: func(cfg *Config) error {
				if !cfg.Logging.Quiet {
					t.Error("expected quiet logging")
				}
				return nil
			},
			teardown: func() {
				*flagQuiet = false
			},
		},
		{
			name: "workers flag",
			setup: func() {
				*flagWorkers = 16
			},
			verify: func(cfg *Config) error {
				if cfg.Batch.Workers != 16 {
					t.Errorf("expected 16 workers, got %d", cfg.Batch.Workers)
				}
				return nil
			},
			teardown: func() {
				*flagWorkers = 0
			},
		},
		{
			name: "same vertex count flag",
			setup: func() {
				*flagSameVertexCount = true
			},
			verify: func(cfg *Config) error {
				if !cfg.Export.SameVertexCount {
					t.Error("expected same_vertex_count to be enabled")
				}
				return nil
			},
			teardown: func() {
				*flagSameVertexCount = false
			},
		},
		{
			name: "keep index format flag",
			setup: func() {
				*flagKeepIndexFormat = true
			},
			verify: func(cfg *Config) error {
				if cfg.Export.PromoteIndexFormat {
					t.Error("expected promote_index_format to be disabled")
				}
				return nil
			},
			teardown: func() {
				*flagKeepIndexFormat = false
			},
		},
		{
			name: "drop unknown flag",
			setup: func() {
				*flagDropUnknown = true
			},
			verify: func(cfg *Config) error {
				if !cfg.Import.DropUnknownSemantics {
					t.Error("expected drop_unknown_semantics to be enabled")
				}
				return nil
			},
			teardown: func() {
				*flagDropUnknown = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  same_vertex_count: true
batch:
  workers: 6
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWorkers = 10
	defer func() {
		*flagConfig = ""
		*flagWorkers = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Workers should be from flag (10), not file (6)
	if cfg.Batch.Workers != 10 {
		t.Errorf("expected 10 workers from flag, got %d", cfg.Batch.Workers)
	}

	// same_vertex_count should be from file since no flag override
	if !cfg.Export.SameVertexCount {
		t.Error("expected same_vertex_count from file")
	}
}

func TestLoadClampsWorkers(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("batch:\n  workers: -3\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Batch.Workers != 1 {
		t.Errorf("expected workers clamped to 1, got %d", cfg.Batch.Workers)
	}
}
