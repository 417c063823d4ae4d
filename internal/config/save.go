package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File names searched by Load.
const (
	LocalFile = "migoto.yaml"
	UserFile  = "config.yaml"
)

// ErrConfigExists is returned when a save would replace an existing file.
var ErrConfigExists = errors.New("config file already exists")

// UserConfigPath returns the per-user config file Load falls back to.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), UserFile)
}

// Save writes the config to UserConfigPath.
func (c *Config) Save(overwrite bool) (string, error) {
	path := UserConfigPath()
	return path, c.SaveTo(path, overwrite)
}

// SaveTo writes the config as YAML to path, creating its directory.
// An existing file is only replaced when overwrite is set.
func (c *Config) SaveTo(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
