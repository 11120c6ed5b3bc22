package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings are the CLI-level defaults loaded from a YAML file, typically
// veritrail.yaml next to the database. Flags override file values.
type Settings struct {
	// Database is the path to the ledger database file.
	Database string `yaml:"database"`

	// Policy is the path to the CUE policy file. Empty uses DefaultPolicy.
	Policy string `yaml:"policy"`

	// KeyFile is the path to the signing key used by submit.
	KeyFile string `yaml:"key_file"`

	// Format is the default output format: "text" or "json".
	Format string `yaml:"format"`
}

// DefaultSettings returns the built-in CLI defaults.
func DefaultSettings() Settings {
	return Settings{
		Database: "veritrail.db",
		Format:   "text",
	}
}

// LoadSettings reads a YAML settings file. A missing file is not an error;
// it yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}

	if s.Format != "text" && s.Format != "json" {
		return Settings{}, fmt.Errorf("settings %s: format must be \"text\" or \"json\", got %q", path, s.Format)
	}

	return s, nil
}
