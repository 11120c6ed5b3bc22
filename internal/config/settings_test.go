package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileYieldsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettings_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veritrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: /var/lib/veritrail/ledger.db
policy: policy.cue
key_file: solver.key
format: json
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/veritrail/ledger.db", s.Database)
	assert.Equal(t, "policy.cue", s.Policy)
	assert.Equal(t, "solver.key", s.KeyFile)
	assert.Equal(t, "json", s.Format)
}

func TestLoadSettings_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veritrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database: other.db`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", s.Database)
	assert.Equal(t, "text", s.Format)
}

func TestLoadSettings_RejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veritrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`format: xml`), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettings_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veritrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\tdatabase: [broken"), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}
