package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
"Manfred Weber":
  politician_id: "78973"
  party_id: "3"
  party: "CSU"
"Max Lokalpolitiker":
  party: "Freie Wähler"
`), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, 2, o.Len())

	id, ok := o.Lookup("Manfred Weber")
	require.True(t, ok)
	assert.Equal(t, "78973", id.PoliticianID)
	assert.Equal(t, "CSU", id.Party)
}

func TestLoadOverrides_MissingFileIsEmpty(t *testing.T) {
	o, err := LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, o.Len())
}

func TestLoadOverrides_EmptyPathIsEmpty(t *testing.T) {
	o, err := LoadOverrides("")
	require.NoError(t, err)
	assert.Equal(t, 0, o.Len())
}

func TestLoadOverrides_BadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin: [unclosed"), 0o644))

	_, err := LoadOverrides(path)
	require.Error(t, err)
}
