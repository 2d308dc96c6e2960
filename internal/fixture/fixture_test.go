package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollang/rolloader/internal/asm"
)

func TestLoadEmptyValueType(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "empty.yaml")

	content := `
assemblies:
  - name: Core
    types:
      - name: Empty
        storage: value
    export_types:
      - name: Empty
        id: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	catalog, err := Load(path)
	require.NoError(t, err)

	core := catalog.Find("Core")
	require.NotNil(t, core, "assembly Core not found")
	require.Len(t, core.Types, 1)
	assert.Equal(t, "Empty", core.Types[0].Name)
	assert.Equal(t, asm.Value, core.Types[0].GCMode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/fixture.yaml")
	assert.Error(t, err)
}

func TestParseRefKindUnknown(t *testing.T) {
	_, err := parseRefKind("bogus")
	assert.Error(t, err)
}

func TestReferenceTypeWithSelfField(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "selfref.yaml")

	// A Reference-storage type with one field pointing back at itself
	// (REF_SELF) — legal because Reference fields only need a stable
	// pointer, not a known size, at the point the field is laid out.
	content := `
assemblies:
  - name: Core
    types:
      - name: Node
        storage: reference
        generic:
          types:
            - kind: self
        fields: [0]
    export_types:
      - name: Node
        id: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	catalog, err := Load(path)
	require.NoError(t, err)

	core := catalog.Find("Core")
	require.NotNil(t, core)
	assert.Equal(t, asm.Reference, core.Types[0].GCMode)
	require.Len(t, core.Types[0].Generic.Types, 1)
	assert.Equal(t, asm.RefSelf, core.Types[0].Generic.Types[0].Kind)
}
