package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneta-hq/moneta/internal/embedding"
	"github.com/moneta-hq/moneta/internal/engine"
)

func TestImportDir(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "coffee.md"),
		[]byte("---\ntags: [coffee]\n---\nA 1:2 espresso ratio works for medium roasts."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.md"), []byte("---\ntags: [x]\n---\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not markdown"), 0o644))

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "dog.md"),
		[]byte("My dog is named Max"), 0o644))

	eng, err := engine.NewMemoryEngine(embedding.NewDeterministicProvider(256), nil, engine.DefaultConfig())
	require.NoError(t, err)

	result, err := New(eng).ImportDir(t.Context(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, eng.Count())

	found := false
	for _, mem := range eng.List() {
		if mem.Content == "My dog is named Max" {
			found = true
		}
	}
	assert.True(t, found, "nested note should be imported")
}

func TestImportDir_MissingRoot(t *testing.T) {
	eng, err := engine.NewMemoryEngine(embedding.NewDeterministicProvider(64), nil, engine.DefaultConfig())
	require.NoError(t, err)

	_, err = New(eng).ImportDir(t.Context(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
