package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCostUSD(t *testing.T) {
	cost, ok := EstimateCostUSD("gpt-4o-mini", 1000, 2000)
	require.True(t, ok)
	assert.InDelta(t, 0.00015+0.0012, cost, 1e-9)

	_, ok = EstimateCostUSD("unknown-model", 1, 1)
	assert.False(t, ok)
}

func TestModelsFor(t *testing.T) {
	ollama := ModelsFor(ProviderOllama)
	require.NotEmpty(t, ollama)
	for _, m := range ollama {
		assert.Equal(t, ProviderOllama, m.Provider)
	}
	names := lo.Map(ollama, func(m ModelInfo, _ int) string { return m.Name })
	assert.IsNonDecreasing(t, names)

	assert.Len(t, ModelsFor(""), len(Catalog()))
}

func TestLoadAndMergeCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"my-local":{"Provider":"ollama","ContextTokens":2048}}`), 0o644))

	m, err := LoadCatalogFromJSON(path)
	require.NoError(t, err)
	require.Contains(t, m, "my-local")
	assert.Equal(t, "my-local", m["my-local"].Name)

	MergeCatalog(m)
	t.Cleanup(func() {
		catalogMu.Lock()
		delete(models, "my-local")
		catalogMu.Unlock()
	})
	mi, ok := LookupModel("my-local")
	require.True(t, ok)
	assert.Equal(t, 2048, mi.ContextTokens)
}

func TestLoadCatalogFromJSON_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[`), 0o644))
	_, err := LoadCatalogFromJSON(path)
	assert.Error(t, err)
}
