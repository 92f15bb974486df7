package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectordb/vectordb/internal/entity"
)

func TestNewConfig_PassesValidation(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesProjectConfigOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "no-user-config"))

	projectYAML := `
embeddings:
  provider: remote
  dimensions: 512
index:
  default_kind: HNSW
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vectordb.yaml"), []byte(projectYAML), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Embeddings.Provider)
	assert.Equal(t, 512, cfg.Embeddings.Dimensions)
	assert.Equal(t, entity.IndexHNSW, cfg.Index.DefaultKind)
	// untouched defaults survive the merge
	assert.Equal(t, entity.DefaultHNSWParams().EfConstruction, cfg.Index.HNSW.EfConstruction)
}

func TestLoad_EnvOverridesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "no-user-config"))
	t.Setenv("VECTORDB_EMBEDDINGS_PROVIDER", "static")

	projectYAML := "embeddings:\n  provider: remote\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vectordb.yaml"), []byte(projectYAML), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_RejectsInvalidIndexKind(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "no-user-config"))

	projectYAML := "index:\n  default_kind: BOGUS\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vectordb.yaml"), []byte(projectYAML), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestFindProjectRoot_WalksUpToGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Embeddings.Model = "custom-model"
	require.NoError(t, cfg.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, "custom-model", loaded.Embeddings.Model)
}

func TestGetUserConfigPath_HonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	assert.Equal(t, "/tmp/xdgtest/vectordb/config.yaml", GetUserConfigPath())
}
