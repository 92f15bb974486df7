// Package config loads vectordb's layered configuration: hardcoded
// defaults, an optional user config (~/.config/vectordb/config.yaml), an
// optional project config (.vectordb.yaml or .vectordb.yml in the given
// directory; parent directories are not searched), and VECTORDB_*
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vectordb/vectordb/internal/entity"
)

// Config is the complete vectordb configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (default, offline) or
	// "remote" (calls Host over HTTP).
	Provider   string        `yaml:"provider"`
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
}

// IndexConfig holds the default index family and per-kind build parameters
// used when a library doesn't specify its own.
type IndexConfig struct {
	DefaultKind entity.IndexKind  `yaml:"default_kind"`
	HNSW        entity.HNSWParams `yaml:"hnsw"`
	LSH         entity.LSHParams  `yaml:"lsh"`
}

// StorageConfig configures snapshot persistence.
type StorageConfig struct {
	// Path is the snapshot file location.
	Path string `yaml:"path"`
	// Format is "text" (YAML) or "binary" (gob).
	Format string `yaml:"format"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Host:       "http://localhost:11434",
			Model:      "static-v1",
			Dimensions: 256,
			Timeout:    30 * time.Second,
			CacheSize:  1000,
		},
		Index: IndexConfig{
			DefaultKind: entity.IndexBruteForce,
			HNSW:        entity.DefaultHNSWParams(),
			LSH:         entity.DefaultLSHParams(),
		},
		Storage: StorageConfig{
			Path:   defaultSnapshotPath(),
			Format: "binary",
		},
		Logging: LoggingConfig{
			Level:         "info",
			FilePath:      defaultLogPath(),
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".vectordb")
	}
	return filepath.Join(home, ".vectordb")
}

func defaultSnapshotPath() string {
	return filepath.Join(defaultDataDir(), "snapshot.gob")
}

func defaultLogPath() string {
	return filepath.Join(defaultDataDir(), "logs", "server.log")
}

// GetUserConfigPath returns the user/global config file path, honoring
// XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vectordb", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "vectordb", "config.yaml")
	}
	return filepath.Join(home, ".config", "vectordb", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user config file.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file path under dir, trying
// .vectordb.yaml then .vectordb.yml.
func ProjectConfigPath(dir string) (string, bool) {
	yamlPath := filepath.Join(dir, ".vectordb.yaml")
	if fileExists(yamlPath) {
		return yamlPath, true
	}
	ymlPath := filepath.Join(dir, ".vectordb.yml")
	if fileExists(ymlPath) {
		return ymlPath, true
	}
	return yamlPath, false
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// project config file, falling back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if _, ok := ProjectConfigPath(dir); ok {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

// Load builds the effective configuration for dir: defaults, then user
// config, then project config, then environment variables, validated at
// the end.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if path, ok := ProjectConfigPath(dir); ok {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("load project config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUserConfig loads the user config file directly, or returns (nil, nil)
// if it doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Host != "" {
		c.Embeddings.Host = other.Embeddings.Host
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Index.DefaultKind != "" {
		c.Index.DefaultKind = other.Index.DefaultKind
	}
	if other.Index.HNSW.M != 0 {
		c.Index.HNSW.M = other.Index.HNSW.M
	}
	if other.Index.HNSW.EfConstruction != 0 {
		c.Index.HNSW.EfConstruction = other.Index.HNSW.EfConstruction
	}
	if other.Index.HNSW.EfSearch != 0 {
		c.Index.HNSW.EfSearch = other.Index.HNSW.EfSearch
	}
	if other.Index.HNSW.Seed != 0 {
		c.Index.HNSW.Seed = other.Index.HNSW.Seed
	}
	if other.Index.LSH.L != 0 {
		c.Index.LSH.L = other.Index.LSH.L
	}
	if other.Index.LSH.K != 0 {
		c.Index.LSH.K = other.Index.LSH.K
	}
	if other.Index.LSH.Seed != 0 {
		c.Index.LSH.Seed = other.Index.LSH.Seed
	}
	if other.Index.LSH.MultiProbe != 0 {
		c.Index.LSH.MultiProbe = other.Index.LSH.MultiProbe
	}

	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.Format != "" {
		c.Storage.Format = other.Storage.Format
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies VECTORDB_* environment variables, highest
// precedence.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VECTORDB_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("VECTORDB_EMBEDDINGS_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("VECTORDB_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("VECTORDB_INDEX_DEFAULT_KIND"); v != "" {
		c.Index.DefaultKind = entity.IndexKind(strings.ToUpper(v))
	}
	if v := os.Getenv("VECTORDB_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("VECTORDB_STORAGE_FORMAT"); v != "" {
		c.Storage.Format = v
	}
	if v := os.Getenv("VECTORDB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VECTORDB_HNSW_EF_SEARCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.HNSW.EfSearch = n
		}
	}
}

// Validate reports whether the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Embeddings.Provider {
	case "static", "remote":
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'remote', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}

	switch c.Index.DefaultKind {
	case entity.IndexBruteForce, entity.IndexHNSW, entity.IndexLSH:
	default:
		return fmt.Errorf("index.default_kind must be BRUTE_FORCE, HNSW, or LSH, got %q", c.Index.DefaultKind)
	}

	switch c.Storage.Format {
	case "text", "binary":
	default:
		return fmt.Errorf("storage.format must be 'text' or 'binary', got %q", c.Storage.Format)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes c to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
