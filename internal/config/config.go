// Package config loads Criterion configuration from layered sources.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

// File names looked up in the project directory.
const (
	ProjectConfigFile    = ".criterion.yaml"
	ProjectConfigFileAlt = ".criterion.yml"
)

// Config is the complete Criterion configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Embedder EmbedderConfig `yaml:"embedder" json:"embedder"`
	Vector   VectorConfig   `yaml:"vector" json:"vector"`
	Keyword  KeywordConfig  `yaml:"keyword" json:"keyword"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	// DataDir holds the corpus database, indexes and the ingestion lock.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// Database is the corpus database file name, relative to DataDir
	// unless absolute.
	Database string `yaml:"database" json:"database"`
}

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	APIKey     string        `yaml:"api_key,omitempty" json:"-"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// VectorConfig configures the vector index backend.
type VectorConfig struct {
	Backend          string `yaml:"backend" json:"backend"`
	HNSWM            int    `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch     int    `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
	QdrantHost       string `yaml:"qdrant_host" json:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port" json:"qdrant_port"`
	QdrantAPIKey     string `yaml:"qdrant_api_key,omitempty" json:"-"`
	QdrantTLS        bool   `yaml:"qdrant_tls" json:"qdrant_tls"`
	CollectionPrefix string `yaml:"collection_prefix" json:"collection_prefix"`
}

// KeywordConfig configures the keyword index backend.
type KeywordConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	// BlevePath is the bleve index directory, relative to DataDir unless
	// absolute.
	BlevePath string `yaml:"bleve_path" json:"bleve_path"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	MinSimilarity         float64 `yaml:"min_similarity" json:"min_similarity"`
	DefaultVerseLimit     int     `yaml:"default_verse_limit" json:"default_verse_limit"`
	MaxVerseLimit         int     `yaml:"max_verse_limit" json:"max_verse_limit"`
	DefaultNarrationLimit int     `yaml:"default_narration_limit" json:"default_narration_limit"`
	MaxNarrationLimit     int     `yaml:"max_narration_limit" json:"max_narration_limit"`
	// ToolContextWindow is used by the MCP tools.
	ToolContextWindow int `yaml:"tool_context_window" json:"tool_context_window"`
	// BrowseContextWindow is used by the HTTP API and CLI.
	BrowseContextWindow    int           `yaml:"browse_context_window" json:"browse_context_window"`
	ReferenceContextWindow int           `yaml:"reference_context_window" json:"reference_context_window"`
	ContextTopN            int           `yaml:"context_top_n" json:"context_top_n"`
	RRFConstant            int           `yaml:"rrf_constant" json:"rrf_constant"`
	Timeout                time.Duration `yaml:"timeout" json:"timeout"`
}

// ServerConfig configures the MCP and HTTP surfaces.
type ServerConfig struct {
	HTTPAddr     string `yaml:"http_addr" json:"http_addr"`
	MCPTransport string `yaml:"mcp_transport" json:"mcp_transport"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:  DefaultDataDir(),
			Database: "corpus.db",
		},
		Embedder: EmbedderConfig{
			Provider:   "gemini",
			Model:      "text-embedding-004",
			Dimensions: 768,
			BatchSize:  100,
			CacheSize:  1000,
			Timeout:    30 * time.Second,
		},
		Vector: VectorConfig{
			Backend:          "exact",
			HNSWM:            16,
			HNSWEfSearch:     64,
			QdrantHost:       "localhost",
			QdrantPort:       6334,
			CollectionPrefix: "criterion",
		},
		Keyword: KeywordConfig{
			Backend:   "sqlite",
			BlevePath: "narrations.bleve",
		},
		Search: SearchConfig{
			MinSimilarity:          0.3,
			DefaultVerseLimit:      20,
			MaxVerseLimit:          25,
			DefaultNarrationLimit:  5,
			MaxNarrationLimit:      20,
			ToolContextWindow:      2,
			BrowseContextWindow:    5,
			ReferenceContextWindow: 5,
			ContextTopN:            3,
			RRFConstant:            60,
			Timeout:                30 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			MCPTransport: "stdio",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns ~/.criterion, or a temp-dir fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".criterion")
	}
	return filepath.Join(home, ".criterion")
}

// DatabasePath resolves the corpus database path.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Paths.Database)
}

// BlevePath resolves the bleve index directory.
func (c *Config) BlevePath() string {
	return c.resolve(c.Keyword.BlevePath)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.DataDir, p)
}

// GetUserConfigPath returns $XDG_CONFIG_HOME/criterion/config.yaml, or
// ~/.config/criterion/config.yaml when XDG_CONFIG_HOME is unset.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "criterion", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "criterion", "config.yaml")
	}
	return filepath.Join(home, ".config", "criterion", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user config.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Sources, lowest precedence first:
//  1. defaults
//  2. user config (GetUserConfigPath)
//  3. project config (.criterion.yaml or .criterion.yml in dir)
//  4. .env.local and .env in dir (never overriding the real environment)
//  5. CRITERION_* and provider API key environment variables
func Load(dir string) (*Config, error) {
	if dir != "" && !dirExists(dir) {
		return nil, cerrors.Newf(cerrors.ErrCodeConfigNotFound, "config directory %s does not exist", dir).
			WithSuggestion("Pass an existing directory to --config-dir")
	}

	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, cerrors.New(cerrors.ErrCodeConfigInvalid, "failed to load user config: "+err.Error(), err)
		}
	}

	if err := cfg.loadProjectFile(dir); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConfigInvalid, err)
	}

	if err := LoadEnvFiles(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeConfigInvalid, "invalid configuration: "+err.Error(), err).
			WithSuggestion("Check .criterion.yaml, the user config and CRITERION_* variables; run 'criterion config path' to locate the user config")
	}
	return cfg, nil
}

// LoadEnvFiles loads .env.local then .env from dir. Variables already in
// the environment win, so .env.local takes precedence over .env.
func LoadEnvFiles(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) loadProjectFile(dir string) error {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path on top of the current values. Keys absent from the
// file keep their current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Unparseable
// numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	setString("CRITERION_DATA_DIR", &c.Paths.DataDir)
	setString("CRITERION_DATABASE", &c.Paths.Database)

	setString("CRITERION_EMBEDDER", &c.Embedder.Provider)
	setString("CRITERION_EMBEDDER_MODEL", &c.Embedder.Model)
	setInt("CRITERION_EMBEDDER_DIMENSIONS", &c.Embedder.Dimensions)
	setInt("CRITERION_EMBEDDER_BATCH_SIZE", &c.Embedder.BatchSize)
	setInt("CRITERION_EMBEDDER_CACHE_SIZE", &c.Embedder.CacheSize)

	setString("CRITERION_VECTOR_BACKEND", &c.Vector.Backend)
	setString("CRITERION_QDRANT_HOST", &c.Vector.QdrantHost)
	setInt("CRITERION_QDRANT_PORT", &c.Vector.QdrantPort)
	setString("CRITERION_QDRANT_API_KEY", &c.Vector.QdrantAPIKey)
	if v := os.Getenv("CRITERION_QDRANT_TLS"); v != "" {
		c.Vector.QdrantTLS = strings.EqualFold(v, "true") || v == "1"
	}

	setString("CRITERION_KEYWORD_BACKEND", &c.Keyword.Backend)

	if v := os.Getenv("CRITERION_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Search.MinSimilarity = f
		}
	}
	if v := os.Getenv("CRITERION_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			c.Search.Timeout = d
		}
	}

	setString("CRITERION_HTTP_ADDR", &c.Server.HTTPAddr)
	setString("CRITERION_LOG_LEVEL", &c.Logging.Level)

	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = apiKeyFromEnv(c.Embedder.Provider)
	}
}

// apiKeyFromEnv returns the provider's API key from its conventional
// environment variables.
func apiKeyFromEnv(provider string) string {
	var keys []string
	switch strings.ToLower(provider) {
	case "gemini":
		keys = []string{"GOOGLE_GENERATIVE_AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "openai":
		keys = []string{"OPENAI_API_KEY"}
	}
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if c.Paths.Database == "" {
		return fmt.Errorf("paths.database must not be empty")
	}

	if !oneOf(c.Embedder.Provider, "gemini", "openai", "static") {
		return fmt.Errorf("embedder.provider must be 'gemini', 'openai' or 'static', got %q", c.Embedder.Provider)
	}
	if c.Embedder.Dimensions <= 0 {
		return fmt.Errorf("embedder.dimensions must be positive, got %d", c.Embedder.Dimensions)
	}
	if c.Embedder.BatchSize <= 0 || c.Embedder.BatchSize > 250 {
		return fmt.Errorf("embedder.batch_size must be between 1 and 250, got %d", c.Embedder.BatchSize)
	}
	if c.Embedder.CacheSize < 0 {
		return fmt.Errorf("embedder.cache_size must be non-negative, got %d", c.Embedder.CacheSize)
	}

	if !oneOf(c.Vector.Backend, "exact", "hnsw", "qdrant") {
		return fmt.Errorf("vector.backend must be 'exact', 'hnsw' or 'qdrant', got %q", c.Vector.Backend)
	}
	if c.Vector.Backend == "qdrant" && (c.Vector.QdrantHost == "" || c.Vector.QdrantPort <= 0) {
		return fmt.Errorf("vector.qdrant_host and vector.qdrant_port are required for the qdrant backend")
	}
	if !oneOf(c.Keyword.Backend, "sqlite", "bleve") {
		return fmt.Errorf("keyword.backend must be 'sqlite' or 'bleve', got %q", c.Keyword.Backend)
	}

	s := c.Search
	if s.MinSimilarity < 0.3 || s.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be between 0.3 and 1, got %.2f", s.MinSimilarity)
	}
	if s.MaxVerseLimit < 1 || s.DefaultVerseLimit < 1 || s.DefaultVerseLimit > s.MaxVerseLimit {
		return fmt.Errorf("search verse limits must satisfy 1 <= default (%d) <= max (%d)", s.DefaultVerseLimit, s.MaxVerseLimit)
	}
	if s.MaxNarrationLimit < 1 || s.DefaultNarrationLimit < 1 || s.DefaultNarrationLimit > s.MaxNarrationLimit {
		return fmt.Errorf("search narration limits must satisfy 1 <= default (%d) <= max (%d)", s.DefaultNarrationLimit, s.MaxNarrationLimit)
	}
	if s.ToolContextWindow < 0 || s.BrowseContextWindow < 0 || s.ReferenceContextWindow < 0 {
		return fmt.Errorf("search context windows must be non-negative")
	}
	if s.ContextTopN < 0 {
		return fmt.Errorf("search.context_top_n must be non-negative, got %d", s.ContextTopN)
	}
	if s.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", s.RRFConstant)
	}

	if !oneOf(c.Server.MCPTransport, "stdio") {
		return fmt.Errorf("server.mcp_transport must be 'stdio', got %q", c.Server.MCPTransport)
	}
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got %q", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
