package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the ragchat service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Completion CompletionConfig `yaml:"completion"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Memory     MemoryConfig     `yaml:"memory"`
	FollowUp   FollowUpConfig   `yaml:"followup"`
	Assistants AssistantsConfig `yaml:"assistants"`
	Budget     BudgetConfig     `yaml:"budget"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. An empty list disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	DocPrefix string `yaml:"doc_prefix"`
}

// IndexConfig holds the document index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	CreateIfMissing bool   `yaml:"create_if_missing"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ProviderConfig holds the settings of an OpenAI-compatible API.
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// CompletionConfig holds chat completion settings.
type CompletionConfig struct {
	ProviderConfig `yaml:",inline"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	ProviderConfig   `yaml:",inline"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours"` // 0 = keep forever
}

// RetrievalConfig holds hybrid retrieval settings.
type RetrievalConfig struct {
	LexicalK         int             `yaml:"lexical_k"`
	SemanticK        int             `yaml:"semantic_k"`
	ScoreThreshold   *float64        `yaml:"score_threshold"`
	LexicalWeight    float64         `yaml:"lexical_weight"`
	SemanticWeight   float64         `yaml:"semantic_weight"`
	RRFConstant      float64         `yaml:"rrf_constant"`
	MaxCorpus        int             `yaml:"max_corpus"`
	MaxContextTokens int             `yaml:"max_context_tokens"` // 0 = unlimited
	TokenEncoding    string          `yaml:"token_encoding"`
	Expansion        ExpansionConfig `yaml:"expansion"`
}

// ExpansionConfig holds multi-query expansion settings.
type ExpansionConfig struct {
	Enabled         *bool `yaml:"enabled"`
	Queries         int   `yaml:"queries"`
	IncludeOriginal bool  `yaml:"include_original"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	MaxTurns         int `yaml:"max_turns"`
	TTLHours         int `yaml:"ttl_hours"`          // 0 = no expiry
	PurgeIntervalMin int `yaml:"purge_interval_min"` // 0 = disabled
}

// FollowUpConfig holds follow-up generation settings.
type FollowUpConfig struct {
	MaxQuestions int   `yaml:"max_questions"`
	Structured   *bool `yaml:"structured"`
}

// AssistantsConfig holds the assistant directory settings.
type AssistantsConfig struct {
	Endpoint   string `yaml:"endpoint"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Attempts   uint   `yaml:"attempts"`
	DelayMs    int    `yaml:"delay_ms"`
}

// BudgetConfig holds completion token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in raw YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultQueryInstruction is the bge retrieval query prefix.
const DefaultQueryInstruction = "Represent this sentence for searching relevant passages: "

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = 620
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = c.HTTP.RequestTimeoutSec + 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragchat:"
	}
	if c.Storage.DocPrefix == "" {
		c.Storage.DocPrefix = c.Storage.KeyPrefix + "doc:"
	}
	if c.Index.Name == "" {
		c.Index.Name = c.Storage.KeyPrefix + "docs"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 600
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.QueryInstruction == "" {
		c.Embedding.QueryInstruction = DefaultQueryInstruction
	}
	if c.Retrieval.LexicalK <= 0 {
		c.Retrieval.LexicalK = 3
	}
	if c.Retrieval.SemanticK <= 0 {
		c.Retrieval.SemanticK = 4
	}
	if c.Retrieval.ScoreThreshold == nil {
		c.Retrieval.ScoreThreshold = ptr(0.25)
	}
	if c.Retrieval.LexicalWeight == 0 && c.Retrieval.SemanticWeight == 0 {
		c.Retrieval.LexicalWeight = 0.3
		c.Retrieval.SemanticWeight = 0.7
	}
	if c.Retrieval.RRFConstant <= 0 {
		c.Retrieval.RRFConstant = 60
	}
	if c.Retrieval.MaxCorpus <= 0 {
		c.Retrieval.MaxCorpus = 10000
	}
	if c.Retrieval.TokenEncoding == "" {
		c.Retrieval.TokenEncoding = "cl100k_base"
	}
	if c.Retrieval.Expansion.Enabled == nil {
		c.Retrieval.Expansion.Enabled = ptr(true)
	}
	if c.Retrieval.Expansion.Queries <= 0 {
		c.Retrieval.Expansion.Queries = 3
	}
	if c.Memory.MaxTurns <= 0 {
		c.Memory.MaxTurns = 4
	}
	if c.FollowUp.MaxQuestions <= 0 {
		c.FollowUp.MaxQuestions = 5
	}
	if c.FollowUp.Structured == nil {
		c.FollowUp.Structured = ptr(true)
	}
	if c.Assistants.TimeoutSec <= 0 {
		c.Assistants.TimeoutSec = 10
	}
	if c.Assistants.Attempts == 0 {
		c.Assistants.Attempts = 3
	}
	if c.Assistants.DelayMs <= 0 {
		c.Assistants.DelayMs = 200
	}
	if c.Budget.Action == "" {
		c.Budget.Action = "warn"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if c.Completion.Model == "" {
		return errors.New("completion.model is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Assistants.Endpoint == "" {
		return errors.New("assistants.endpoint is required")
	}
	if t := *c.Retrieval.ScoreThreshold; t < 0 || t > 1 {
		return fmt.Errorf("retrieval.score_threshold must be within [0, 1], got %g", t)
	}
	if c.Retrieval.LexicalWeight < 0 || c.Retrieval.SemanticWeight < 0 {
		return errors.New("retrieval weights must not be negative")
	}
	if c.Memory.MaxTurns < 2 {
		return fmt.Errorf("memory.max_turns must be at least 2, got %d", c.Memory.MaxTurns)
	}
	switch c.Budget.Action {
	case "warn", "reject":
		// ok
	default:
		return fmt.Errorf("budget.action must be \"warn\" or \"reject\", got %q", c.Budget.Action)
	}
	return nil
}

// CompletionTimeout returns the per-call completion deadline.
func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.Completion.TimeoutSec) * time.Second
}

// RequestTimeout returns the whole-request deadline of the chat endpoint.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSec) * time.Second
}

// MemoryTTL returns the session expiry, zero when sessions never expire.
func (c *Config) MemoryTTL() time.Duration {
	return time.Duration(c.Memory.TTLHours) * time.Hour
}

// PurgeInterval returns the orphan purge period, zero when disabled.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Memory.PurgeIntervalMin) * time.Minute
}

func ptr[T any](v T) *T { return &v }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
