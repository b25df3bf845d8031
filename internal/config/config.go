package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	appName          = "promptd"
	defaultPort      = 8765
	defaultDataDir   = "./data"
	defaultOllamaURL = "http://localhost:11434"
)

// OllamaConfig holds connection settings for the LM backend
type OllamaConfig struct {
	URL              string `json:"url" mapstructure:"url"`
	HeadersTimeoutMs int    `json:"headersTimeoutMs" mapstructure:"headersTimeoutMs"`
	BodyTimeoutMs    int    `json:"bodyTimeoutMs" mapstructure:"bodyTimeoutMs"`
	KeepAlive        string `json:"keepAlive" mapstructure:"keepAlive"`
}

// SearchConfig selects and configures the web search engine
type SearchConfig struct {
	API        string `json:"api" mapstructure:"api"` // "serpapi", "searxng", "duckduckgo"
	APIKey     string `json:"apiKey" mapstructure:"apiKey"`
	SearXNGURL string `json:"searxngUrl" mapstructure:"searxngUrl"`
}

// MediaConfig configures the image generator and video renderer
type MediaConfig struct {
	A1111URL   string `json:"a1111Url" mapstructure:"a1111Url"`
	FFmpegPath string `json:"ffmpegPath" mapstructure:"ffmpegPath"`
}

// ToolsConfig configures the sandboxed tool subsystem
type ToolsConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	SafeMode     bool   `json:"safeMode" mapstructure:"safeMode"`
	PythonPath   string `json:"pythonPath" mapstructure:"pythonPath"`
	NodePath     string `json:"nodePath" mapstructure:"nodePath"`
	SQLStorePath string `json:"sqlStorePath" mapstructure:"sqlStorePath"`
	MaxInputLen  int    `json:"maxInputLen" mapstructure:"maxInputLen"`
}

// ModelsConfig maps routing roles to backend model names
type ModelsConfig struct {
	Chat      string `json:"chat" mapstructure:"chat"`
	Reasoning string `json:"reasoning" mapstructure:"reasoning"`
	Coder     string `json:"coder" mapstructure:"coder"`
	Fast      string `json:"fast" mapstructure:"fast"`
	Vision    string `json:"vision" mapstructure:"vision"`
	Embedding string `json:"embedding" mapstructure:"embedding"`
	Reranker  string `json:"reranker" mapstructure:"reranker"`
	Planner   string `json:"planner" mapstructure:"planner"`
}

// LimitsConfig holds cache and memory bounds
type LimitsConfig struct {
	CacheMaxEntries   int           `json:"cacheMaxEntries" mapstructure:"cacheMaxEntries"`
	CacheTTL          time.Duration `json:"cacheTTL" mapstructure:"cacheTTL"`
	CacheFastTTL      time.Duration `json:"cacheFastTTL" mapstructure:"cacheFastTTL"`
	SemanticThreshold float64       `json:"semanticThreshold" mapstructure:"semanticThreshold"`
	MemoryMaxEntries  int           `json:"memoryMaxEntries" mapstructure:"memoryMaxEntries"`
	MemoryTTL         time.Duration `json:"memoryTTL" mapstructure:"memoryTTL"`
	AttemptTimeout    time.Duration `json:"attemptTimeout" mapstructure:"attemptTimeout"`
}

// Config is the main configuration structure for the application.
// It is read-only after Load returns.
type Config struct {
	// GrammarAid rewrites short, messy prompts through the small model
	// before assembly.
	GrammarAid bool `json:"grammarAid" mapstructure:"grammarAid"`

	Port    int          `json:"port" mapstructure:"port"`
	BaseURL string       `json:"baseUrl" mapstructure:"baseUrl"`
	DataDir string       `json:"dataDir" mapstructure:"dataDir"`
	Debug   bool         `json:"debug" mapstructure:"debug"`
	Ollama  OllamaConfig `json:"ollama" mapstructure:"ollama"`
	Search  SearchConfig `json:"search" mapstructure:"search"`
	Media   MediaConfig  `json:"media" mapstructure:"media"`
	Tools   ToolsConfig  `json:"tools" mapstructure:"tools"`
	Models  ModelsConfig `json:"models" mapstructure:"models"`
	Limits  LimitsConfig `json:"limits" mapstructure:"limits"`
}

// Load reads configuration from file and environment variables
func Load(configPath string, debug bool) (*Config, error) {
	v := viper.New()
	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/" + appName)
	}

	setDefaults(v, debug)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	cfg.DataDir = abs

	if err := os.MkdirAll(cfg.OutputsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// setDefaults configures default values for configuration options
func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("grammarAid", false)
	v.SetDefault("port", defaultPort)
	v.SetDefault("baseUrl", "")
	v.SetDefault("dataDir", defaultDataDir)
	v.SetDefault("debug", debug)

	v.SetDefault("ollama.url", defaultOllamaURL)
	v.SetDefault("ollama.headersTimeoutMs", 30000)
	v.SetDefault("ollama.bodyTimeoutMs", 300000)
	v.SetDefault("ollama.keepAlive", "5m")

	v.SetDefault("search.api", "duckduckgo")
	v.SetDefault("search.searxngUrl", "")

	v.SetDefault("media.a1111Url", "")
	v.SetDefault("media.ffmpegPath", "ffmpeg")

	v.SetDefault("tools.enabled", true)
	v.SetDefault("tools.safeMode", true)
	v.SetDefault("tools.pythonPath", "python3")
	v.SetDefault("tools.nodePath", "node")
	v.SetDefault("tools.sqlStorePath", "")
	v.SetDefault("tools.maxInputLen", 12000)

	v.SetDefault("models.chat", "qwen2.5:14b")
	v.SetDefault("models.reasoning", "deepseek-r1:14b")
	v.SetDefault("models.coder", "qwen2.5-coder:7b")
	v.SetDefault("models.fast", "llama3.2:3b")
	v.SetDefault("models.vision", "llava:7b")
	v.SetDefault("models.embedding", "nomic-embed-text")
	v.SetDefault("models.reranker", "llama3.2:3b")
	v.SetDefault("models.planner", "llama3.2:3b")

	v.SetDefault("limits.cacheMaxEntries", 500)
	v.SetDefault("limits.cacheTTL", 12*time.Hour)
	v.SetDefault("limits.cacheFastTTL", 7*24*time.Hour)
	v.SetDefault("limits.semanticThreshold", 0.92)
	v.SetDefault("limits.memoryMaxEntries", 500)
	v.SetDefault("limits.memoryTTL", 30*24*time.Hour)
	v.SetDefault("limits.attemptTimeout", 120*time.Second)
}

// bindEnv maps the documented environment variables onto config keys
func bindEnv(v *viper.Viper) {
	v.BindEnv("port", "PORT")
	v.BindEnv("baseUrl", "BASE_URL")
	v.BindEnv("ollama.url", "OLLAMA_URL")
	v.BindEnv("ollama.headersTimeoutMs", "OLLAMA_HEADERS_TIMEOUT_MS")
	v.BindEnv("ollama.bodyTimeoutMs", "OLLAMA_BODY_TIMEOUT_MS")
	v.BindEnv("ollama.keepAlive", "OLLAMA_KEEP_ALIVE")
	v.BindEnv("search.api", "SEARCH_API")
	v.BindEnv("search.apiKey", "SEARCH_API_KEY")
	v.BindEnv("search.searxngUrl", "SEARXNG_URL")
	v.BindEnv("media.a1111Url", "A1111_URL")
	v.BindEnv("media.ffmpegPath", "FFMPEG_PATH")
}

// MemoryPath returns the path of the conversation memory store
func (c *Config) MemoryPath() string { return filepath.Join(c.DataDir, "memory.json") }

// CachePath returns the path of the response cache store
func (c *Config) CachePath() string { return filepath.Join(c.DataDir, "response_cache.json") }

// EmbeddingsPath returns the path of the embedding index store
func (c *Config) EmbeddingsPath() string { return filepath.Join(c.DataDir, "embeddings.json") }

// DocIndexPath returns the path of the keyword document index store
func (c *Config) DocIndexPath() string { return filepath.Join(c.DataDir, "doc_index.json") }

// OutputsDir returns the directory for generated media artifacts
func (c *Config) OutputsDir() string { return filepath.Join(c.DataDir, "outputs") }

// LogPath returns the path of the process log file
func (c *Config) LogPath() string { return filepath.Join(c.DataDir, appName+".log") }

// AttemptTimeout returns the per-attempt deadline for a model.
// The reasoning model streams without a deadline.
func (c *Config) AttemptTimeout(model string) time.Duration {
	if model == c.Models.Reasoning {
		return 0
	}
	return c.Limits.AttemptTimeout
}
