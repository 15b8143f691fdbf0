package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aha_collector/internal/domain"
)

type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Reddit     SourceConfig     `yaml:"reddit"`
	HackerNews SourceConfig     `yaml:"hackernews"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Render     RenderConfig     `yaml:"render"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Server     ServerConfig     `yaml:"server"`
	Sync       SyncConfig       `yaml:"sync"`
	LogLevel   string           `yaml:"log_level"`
}

const (
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	Backend    string         `yaml:"backend"`
	DataDir    string         `yaml:"data_dir"`
	SQLitePath string         `yaml:"sqlite_path"`
	Database   DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// SourceConfig configures one content platform.
type SourceConfig struct {
	Enabled         *bool         `yaml:"enabled"`
	BaseURL         string        `yaml:"base_url"`
	PageSize        int           `yaml:"page_size"`
	MaxPages        int           `yaml:"max_pages"`
	Timeout         time.Duration `yaml:"timeout"`
	RequestInterval time.Duration `yaml:"request_interval"`
	UserAgent       string        `yaml:"user_agent"`
	Queries         []string      `yaml:"queries"`
	Subreddits      []string      `yaml:"subreddits"`
	Retry           RetryConfig   `yaml:"retry"`
}

func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type FetchConfig struct {
	BodyLimit            int           `yaml:"body_limit"`
	ExtractLinkedContent bool          `yaml:"extract_linked_content"`
	ExtractTimeout       time.Duration `yaml:"extract_timeout"`
}

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type ClassifierConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxTokens        int           `yaml:"max_tokens"`
	RequestInterval  time.Duration `yaml:"request_interval"`
	RetryAPIFailures *bool         `yaml:"retry_api_failures"`
	Retry            RetryConfig   `yaml:"retry"`
}

func (c ClassifierConfig) ShouldRetryAPIFailures() bool {
	return c.RetryAPIFailures == nil || *c.RetryAPIFailures
}

type RenderConfig struct {
	OutputPath string `yaml:"output_path"`
	Title      string `yaml:"title"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// Load reads the YAML file at path, expanding ${VAR} references from the
// environment and an optional .env file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate checks what the classifier needs. Fetch and render never touch the credential.
func (c *Config) Validate() error {
	switch c.Classifier.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown classifier provider %q", domain.ErrConfig, c.Classifier.Provider)
	}
	if strings.TrimSpace(c.Classifier.APIKey) == "" {
		return fmt.Errorf("%w: %s is not set", domain.ErrConfig, apiKeyEnv(c.Classifier.Provider))
	}
	return c.ValidateStorage()
}

// ValidateStorage checks only the storage section, for commands that never classify.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case BackendJSONL, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfig, c.Storage.Backend)
	}
	return nil
}

func apiKeyEnv(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

func (c *Config) setDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendJSONL
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = c.Storage.DataDir + "/aha.db"
	}
	if c.Storage.Database.Port == 0 {
		c.Storage.Database.Port = 5432
	}
	if c.Storage.Database.SSLMode == "" {
		c.Storage.Database.SSLMode = "disable"
	}

	setSourceDefaults(&c.Reddit, "https://www.reddit.com", 2*time.Second)
	if len(c.Reddit.Queries) == 0 {
		c.Reddit.Queries = []string{"aha moment AI", "finally clicked AI", "mind blown ChatGPT", "mind blown Claude", "game changer AI"}
	}
	if len(c.Reddit.Subreddits) == 0 {
		c.Reddit.Subreddits = []string{"ChatGPT", "ClaudeAI", "LocalLLaMA", "artificial", "MachineLearning"}
	}

	setSourceDefaults(&c.HackerNews, "https://hn.algolia.com/api/v1", time.Second)
	if len(c.HackerNews.Queries) == 0 {
		c.HackerNews.Queries = []string{"aha moment AI", "LLM changed", "Claude AI", "ChatGPT workflow"}
	}

	if c.Fetch.BodyLimit == 0 {
		c.Fetch.BodyLimit = 2000
	}
	if c.Fetch.ExtractTimeout == 0 {
		c.Fetch.ExtractTimeout = 15 * time.Second
	}

	if c.Classifier.Provider == "" {
		c.Classifier.Provider = ProviderAnthropic
	}
	if c.Classifier.APIKey == "" {
		c.Classifier.APIKey = os.Getenv(apiKeyEnv(c.Classifier.Provider))
	}
	if c.Classifier.Model == "" {
		if c.Classifier.Provider == ProviderGemini {
			c.Classifier.Model = "gemini-2.5-flash"
		} else {
			c.Classifier.Model = "claude-sonnet-4-20250514"
		}
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 60 * time.Second
	}
	if c.Classifier.MaxTokens == 0 {
		c.Classifier.MaxTokens = 1024
	}
	if c.Classifier.RequestInterval == 0 {
		c.Classifier.RequestInterval = 500 * time.Millisecond
	}
	setRetryDefaults(&c.Classifier.Retry)

	if c.Render.OutputPath == "" {
		c.Render.OutputPath = "index.html"
	}
	if c.Render.Title == "" {
		c.Render.Title = "Aha-ggregator"
	}

	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "aha_collector"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "moments"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "published_moments"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 24 * time.Hour
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 30 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func setSourceDefaults(s *SourceConfig, baseURL string, interval time.Duration) {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.PageSize == 0 {
		s.PageSize = 50
	}
	if s.MaxPages == 0 {
		s.MaxPages = 2
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.RequestInterval == 0 {
		s.RequestInterval = interval
	}
	if s.UserAgent == "" {
		s.UserAgent = "AhaCollector/1.0 (Growth Research Tool)"
	}
	setRetryDefaults(&s.Retry)
}

func setRetryDefaults(r *RetryConfig) {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 1 * time.Second
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 30 * time.Second
	}
}
