package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"threadgenius/internal/model"
)

// Config is the application's configuration model.
// It captures the model provider, generation defaults, personas, feeds, and publishing strategy.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Personas   []model.Persona  `yaml:"personas" validate:"dive"`
	Feeds      []string         `yaml:"feeds" validate:"dive,url"`
	Threads    ThreadsConfig    `yaml:"threads"`
	Publishing PublishingConfig `yaml:"publishing"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

type LLMConfig struct {
	Provider string `yaml:"provider" validate:"oneof=openai anthropic ollama gemini"`
	Model    string `yaml:"model" validate:"required"`
	// If empty, read from the provider's env var (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY)
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`

	DraftTemperature   float32 `yaml:"draftTemperature" validate:"gte=0,lte=2"`
	RewriteTemperature float32 `yaml:"rewriteTemperature" validate:"gte=0,lte=2"`
	DraftMaxTokens     int     `yaml:"draftMaxTokens" validate:"gte=0"`
	RewriteMaxTokens   int     `yaml:"rewriteMaxTokens" validate:"gte=0"`

	// Bound on a single outbound call, retries included
	CallTimeout time.Duration `yaml:"callTimeout"`
	MaxRetries  int           `yaml:"maxRetries" validate:"gte=0,lte=10"`
	RPS         float64       `yaml:"rps" validate:"gte=0"`
	Burst       int           `yaml:"burst" validate:"gte=0"`
}

const (
	ModeStandard = "standard"
	ModeShort    = "short"
)

type GenerationConfig struct {
	Count          int    `yaml:"count" validate:"gte=1,lte=20"`
	CalmPriority   bool   `yaml:"calmPriority"`
	ForcedTopicTag string `yaml:"forcedTopicTag"`
	// standard caps posts at 500 characters, short at 220
	Mode        string `yaml:"mode" validate:"oneof=standard short"`
	Concurrency int    `yaml:"concurrency" validate:"gte=0"`
}

// MaxChars is the post length cap for the configured mode.
func (g GenerationConfig) MaxChars() int {
	if g.Mode == ModeShort {
		return model.MaxCharsShort
	}
	return model.MaxCharsStandard
}

type ThreadsConfig struct {
	AppID       string `yaml:"appId"`
	AppSecret   string `yaml:"appSecret"`
	RedirectURI string `yaml:"redirectURI" validate:"omitempty,url"`
	// If empty, read from env THREADS_ACCESS_TOKEN
	AccessToken string `yaml:"accessToken"`
	UserID      string `yaml:"userId"`
}

type PublishingConfig struct {
	// Max posts per hour and per day
	MaxPerHour int `yaml:"maxPerHour" validate:"gte=0"`
	MaxPerDay  int `yaml:"maxPerDay" validate:"gte=0"`
	// Quiet hours (UTC) when nothing is published
	QuietHours []int `yaml:"quietHours" validate:"dive,gte=0,lte=23"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath" validate:"required"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:           "anthropic",
			Model:              "claude-sonnet-4-20250514",
			DraftTemperature:   0.7,
			RewriteTemperature: 0.4,
			DraftMaxTokens:     4000,
			RewriteMaxTokens:   1200,
			CallTimeout:        60 * time.Second,
			MaxRetries:         2,
			RPS:                1,
			Burst:              5,
		},
		Generation: GenerationConfig{Count: 5, Mode: ModeStandard, Concurrency: 3},
		Personas:   model.DefaultPersonas(),
		Feeds: []string{
			"https://www3.nhk.or.jp/rss/news/cat5.xml",
			"https://news.yahoo.co.jp/rss/topics/business.xml",
		},
		Threads:    ThreadsConfig{RedirectURI: "https://localhost/callback"},
		Publishing: PublishingConfig{MaxPerHour: 2, MaxPerDay: 10, QuietHours: []int{15, 16, 17, 18, 19, 20}},
		Storage:    StorageConfig{DBPath: "./threadgenius.db"},
		Metrics:    MetricsConfig{Addr: ""},
		Log:        LogConfig{Level: "info"},
	}
}

// LoadDotEnv loads .env from the working directory when present.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load(".env")
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	setIfEmpty(&c.Threads.AppID, "THREADS_APP_ID")
	setIfEmpty(&c.Threads.AppSecret, "THREADS_APP_SECRET")
	setIfEmpty(&c.Threads.AccessToken, "THREADS_ACCESS_TOKEN")
	setIfEmpty(&c.Threads.UserID, "THREADS_USER_ID")
	setIfEmpty(&c.Metrics.Addr, "METRICS_ADDR")
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

func setIfEmpty(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

var validate = validator.New()

// Validate checks struct constraints and the few cross-field rules tags can't express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Personas) == 0 {
		return errors.New("invalid config: at least one persona is required")
	}
	return nil
}

// Load reads YAML config from path. Missing fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
