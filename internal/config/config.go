package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultConfigPath = "config.yaml"
	DefaultEnvFile    = ".env"
)

// PromptsConfig holds configuration for prompt loading
type PromptsConfig struct {
	Dir string `yaml:"dir" env:"PROMPTS_DIR"` // Root directory for prompt files
}

// StorageConfig holds configuration for the record store
type StorageConfig struct {
	Driver  string        `yaml:"driver" env:"STORAGE_DRIVER"` // sqlite, postgres
	DSN     string        `yaml:"dsn" env:"DATABASE_URL"`      // File path or connection URL
	Timeout time.Duration `yaml:"timeout"`                     // Per-operation timeout (default: 10s)
}

// ProgressConfig selects where posting progress is checkpointed
type ProgressConfig struct {
	Backend  string `yaml:"backend" env:"PROGRESS_BACKEND"` // file, redis
	Path     string `yaml:"path"`                           // file backend
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`      // redis backend
	RedisKey string `yaml:"redis_key"`
}

// EmailConfig holds SMTP settings for the daily summary
type EmailConfig struct {
	SMTPServer     string `yaml:"smtp_server" env:"SMTP_SERVER"`
	SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SenderEmail    string `yaml:"sender_email" env:"SENDER_EMAIL"`
	SenderPassword string `yaml:"-" env:"SENDER_PASSWORD"`
	RecipientEmail string `yaml:"recipient_email" env:"RECIPIENT_EMAIL"`
}

// TelegramConfig holds bot settings for the daily summary
type TelegramConfig struct {
	BotToken string `yaml:"-" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// Config holds the configuration for the review pipeline
type Config struct {
	Log struct {
		Level    string `yaml:"level" env:"LOG_LEVEL"`   // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format" env:"LOG_FORMAT"` // text, json
		Output   string `yaml:"output" env:"LOG_OUTPUT"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size" env:"LOG_MAX_SIZE"`       // Megabytes
			MaxBackups int  `yaml:"max_backups" env:"LOG_MAX_BACKUPS"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age" env:"LOG_MAX_AGE"`         // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port         int           `yaml:"port" env:"PORT"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Business struct {
		Name      string `yaml:"name"`
		ListingID string `yaml:"listing_id" env:"BUSINESS_LISTING_ID"`
		URL       string `yaml:"url" env:"BUSINESS_URL"`
	} `yaml:"business"`

	Google struct {
		Email    string `yaml:"-" env:"GOOGLE_EMAIL"`
		Password string `yaml:"-" env:"GOOGLE_PASSWORD"`
	} `yaml:"-"`

	Browser struct {
		Headless         bool          `yaml:"headless" env:"HEADLESS"`
		UserAgent        string        `yaml:"user_agent"`
		ViewportWidth    int           `yaml:"viewport_width"`
		ViewportHeight   int           `yaml:"viewport_height"`
		Timeout          time.Duration `yaml:"timeout"` // Default action timeout
		Settle           time.Duration `yaml:"settle"`  // Wait after UI actions
		DebugScreenshots bool          `yaml:"debug_screenshots" env:"DEBUG_SCREENSHOTS"`
		ScreenshotDir    string        `yaml:"screenshot_dir"`
	} `yaml:"browser"`

	Collection struct {
		MaxReviews      int `yaml:"max_reviews" env:"MAX_REVIEWS"`
		MaxPageAttempts int `yaml:"max_page_attempts"`
		ScreenshotEvery int `yaml:"screenshot_every"`
	} `yaml:"collection"`

	LLM struct {
		Backend          string        `yaml:"backend" env:"LLM_BACKEND"` // openai, langchain, gemini
		Model            string        `yaml:"model" env:"LLM_MODEL"`
		Endpoint         string        `yaml:"endpoint" env:"LLM_ENDPOINT"`
		APIKey           string        `yaml:"api_key" env:"LLM_API_KEY"` // From YAML or Env
		MaxTokens        int           `yaml:"max_tokens"`
		Temperature      float64       `yaml:"temperature"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxRetries       int           `yaml:"max_retries"`
		ConcurrencyLimit int           `yaml:"concurrency_limit"`
	} `yaml:"llm"`

	Generation struct {
		Limit             int `yaml:"limit" env:"GENERATION_LIMIT"`
		ReviewCutoffWeeks int `yaml:"review_cutoff_weeks"`
	} `yaml:"generation"`

	Posting struct {
		BatchSize   int           `yaml:"batch_size" env:"BATCH_SIZE"`
		BatchDelay  time.Duration `yaml:"batch_delay" env:"BATCH_DELAY"`
		Limit       int           `yaml:"limit"`
		Auto        bool          `yaml:"auto" env:"POSTING_AUTO"` // post during the daily run
		ConfirmWait time.Duration `yaml:"confirm_wait"`
	} `yaml:"posting"`

	Progress ProgressConfig `yaml:"progress"`

	Notify struct {
		Email    EmailConfig    `yaml:"email"`
		Telegram TelegramConfig `yaml:"telegram"`
	} `yaml:"notify"`

	Schedule struct {
		Cron     string `yaml:"cron" env:"SCHEDULE_CRON"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`

	Metrics struct {
		Pushgateway string `yaml:"pushgateway" env:"PUSHGATEWAY_URL"`
		Job         string `yaml:"job"`
	} `yaml:"metrics"`

	Prompts PromptsConfig `yaml:"prompts"`

	Storage StorageConfig `yaml:"storage"`
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setDefaults(cfg *Config) {
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	cfg.Server.Port = 9090
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second

	cfg.Business.Name = "Paati Veedu"
	cfg.Business.ListingID = DefaultListingID
	cfg.Business.URL = DefaultBusinessURL

	cfg.Browser.UserAgent = DefaultUserAgent
	cfg.Browser.ViewportWidth = 1920
	cfg.Browser.ViewportHeight = 1080
	cfg.Browser.Timeout = 20 * time.Second
	cfg.Browser.Settle = 3 * time.Second
	cfg.Browser.ScreenshotDir = "data/screenshots"

	cfg.Collection.MaxReviews = 1000
	cfg.Collection.MaxPageAttempts = 30
	cfg.Collection.ScreenshotEvery = 50

	cfg.LLM.Backend = BackendOpenAI
	cfg.LLM.Endpoint = DefaultOpenAIEndpoint
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.MaxTokens = 600
	cfg.LLM.Temperature = 0.7
	cfg.LLM.Timeout = 60 * time.Second
	cfg.LLM.MaxRetries = 2
	cfg.LLM.ConcurrencyLimit = 1

	cfg.Generation.Limit = 50
	cfg.Generation.ReviewCutoffWeeks = 16

	cfg.Posting.BatchSize = 25
	cfg.Posting.BatchDelay = 15 * time.Minute
	cfg.Posting.ConfirmWait = 4 * time.Second

	cfg.Progress.Backend = ProgressFile
	cfg.Progress.Path = "data/reply_progress.json"
	cfg.Progress.RedisKey = "pvreviews:reply_progress"

	cfg.Notify.Email.SMTPServer = "smtp.gmail.com"
	cfg.Notify.Email.SMTPPort = 587

	cfg.Schedule.Cron = "0 21 * * *"
	cfg.Schedule.Timezone = "UTC"

	cfg.Metrics.Job = "pvreviews"

	cfg.Prompts.Dir = "prompts"

	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.DSN = "data/reviews.db"
	cfg.Storage.Timeout = 10 * time.Second
}

// LoadConfig loads configuration from YAML file and supplements with environment variables.
// A .env file in the working directory is loaded first and never overrides the real environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if err := godotenv.Load(getEnv("ENV_FILE", DefaultEnvFile)); err != nil && !os.IsNotExist(err) {
		slog.Warn("load env file failed", "error", err)
	}

	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", configPath, err)
		}
		slog.Debug("config loaded", "path", configPath)
	case os.IsNotExist(err):
		slog.Debug("config not found, using defaults", "path", configPath)
	default:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	// Environment always wins over the file, for secrets and deployment overrides
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate reports every problem at once. needBrowser and needLLM select the
// requirements of the command being run.
func (c *Config) Validate(needBrowser, needLLM bool) error {
	var errs []string

	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("unknown storage driver: %q", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, "storage dsn is required")
	}

	if needBrowser {
		if c.Google.Email == "" || c.Google.Password == "" {
			errs = append(errs, "GOOGLE_EMAIL and GOOGLE_PASSWORD are required")
		}
		if c.Business.ListingID == "" || c.Business.URL == "" {
			errs = append(errs, "business listing_id and url are required")
		}
	}

	if needLLM {
		switch c.LLM.Backend {
		case BackendOpenAI, BackendLangChain, BackendGemini:
		default:
			errs = append(errs, fmt.Sprintf("unknown llm backend: %q", c.LLM.Backend))
		}
		if c.LLM.APIKey == "" {
			errs = append(errs, "LLM_API_KEY is required")
		}
	}

	if c.Posting.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid batch size: %d", c.Posting.BatchSize))
	}

	switch c.Progress.Backend {
	case ProgressFile:
	case ProgressRedis:
		if c.Progress.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required for redis progress backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown progress backend: %q", c.Progress.Backend))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
