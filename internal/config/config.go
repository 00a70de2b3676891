package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Google Cloud API key used for speech, text-to-speech and translation.
	GoogleAPIKey string `env:"GOOGLE_API_KEY,required"`

	// Spreadsheet the completed submissions are appended to.
	SheetsSpreadsheetID string `env:"SHEETS_SPREADSHEET_ID,required"`
	SheetsToken         string `env:"SHEETS_TOKEN,required"`

	// Optional Postgres archive. Empty disables archiving and matching.
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional completion event broker. Empty disables publishing.
	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"intake-engine"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	// Optional Gemini key. Empty disables matching and resume content.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// Question file overriding the built-in sets; hot-reloaded when set.
	QuestionFile string `env:"QUESTION_FILE"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	// Per-call timeout for the Google speech and translate endpoints.
	PipelineTimeout time.Duration `env:"PIPELINE_TIMEOUT" envDefault:"30s"`

	// How long a stopped recording waits for a trailing chunk.
	CaptureSettle time.Duration `env:"CAPTURE_SETTLE" envDefault:"100ms"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile      string
	HTTPAddr     string
	LogLevel     string
	DatabaseURL  string
	QuestionFile string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.QuestionFile != "" {
		cfg.QuestionFile = overrides.QuestionFile
	}

	return cfg, nil
}
