package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // postgres | sqlite
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string        `yaml:"grpc_addr"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Pdftotext      string        `yaml:"pdftotext"`
	Pdftoppm       string        `yaml:"pdftoppm"`
	Tesseract      string        `yaml:"tesseract"`
	TesseractLang  string        `yaml:"tesseract_lang"`
	TessdataDir    string        `yaml:"tessdata_dir"`
	DPI            int           `yaml:"dpi"`             // rasterization for scanned PDFs
	MaxPages       int           `yaml:"max_pages"`       // 0 = no limit
	Timeout        time.Duration `yaml:"timeout"`         // per document
	CommandTimeout time.Duration `yaml:"command_timeout"` // per external tool call
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTextChars int           `yaml:"max_text_chars"`
	// breaker opens after BreakerMinRequests calls with at least BreakerFailureRatio failing
	BreakerMinRequests  int           `yaml:"breaker_min_requests"`
	BreakerFailureRatio float32       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

// LedgerConfig holds contract and charge defaults
type LedgerConfig struct {
	DefaultPayDay  int    `yaml:"default_pay_day"`
	ContractMonths int    `yaml:"contract_months"`
	Currency       string `yaml:"currency"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:       ":8080",
			MetricsAddr:    ":9090",
			HealthInterval: 15 * time.Second,
		},
		OCR: OCRConfig{
			Pdftotext:      "pdftotext",
			Pdftoppm:       "pdftoppm",
			Tesseract:      "tesseract",
			TesseractLang:  "spa",
			DPI:            300,
			Timeout:        60 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:               "gpt-4o-mini",
			BaseURL:             "https://api.openai.com/v1",
			Temperature:         0.0,
			Timeout:             45 * time.Second,
			MaxTextChars:        12000,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  30 * time.Second,
		},
		Ledger: LedgerConfig{
			DefaultPayDay:  5,
			ContractMonths: 12,
			Currency:       "CLP",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from environment variables. When CONFIG_FILE
// is set the YAML file is read first and the environment overrides it.
func LoadConfig() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return LoadConfigFile(path)
	}
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg, nil
}

// LoadConfigFile reads a YAML config file over the defaults, then applies env overrides.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError("CONFIG_ERROR", "read config file", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = getEnv("METRICS_ADDR", c.Server.MetricsAddr)
	c.Server.HealthInterval = getEnvAsDuration("HEALTH_INTERVAL", c.Server.HealthInterval)

	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout)
	c.OCR.CommandTimeout = getEnvAsDuration("OCR_COMMAND_TIMEOUT", c.OCR.CommandTimeout)

	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxTextChars = getEnvAsInt("OPENAI_MAX_TEXT_CHARS", c.LLM.MaxTextChars)

	c.Ledger.DefaultPayDay = getEnvAsInt("LEDGER_DEFAULT_PAY_DAY", c.Ledger.DefaultPayDay)
	c.Ledger.ContractMonths = getEnvAsInt("LEDGER_CONTRACT_MONTHS", c.Ledger.ContractMonths)
	c.Ledger.Currency = getEnv("LEDGER_CURRENCY", c.Ledger.Currency)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. The API key is optional:
// without it the AI extractor is a no-op.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Ledger.DefaultPayDay < 1 || c.Ledger.DefaultPayDay > 31 {
		return NewAppError("CONFIG_ERROR", "LEDGER_DEFAULT_PAY_DAY must be between 1 and 31", ErrInvalidInput)
	}
	if c.Ledger.ContractMonths <= 0 {
		return NewAppError("CONFIG_ERROR", "LEDGER_CONTRACT_MONTHS must be positive", ErrInvalidInput)
	}
	if c.LLM.MaxTextChars <= 0 {
		return NewAppError("CONFIG_ERROR", "OPENAI_MAX_TEXT_CHARS must be positive", ErrInvalidInput)
	}
	return nil
}
