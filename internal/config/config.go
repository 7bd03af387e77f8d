package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string          `yaml:"addr"`
	JWTSecret      string          `yaml:"jwt_secret"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	TokenDuration  time.Duration   `yaml:"token_duration"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	Mail           MailConfig      `yaml:"mail"`
	Worker         WorkerConfig    `yaml:"worker"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// MailConfig selects the notification transport. Provider is "log" or "ses".
type MailConfig struct {
	Provider  string `yaml:"provider"`
	From      string `yaml:"from"`
	BaseURL   string `yaml:"base_url"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type WorkerConfig struct {
	Count       int `yaml:"count"`
	MaxAttempts int `yaml:"max_attempts"`
}

// RateLimitConfig bounds submissions per client. RPS <= 0 disables limiting.
// TrustForwarded keys clients by X-Forwarded-For; enable it only behind a
// proxy that sets the header.
type RateLimitConfig struct {
	RPS            float64       `yaml:"rps"`
	Burst          int           `yaml:"burst"`
	IdleTTL        time.Duration `yaml:"idle_ttl"`
	TrustForwarded bool          `yaml:"trust_forwarded"`
}

// LoadConfig builds the config from environment defaults, an optional .env
// file in the working directory and an optional YAML file at path. Values in
// the YAML file win.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("JOBVACANCY_ADDR", ":8080"),
		JWTSecret:      getEnv("JOBVACANCY_JWT_SECRET", insecureJWTSecret),
		APITimeout:     15 * time.Second,
		DatabasePath:   getEnv("JOBVACANCY_DATABASE_PATH", "jobvacancy.db"),
		TokenDuration:  1 * time.Hour,
		MigrateOnStart: getEnvBool("JOBVACANCY_MIGRATE_ON_START", true),
		Mail: MailConfig{
			Provider:  getEnv("JOBVACANCY_MAIL_PROVIDER", "log"),
			From:      getEnv("JOBVACANCY_MAIL_FROM", "noreply@jobvacancy.local"),
			BaseURL:   getEnv("JOBVACANCY_BASE_URL", ""),
			Region:    getEnv("AWS_REGION", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			TrustForwarded: getEnvBool("JOBVACANCY_RATE_LIMIT_TRUST_FORWARDED", false),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects unusable settings and fills defaults for the optional
// sections. The built-in JWT secret is only accepted when JOBVACANCY_ENV is
// "development".
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && os.Getenv("JOBVACANCY_ENV") != "development" {
		return errors.New("jwt_secret uses the built-in default; set JOBVACANCY_JWT_SECRET or JOBVACANCY_ENV=development")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.APITimeout)
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token_duration must be positive, got %v", c.TokenDuration)
	}

	switch c.Mail.Provider {
	case "":
		c.Mail.Provider = "log"
	case "log", "ses":
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}
	if c.Mail.From == "" {
		c.Mail.From = "noreply@jobvacancy.local"
	}
	if c.Mail.Provider == "ses" && c.Mail.Region == "" {
		c.Mail.Region = "us-east-1"
	}
	if c.Mail.CircuitFailureThreshold <= 0 {
		c.Mail.CircuitFailureThreshold = 5
	}
	if c.Mail.CircuitReset <= 0 {
		c.Mail.CircuitReset = 30 * time.Second
	}

	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 5
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS)
		if c.RateLimit.Burst < 1 {
			c.RateLimit.Burst = 1
		}
	}
	if c.RateLimit.IdleTTL <= 0 {
		c.RateLimit.IdleTTL = 10 * time.Minute
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
