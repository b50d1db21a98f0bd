package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	ReadDatabaseURL string `yaml:"read_database_url"`
	JWTSecretKey    string `yaml:"jwt_secret_key"`
	ServerPort      int    `yaml:"server_port"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	R2AccountID       string `yaml:"r2_account_id"`
	R2AccessKeyID     string `yaml:"r2_access_key_id"`
	R2SecretAccessKey string `yaml:"r2_secret_access_key"`
	R2BucketName      string `yaml:"r2_bucket_name"`
	R2PublicBaseURL   string `yaml:"r2_public_base_url"`

	DefaultRating float64 `yaml:"default_rating"`
	KFactor       float64 `yaml:"rating_k_factor"`
	// DefaultPointsTable applies to events without their own points table.
	DefaultPointsTable map[int]int `yaml:"default_points_table"`
}

const (
	defaultPort          = 8080
	defaultRating        = 5000
	defaultKFactor       = 32
	configFileEnv        = "CONFIG_FILE"
	corsAllowedOriginEnv = "CORS_ALLOWED_ORIGINS"
)

// Load собирает конфигурацию: .env (если есть), YAML-файл из CONFIG_FILE
// (если задан), затем переменные окружения, которые перекрывают файл.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv(configFileEnv); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.ReadDatabaseURL, "READ_DATABASE_URL")
	setString(&c.JWTSecretKey, "JWT_SECRET_KEY")
	setString(&c.R2AccountID, "R2_ACCOUNT_ID")
	setString(&c.R2AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&c.R2SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	setString(&c.R2BucketName, "R2_BUCKET_NAME")
	setString(&c.R2PublicBaseURL, "R2_PUBLIC_BASE_URL")

	if raw := os.Getenv(corsAllowedOriginEnv); raw != "" {
		c.CORSAllowedOrigins = splitList(raw)
	}

	if raw := os.Getenv("SERVER_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		c.ServerPort = port
	}
	if err := setFloat(&c.DefaultRating, "DEFAULT_RATING"); err != nil {
		return err
	}
	return setFloat(&c.KFactor, "RATING_K_FACTOR")
}

func (c *Config) applyDefaults() {
	if c.ServerPort == 0 {
		c.ServerPort = defaultPort
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.DefaultRating == 0 {
		c.DefaultRating = defaultRating
	}
	if c.KFactor == 0 {
		c.KFactor = defaultKFactor
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.DefaultRating < 0 || c.KFactor < 0 {
		return errors.New("DEFAULT_RATING and RATING_K_FACTOR must not be negative")
	}
	for position, points := range c.DefaultPointsTable {
		if position < 1 || points < 0 {
			return fmt.Errorf("default_points_table: invalid entry %d: %d", position, points)
		}
	}

	r2 := []string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName, c.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return errors.New("R2 settings are incomplete: set all of R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME, R2_PUBLIC_BASE_URL or none")
	}
	return nil
}

// ArchiveEnabled reports whether completed brackets are uploaded to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2BucketName != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = v
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
