// Package config loads server settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageSupabase = "supabase"
)

type Config struct {
	Port               string        `yaml:"port"`
	Storage            string        `yaml:"storage"`
	DatabaseURL        string        `yaml:"database_url"`
	SQLitePath         string        `yaml:"sqlite_path"`
	SupabaseURL        string        `yaml:"supabase_url"`
	SupabaseAnonKey    string        `yaml:"supabase_anon_key"`
	SupabaseBucket     string        `yaml:"supabase_bucket"`
	JWTSecret          string        `yaml:"jwt_secret"`
	CorsAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	UploadDir          string        `yaml:"upload_dir"`
	PublicBaseURL      string        `yaml:"public_base_url"`
	MinLoading         time.Duration `yaml:"min_loading"`
	LoginRateLimit     int           `yaml:"login_rate_limit"`
}

func defaults() Config {
	return Config{
		Port:               "8080",
		Storage:            StorageInMemory,
		SQLitePath:         "blog.db",
		SupabaseBucket:     "post-covers",
		CorsAllowedOrigins: []string{"*"},
		UploadDir:          "uploads",
		MinLoading:         800 * time.Millisecond,
		LoginRateLimit:     5,
	}
}

// Load builds the configuration. path names an optional YAML file; an
// empty path skips it. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	return &cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Storage, "STORAGE")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.SupabaseURL, "SUPABASE_URL")
	setString(&cfg.SupabaseAnonKey, "SUPABASE_ANON_KEY")
	setString(&cfg.SupabaseBucket, "SUPABASE_BUCKET")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.UploadDir, "UPLOAD_DIR")
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")

	if v := getEnv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CorsAllowedOrigins = splitCSV(v)
	}
	if v := getEnv("MIN_LOADING"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MIN_LOADING %q: %w", v, err)
		}
		cfg.MinLoading = d
	}
	if v := getEnv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOGIN_RATE_LIMIT %q: %w", v, err)
		}
		cfg.LoginRateLimit = n
	}
	return nil
}

// Validate reports settings the selected backend cannot run without.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set for supabase storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.Storage != StorageSupabase && c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for local auth")
	}
	if c.MinLoading < 0 {
		return errors.New("MIN_LOADING must not be negative")
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("LOGIN_RATE_LIMIT must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := getEnv(key); v != "" {
		*dst = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
