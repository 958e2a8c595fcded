package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	App        AppConfig        `mapstructure:"app"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Build      BuildConfig      `mapstructure:"build"`
	Generation GenerationConfig `mapstructure:"generation"`
	Firebase   FirebaseConfig   `mapstructure:"firebase"`
	Janitor    JanitorConfig    `mapstructure:"janitor"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig is optional. An empty DSN keeps projects in memory.
type DatabaseConfig struct {
	DSN       string        `mapstructure:"dsn"`
	MaxConns  int           `mapstructure:"max_conns"`
	ConnectTO time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	Version     string `mapstructure:"version"`
}

type StorageConfig struct {
	UploadDir      string `mapstructure:"upload_dir"`
	ProjectsDir    string `mapstructure:"projects_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type BuildConfig struct {
	// Backend is "archive" (in-process) or "apktool" (external tools).
	Backend          string        `mapstructure:"backend"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinArtifactBytes int64         `mapstructure:"min_artifact_bytes"`
	KeystorePath     string        `mapstructure:"keystore_path"`
	KeystorePassword string        `mapstructure:"keystore_password"`
	ApktoolBin       string        `mapstructure:"apktool_bin"`
	ApksignerBin     string        `mapstructure:"apksigner_bin"`
	KeyAlias         string        `mapstructure:"key_alias"`
}

type GenerationConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	UseADC            bool          `mapstructure:"use_adc"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Temperature       float64       `mapstructure:"temperature"`
	TopK              int           `mapstructure:"top_k"`
	TopP              float64       `mapstructure:"top_p"`
	MaxOutputTokens   int           `mapstructure:"max_output_tokens"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RetentionTTL      time.Duration `mapstructure:"retention_ttl"`
}

type FirebaseConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

type JanitorConfig struct {
	Schedule  string        `mapstructure:"schedule"`
	Retention time.Duration `mapstructure:"retention"`
}

// envBindings maps config keys onto the environment variable names the
// deployment already uses.
var envBindings = map[string]string{
	"server.port":                    "PORT",
	"server.allowed_origins":         "ALLOWED_ORIGINS",
	"database.dsn":                   "DB_DSN",
	"database.max_conns":             "DB_MAX_CONNS",
	"database.connect_timeout":       "DB_CONNECT_TIMEOUT",
	"redis.addr":                     "REDIS_ADDR",
	"redis.password":                 "REDIS_PASSWORD",
	"redis.db":                       "REDIS_DB",
	"app.name":                       "APP_NAME",
	"app.environment":                "APP_ENV",
	"app.log_level":                  "LOG_LEVEL",
	"app.version":                    "APP_VERSION",
	"storage.upload_dir":             "UPLOAD_DIR",
	"storage.projects_dir":           "PROJECTS_DIR",
	"storage.max_upload_bytes":       "MAX_UPLOAD_BYTES",
	"build.backend":                  "BUILD_BACKEND",
	"build.timeout":                  "BUILD_TIMEOUT",
	"build.min_artifact_bytes":       "BUILD_MIN_ARTIFACT_BYTES",
	"build.keystore_path":            "KEYSTORE_PATH",
	"build.keystore_password":        "KEYSTORE_PASSWORD",
	"build.apktool_bin":              "APKTOOL_BIN",
	"build.apksigner_bin":            "APKSIGNER_BIN",
	"build.key_alias":                "KEY_ALIAS",
	"generation.api_key":             "GEMINI_API_KEY",
	"generation.use_adc":             "GEMINI_USE_ADC",
	"generation.base_url":            "GEMINI_BASE_URL",
	"generation.model":               "GEMINI_MODEL",
	"generation.timeout":             "GEMINI_TIMEOUT",
	"generation.temperature":         "GEMINI_TEMPERATURE",
	"generation.top_k":               "GEMINI_TOP_K",
	"generation.top_p":               "GEMINI_TOP_P",
	"generation.max_output_tokens":   "GEMINI_MAX_OUTPUT_TOKENS",
	"generation.requests_per_minute": "GEMINI_RPM",
	"generation.retention_ttl":       "GENERATION_TTL",
	"firebase.credentials_path":      "FIREBASE_CREDENTIALS_PATH",
	"janitor.schedule":               "JANITOR_SCHEDULE",
	"janitor.retention":              "JANITOR_RETENTION",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("app.name", "apk-studio-backend")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.projects_dir", "projects")
	v.SetDefault("storage.max_upload_bytes", int64(100<<20))

	v.SetDefault("build.backend", "archive")
	v.SetDefault("build.timeout", 5*time.Minute)
	v.SetDefault("build.min_artifact_bytes", int64(1024))
	v.SetDefault("build.keystore_path", "")
	v.SetDefault("build.keystore_password", "")
	v.SetDefault("build.apktool_bin", "apktool")
	v.SetDefault("build.apksigner_bin", "apksigner")
	v.SetDefault("build.key_alias", "apkstudio")

	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.use_adc", false)
	v.SetDefault("generation.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("generation.model", "gemini-pro")
	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.top_k", 40)
	v.SetDefault("generation.top_p", 0.95)
	v.SetDefault("generation.max_output_tokens", 2048)
	v.SetDefault("generation.requests_per_minute", 30)
	v.SetDefault("generation.retention_ttl", 7*24*time.Hour)

	v.SetDefault("firebase.credentials_path", "")

	v.SetDefault("janitor.schedule", "0 0 * * * *")
	v.SetDefault("janitor.retention", 24*time.Hour)
}

// Load reads .env, an optional apkstudio.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("apkstudio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Build.Backend = strings.ToLower(strings.TrimSpace(cfg.Build.Backend))
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = strings.Split(cfg.Server.AllowedOrigins[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Storage.UploadDir == "" || c.Storage.ProjectsDir == "" {
		return fmt.Errorf("UPLOAD_DIR and PROJECTS_DIR are required")
	}

	switch c.Build.Backend {
	case "archive", "apktool":
	default:
		return fmt.Errorf("BUILD_BACKEND must be archive or apktool, got %q", c.Build.Backend)
	}

	if c.Build.Timeout <= 0 {
		return fmt.Errorf("BUILD_TIMEOUT must be positive")
	}

	if c.Build.MinArtifactBytes < 0 {
		return fmt.Errorf("BUILD_MIN_ARTIFACT_BYTES must not be negative")
	}

	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}

	return nil
}

// LiveGeneration reports whether a text-generation backend is configured.
// Placeholder keys copied from sample env files count as unset.
func (g GenerationConfig) LiveGeneration() bool {
	if g.UseADC {
		return true
	}
	key := strings.TrimSpace(g.APIKey)
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	return !strings.HasPrefix(lower, "dummy") && !strings.HasPrefix(lower, "your_")
}
