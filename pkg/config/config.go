package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Storage   StorageConfig
	Documents DocumentsConfig
	PageText  PageTextConfig
	Realtime  RealtimeConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig locates uploaded originals and their page extracts.
type StorageConfig struct {
	UploadDir      string
	URLPrefix      string
	MaxUploadBytes int64
}

// DocumentsConfig tunes listing and the document list cache.
type DocumentsConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	CacheEnabled    bool
	CacheTTL        time.Duration
}

// PageTextConfig controls background text extraction for split PDF pages.
type PageTextConfig struct {
	Enabled bool
	Workers int
	Retries int
}

// RealtimeConfig tunes the websocket notification hub.
type RealtimeConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		UploadDir:      v.GetString("UPLOAD_DIR"),
		URLPrefix:      v.GetString("UPLOAD_URL_PREFIX"),
		MaxUploadBytes: maxUpload,
	}

	cfg.Documents = DocumentsConfig{
		DefaultPageSize: v.GetInt("DOCUMENTS_DEFAULT_PAGE_SIZE"),
		MaxPageSize:     v.GetInt("DOCUMENTS_MAX_PAGE_SIZE"),
		CacheEnabled:    v.GetBool("ENABLE_DOCUMENT_CACHE"),
		CacheTTL:        parseDuration(v.GetString("DOCUMENT_CACHE_TTL"), 2*time.Minute),
	}

	cfg.PageText = PageTextConfig{
		Enabled: v.GetBool("ENABLE_PAGE_TEXT_EXTRACTION"),
		Workers: v.GetInt("PAGE_TEXT_WORKERS"),
		Retries: v.GetInt("PAGE_TEXT_RETRIES"),
	}

	cfg.Realtime = RealtimeConfig{
		SendBuffer:   v.GetInt("REALTIME_SEND_BUFFER"),
		PingInterval: parseDuration(v.GetString("REALTIME_PING_INTERVAL"), 30*time.Second),
		WriteTimeout: parseDuration(v.GetString("REALTIME_WRITE_TIMEOUT"), 10*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "bookdb")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_URL_PREFIX", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 50*1024*1024)

	v.SetDefault("DOCUMENTS_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("DOCUMENTS_MAX_PAGE_SIZE", 100)
	v.SetDefault("ENABLE_DOCUMENT_CACHE", false)
	v.SetDefault("DOCUMENT_CACHE_TTL", "2m")

	v.SetDefault("ENABLE_PAGE_TEXT_EXTRACTION", true)
	v.SetDefault("PAGE_TEXT_WORKERS", 2)
	v.SetDefault("PAGE_TEXT_RETRIES", 2)

	v.SetDefault("REALTIME_SEND_BUFFER", 16)
	v.SetDefault("REALTIME_PING_INTERVAL", "30s")
	v.SetDefault("REALTIME_WRITE_TIMEOUT", "10s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
