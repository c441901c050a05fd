package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Token store drivers
const (
	TokenStoreFile     = "file"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
)

type Config struct {
	App        AppConfig
	API        APIConfig
	TokenStore TokenStoreConfig
	DB         DBConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	QR         QRConfig
}

type AppConfig struct {
	// Bind and Port address the owner's listener (session, links, admin).
	Bind string
	Port string
	// PublicBind and PublicPort address the listener for short link visits.
	PublicBind string
	PublicPort string
	VisitTTL   time.Duration
}

type APIConfig struct {
	// BaseURL is the backend API root, including the /api prefix.
	BaseURL string
	// PublicBaseURL is the origin short links are served from (used for QR content).
	PublicBaseURL string
}

type TokenStoreConfig struct {
	Driver string
	File   string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type QRConfig struct {
	Size int
}

// Load reads configuration from .env in the working directory (if present)
// and from the environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env file path.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	cfg.App.Bind = v.GetString("APP_BIND")
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.PublicBind = v.GetString("PUBLIC_BIND")
	cfg.App.PublicPort = v.GetString("PUBLIC_PORT")
	cfg.App.VisitTTL = v.GetDuration("VISIT_TTL")
	cfg.API.BaseURL = strings.TrimRight(v.GetString("API_BASE_URL"), "/")
	cfg.API.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.TokenStore.Driver = strings.ToLower(v.GetString("TOKEN_STORE"))
	cfg.TokenStore.File = v.GetString("TOKEN_FILE")
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.QR.Size = v.GetInt("QR_SIZE")
	if cfg.QR.Size < 64 || cfg.QR.Size > 1024 {
		cfg.QR.Size = 192
	}

	switch cfg.TokenStore.Driver {
	case TokenStoreFile, TokenStoreRedis, TokenStorePostgres:
	default:
		return nil, errors.New("config: TOKEN_STORE must be one of file, redis, postgres")
	}

	if cfg.App.Port == cfg.App.PublicPort {
		return nil, errors.New("config: APP_PORT and PUBLIC_PORT must differ")
	}

	if cfg.API.BaseURL == "" {
		return nil, errors.New("config: API_BASE_URL is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_BIND", "127.0.0.1")
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("PUBLIC_BIND", "")
	v.SetDefault("PUBLIC_PORT", "3001")
	v.SetDefault("VISIT_TTL", "15m")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3001")
	v.SetDefault("TOKEN_STORE", TokenStoreFile)
	v.SetDefault("TOKEN_FILE", ".linkshort/token")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
}
