package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	GTTS     GTTSConfig
	ESpeak   ESpeakConfig
	Polly    PollyConfig
	GCloud   GCloudConfig
	OpenAI   OpenAIConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheKey string        // fernet key, 32 bytes url-safe base64
	CacheTTL time.Duration // 0 = entries never expire
}

type AuthConfig struct {
	Key string // empty disables the Authorization check
}

type GTTSConfig struct {
	BaseURL string
}

type ESpeakConfig struct {
	BinPath string
}

type PollyConfig struct {
	Region string // empty omits the Polly backend
}

type GCloudConfig struct {
	CredentialsFile string // empty omits the gCloud backend
}

type OpenAIConfig struct {
	APIKey string // empty omits the OpenAI backend
	Model  string
}

func Load() (*Config, error) {
	// A local .env never overrides values already in the environment.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := getEnvDuration("CACHE_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheKey: getEnv("CACHE_KEY", ""),
			CacheTTL: cacheTTL,
		},
		Auth: AuthConfig{
			Key: getEnv("AUTH_KEY", ""),
		},
		GTTS: GTTSConfig{
			BaseURL: getEnv("GTTS_BASE_URL", "https://translate.google.com"),
		},
		ESpeak: ESpeakConfig{
			BinPath: getEnv("ESPEAK_BIN", "espeak-ng"),
		},
		Polly: PollyConfig{
			Region: getEnv("AWS_REGION", ""),
		},
		GCloud: GCloudConfig{
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_TTS_MODEL", "tts-1"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Redis.Addr != "" && c.Redis.CacheKey == "" {
		problems = append(problems, "REDIS_ADDR is set but CACHE_KEY is not")
	}
	if c.Redis.Addr == "" && c.Redis.CacheKey != "" {
		problems = append(problems, "CACHE_KEY is set but REDIS_ADDR is not")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
