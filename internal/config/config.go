package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	JWT        JWTConfig
	Pagination PaginationConfig
	Cache      CacheConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type StoreConfig struct {
	Path string
}

type JWTConfig struct {
	Secret string
}

type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type CacheConfig struct {
	MaxEntries int
	TTLSeconds int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "20002"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Path: getEnv("DATA_PATH", "loglens.db"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 100),
			MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 1000),
		},
		Cache: CacheConfig{
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 128),
			TTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 300),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
