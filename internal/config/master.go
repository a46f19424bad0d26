package config

import "os"

type AppConfig struct {
	DebugMode          bool
	LogLevel           string
	HTTPConfig         *HTTPConfig
	PostgresConfig     *PostgresConfig
	RedisConfig        *RedisConfig
	GradingConfig      *GradingConfig
	RateLimitConfig    *RateLimitConfig
	JwtConfig          *JwtConfig
	CacheRefreshConfig *CacheRefreshConfig
	CatalogConfig      *CatalogConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:          os.Getenv("DEBUG_MODE") == "true",
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPConfig:         NewHTTPConfig(),
		PostgresConfig:     NewPostgresConfig(),
		RedisConfig:        NewRedisConfig(),
		GradingConfig:      NewGradingConfig(),
		RateLimitConfig:    NewRateLimitConfig(),
		JwtConfig:          NewJwtConfig(),
		CacheRefreshConfig: NewCacheRefreshConfig(),
		CatalogConfig:      NewCatalogConfig(),
	}
}
