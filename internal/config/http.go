package config

import "time"

type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

func NewHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:         getIntEnv("HTTP_PORT", 8082),
		ReadTimeout:  getSecondsEnv("HTTP_READ_TIMEOUT_SEC", 15),
		WriteTimeout: getSecondsEnv("HTTP_WRITE_TIMEOUT_SEC", 120),
		IdleTimeout:  getSecondsEnv("HTTP_IDLE_TIMEOUT_SEC", 60),
		MaxBodyBytes: int64(getIntEnv("HTTP_MAX_BODY_BYTES", 1<<20)),
	}
}
