package config

import "os"

type JwtConfig struct {
	Secret string
}

// Enabled reports whether bearer tokens are verified at all
func (c *JwtConfig) Enabled() bool {
	return c.Secret != ""
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
	}
}
