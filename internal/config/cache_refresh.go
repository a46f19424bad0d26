package config

import "time"

type CacheRefreshConfig struct {
	Interval time.Duration
}

func NewCacheRefreshConfig() *CacheRefreshConfig {
	return &CacheRefreshConfig{
		Interval: getSecondsEnv("CHALLENGE_REFRESH_INTERVAL_SEC", 600),
	}
}
