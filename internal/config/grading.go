package config

import "gitlab.com/codegrader.net/internal/domain"

var defaultPlaceholderPatterns = []string{
	`TODO`,
	`(?i)placeholder`,
	`expect\(\s*true\s*\)\.toBe\(\s*true\s*\)`,
}

type GradingConfig struct {
	DefaultTimeLimitMs   int
	DefaultMemoryLimitMb int
	HeuristicMinPassing  int
	PlaceholderPatterns  []string
	AlgoConcurrency      int
	FloatTolerance       float64
	MaxConcurrent        int
	MaxCallStackSize     int
}

func NewGradingConfig() *GradingConfig {
	return &GradingConfig{
		DefaultTimeLimitMs:   getIntEnv("GRADING_DEFAULT_TIME_LIMIT_MS", domain.DefaultTimeLimitMs),
		DefaultMemoryLimitMb: getIntEnv("GRADING_DEFAULT_MEMORY_LIMIT_MB", domain.DefaultMemoryLimitMb),
		HeuristicMinPassing:  getIntEnv("GRADING_HEURISTIC_MIN_PASSING", 2),
		PlaceholderPatterns:  getListEnv("GRADING_PLACEHOLDER_PATTERNS", defaultPlaceholderPatterns),
		AlgoConcurrency:      getIntEnv("GRADING_ALGO_CONCURRENCY", 1),
		FloatTolerance:       getFloatEnv("GRADING_FLOAT_TOLERANCE", 1e-9),
		MaxConcurrent:        getIntEnv("GRADING_MAX_CONCURRENT", 16),
		MaxCallStackSize:     getIntEnv("GRADING_MAX_CALL_STACK", 4096),
	}
}

// DefaultLimits returns the configured limits for cases that set none
func (c *GradingConfig) DefaultLimits() domain.Limits {
	return domain.Limits{TimeLimitMs: c.DefaultTimeLimitMs, MemoryLimitMb: c.DefaultMemoryLimitMb}.WithDefaults()
}
