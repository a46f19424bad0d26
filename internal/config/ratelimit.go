package config

import (
	"net/netip"
	"strings"
	"time"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleTTL           time.Duration
	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	// Empty means the header is ignored.
	TrustedProxies []netip.Prefix
}

func NewRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: getFloatEnv("RATE_LIMIT_RPS", 2),
		Burst:             getIntEnv("RATE_LIMIT_BURST", 5),
		IdleTTL:           getSecondsEnv("RATE_LIMIT_IDLE_TTL_SEC", 600),
		TrustedProxies:    parsePrefixes(getListEnv("RATE_LIMIT_TRUSTED_PROXIES", nil)),
	}
}

// parsePrefixes accepts CIDRs and bare addresses; malformed entries are skipped
func parsePrefixes(raw []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(raw))
	for _, r := range raw {
		if strings.Contains(r, "/") {
			if p, err := netip.ParsePrefix(r); err == nil {
				out = append(out, p.Masked())
			}
			continue
		}
		if a, err := netip.ParseAddr(r); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}
