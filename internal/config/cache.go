package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// Only GET requests under one of Paths are cached; the boards themselves
// change every few seconds and are never cached.  Any successful write
// under Paths bumps a generation counter so stale entries stop matching.
type CacheConfig struct {
	Enabled      bool
	Paths        []string
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Paths:        splitList(envStr("CACHE_PATHS", "/v1/courses,/v1/items,/v1/meta")),
		TTL:          envDur("CACHE_TTL", 5*time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// Covers reports whether path falls under one of the cached prefixes.
func (c CacheConfig) Covers(path string) bool {
	for _, p := range c.Paths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
