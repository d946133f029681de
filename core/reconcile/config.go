package reconcile

import "time"

// Config holds configuration for catalog reconciliation.
type Config struct {
	// CacheTTLSeconds keeps built indices for reuse. Zero disables caching.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"0"`
}

// CacheTTL returns the configured TTL, never negative.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
