package recurrence

import (
	"log/slog"
	"time"
)

// DefaultMaxOccurrences is the safety cap on occurrence expansion. It is the
// only termination guarantee for rules whose frequency never advances the
// cursor, so it must stay small and must never be removed.
const DefaultMaxOccurrences = 100

// EngineConfig holds configuration options for the recurrence engine.
type EngineConfig struct {
	// MaxOccurrences is the default expansion cap for Occurrences. Callers
	// can still override it per call via OccurrencesCapped.
	MaxOccurrences int

	// Logger receives diagnostics such as unknown-frequency warnings. These
	// indicate corrupt stored rules and are never surfaced as errors.
	Logger *slog.Logger

	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig
}

// DefaultEngineConfig provides sensible defaults for production use.
var DefaultEngineConfig = EngineConfig{
	MaxOccurrences: DefaultMaxOccurrences,
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
}

// DisabledCacheConfig turns off expansion caching entirely. Useful for tests
// and for callers that want every call to be a pure function of its inputs
// with no background goroutine.
var DisabledCacheConfig = EngineConfig{
	MaxOccurrences: DefaultMaxOccurrences,
	CacheEnabled:   false,
}

// DefaultCacheConfig provides sensible defaults for expansion caching.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}
