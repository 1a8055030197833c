package pathfind

import "sync/atomic"

// debugLoggingEnabled gates per-search debug logs so the hot path does not
// pay for building log attributes.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables per-search debug logs.
// Called from main after parsing the log level.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled reports whether per-search debug logs are on.
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
