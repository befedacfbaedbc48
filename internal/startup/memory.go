package startup

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"page-server/internal/logging"
)

// MemoryLimitResult describes how the Go memory limit was set.
type MemoryLimitResult struct {
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
}

// ApplyMemoryLimit sets the Go soft memory limit to MEMORY_RATIO of
// MEMORY_LIMIT, typically the container limit passed in through the
// Kubernetes Downward API. An explicit GOMEMLIMIT always wins.
func ApplyMemoryLimit(cfg *Config) MemoryLimitResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := MemoryLimitResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.GoMemLimit = limit
		}
		logging.Info("  GOMEMLIMIT:          %s (from environment)", env)
		return result
	}

	if cfg.MemoryLimit <= 0 {
		logging.Debug("  MEMORY_LIMIT not set, Go memory limit left unset")
		return MemoryLimitResult{Source: "none"}
	}

	limit := int64(float64(cfg.MemoryLimit) * cfg.MemoryRatio)
	debug.SetMemoryLimit(limit)
	logging.Info("  GOMEMLIMIT:          %s (%.0f%% of %s)",
		formatBytes(limit), cfg.MemoryRatio*100, formatBytes(cfg.MemoryLimit))

	return MemoryLimitResult{
		Source:         "MEMORY_LIMIT",
		ContainerLimit: cfg.MemoryLimit,
		GoMemLimit:     limit,
	}
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
