package resource

import (
	"math"
	"runtime"
	"runtime/debug"
)

const (
	fallbackMemoryMB = 8192
	defaultNetwork   = 1000
	defaultStorageMB = 10240
	defaultUsers     = 1000
)

// DefaultLimits derives pool capacity from the process environment: memory
// from the Go memory limit (GOMEMLIMIT) when one is set, otherwise a fixed
// fallback, and CPU as 100% per logical core.
func DefaultLimits() Requirements {
	memoryMB := float64(fallbackMemoryMB)
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		memoryMB = float64(limit) / (1 << 20)
	}
	return Requirements{
		MemoryMB:        memoryMB,
		CPUPercent:      float64(runtime.NumCPU() * 100),
		NetworkMbps:     defaultNetwork,
		StorageMB:       defaultStorageMB,
		ConcurrentUsers: defaultUsers,
	}
}
