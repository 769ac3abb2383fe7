package resource

import (
	"math"

	"github.com/suitepilot/suitepilot/internal/errors"
)

// Dimension names, used in events, shortfalls and breakdowns.
const (
	DimensionMemory  = "memory"
	DimensionCPU     = "cpu"
	DimensionNetwork = "network"
	DimensionStorage = "storage"
	DimensionUsers   = "users"
)

// Dimensions lists every dimension in reporting order.
var Dimensions = []string{
	DimensionMemory,
	DimensionCPU,
	DimensionNetwork,
	DimensionStorage,
	DimensionUsers,
}

// utilizationWeights are the composite utilization weights per dimension.
var utilizationWeights = map[string]float64{
	DimensionMemory:  0.3,
	DimensionCPU:     0.3,
	DimensionNetwork: 0.2,
	DimensionStorage: 0.1,
	DimensionUsers:   0.1,
}

// Requirements is a five-dimensional resource vector. It is a value type;
// every method returns a new vector.
type Requirements struct {
	MemoryMB        float64 `json:"memory_mb" yaml:"memory_mb" mapstructure:"memory_mb"`
	CPUPercent      float64 `json:"cpu_percent" yaml:"cpu_percent" mapstructure:"cpu_percent"`
	NetworkMbps     float64 `json:"network_mbps" yaml:"network_mbps" mapstructure:"network_mbps"`
	StorageMB       float64 `json:"storage_mb" yaml:"storage_mb" mapstructure:"storage_mb"`
	ConcurrentUsers int     `json:"concurrent_users" yaml:"concurrent_users" mapstructure:"concurrent_users"`
}

// Get returns the value of a single dimension, or 0 for unknown names.
func (r Requirements) Get(dimension string) float64 {
	switch dimension {
	case DimensionMemory:
		return r.MemoryMB
	case DimensionCPU:
		return r.CPUPercent
	case DimensionNetwork:
		return r.NetworkMbps
	case DimensionStorage:
		return r.StorageMB
	case DimensionUsers:
		return float64(r.ConcurrentUsers)
	default:
		return 0
	}
}

// Map returns the vector keyed by dimension name.
func (r Requirements) Map() map[string]float64 {
	m := make(map[string]float64, len(Dimensions))
	for _, d := range Dimensions {
		m[d] = r.Get(d)
	}
	return m
}

// Add aggregates two requirements for suites that run side by side.
// Network is shared bandwidth, so it takes the max instead of the sum.
func (r Requirements) Add(o Requirements) Requirements {
	return Requirements{
		MemoryMB:        r.MemoryMB + o.MemoryMB,
		CPUPercent:      r.CPUPercent + o.CPUPercent,
		NetworkMbps:     math.Max(r.NetworkMbps, o.NetworkMbps),
		StorageMB:       r.StorageMB + o.StorageMB,
		ConcurrentUsers: r.ConcurrentUsers + o.ConcurrentUsers,
	}
}

// Plus is the strict dimension-wise sum, used for pool accounting.
func (r Requirements) Plus(o Requirements) Requirements {
	return Requirements{
		MemoryMB:        r.MemoryMB + o.MemoryMB,
		CPUPercent:      r.CPUPercent + o.CPUPercent,
		NetworkMbps:     r.NetworkMbps + o.NetworkMbps,
		StorageMB:       r.StorageMB + o.StorageMB,
		ConcurrentUsers: r.ConcurrentUsers + o.ConcurrentUsers,
	}
}

// Sub is the dimension-wise difference r - o.
func (r Requirements) Sub(o Requirements) Requirements {
	return Requirements{
		MemoryMB:        r.MemoryMB - o.MemoryMB,
		CPUPercent:      r.CPUPercent - o.CPUPercent,
		NetworkMbps:     r.NetworkMbps - o.NetworkMbps,
		StorageMB:       r.StorageMB - o.StorageMB,
		ConcurrentUsers: r.ConcurrentUsers - o.ConcurrentUsers,
	}
}

// Max is the dimension-wise maximum.
func (r Requirements) Max(o Requirements) Requirements {
	return Requirements{
		MemoryMB:        math.Max(r.MemoryMB, o.MemoryMB),
		CPUPercent:      math.Max(r.CPUPercent, o.CPUPercent),
		NetworkMbps:     math.Max(r.NetworkMbps, o.NetworkMbps),
		StorageMB:       math.Max(r.StorageMB, o.StorageMB),
		ConcurrentUsers: max(r.ConcurrentUsers, o.ConcurrentUsers),
	}
}

// IsZero reports whether every dimension is zero.
func (r Requirements) IsZero() bool {
	return r == Requirements{}
}

// Fits reports whether every dimension of r is within limit.
func (r Requirements) Fits(limit Requirements) bool {
	return len(r.Shortfalls(limit)) == 0
}

// Shortfalls lists the dimensions where r exceeds available.
func (r Requirements) Shortfalls(available Requirements) []errors.Shortfall {
	var out []errors.Shortfall
	for _, d := range Dimensions {
		req, avail := r.Get(d), available.Get(d)
		if req > avail {
			out = append(out, errors.Shortfall{Dimension: d, Requested: req, Available: math.Max(avail, 0)})
		}
	}
	return out
}

// Score is the weighted sum of the raw dimension values. Lower scores are
// lighter suites.
func (r Requirements) Score() float64 {
	var score float64
	for _, d := range Dimensions {
		score += r.Get(d) * utilizationWeights[d]
	}
	return score
}

// Validate rejects negative dimensions.
func (r Requirements) Validate() error {
	for _, d := range Dimensions {
		if v := r.Get(d); v < 0 {
			return errors.NewValidationError("resource requirement must not be negative").
				WithField(d).
				WithValue(v)
		}
	}
	return nil
}

// percent returns used as a percentage of limit.
func percent(used, limit float64) float64 {
	if limit <= 0 {
		if used > 0 {
			return 100
		}
		return 0
	}
	return used / limit * 100
}
