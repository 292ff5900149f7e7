package semantic

import (
	"fmt"
	"strings"

	"github.com/poiesic/sift/core"
)

// DefaultMaxDistance is the largest squared Euclidean distance between two unit vectors.
const DefaultMaxDistance = 4.0

// Calibration maps a squared Euclidean distance to a similarity in [0, 1].
// Implementations must be monotonically non-increasing in distance.
type Calibration func(distance float64) float64

// Linear maps distance d to max(0, 1 - d/maxDistance).
// With normalized embeddings and maxDistance 4 this is (1 + cosine) / 2.
func Linear(maxDistance float64) Calibration {
	return func(distance float64) float64 {
		if distance <= 0 {
			return 1
		}
		s := 1 - distance/maxDistance
		if s < 0 {
			return 0
		}
		return s
	}
}

// Inverse maps distance d to 1 / (1 + d).
func Inverse(distance float64) float64 {
	if distance <= 0 {
		return 1
	}
	return 1 / (1 + distance)
}

// ParseCalibration resolves a calibration by name: "linear" or "inverse".
func ParseCalibration(name string) (Calibration, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return Linear(DefaultMaxDistance), nil
	case "inverse":
		return Inverse, nil
	default:
		return nil, fmt.Errorf("%w: unknown calibration %q", core.ErrConfiguration, name)
	}
}
