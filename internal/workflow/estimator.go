package workflow

import (
	"fmt"
	"math"
)

const (
	baseVisitMinutes   = 60.0
	sizeStepUnits      = 500.0
	minutesPerSizeStep = 15.0
)

// EstimateDuration returns the expected on-site mapping time in minutes for
// a venue of the given size: a one hour base plus a quarter hour per started
// 500 units.
func EstimateDuration(size float64) float64 {
	return baseVisitMinutes + math.Ceil(size/sizeStepUnits)*minutesPerSizeStep
}

// checkedEstimate rejects a non-finite estimate as an internal defect rather
// than letting it reach a prompt.
func checkedEstimate(size float64, estimate func(float64) float64) (float64, error) {
	minutes := estimate(size)
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return 0, &InternalComputationError{
			Operation: "duration estimate",
			Detail:    fmt.Sprintf("size %v produced %v", size, minutes),
		}
	}
	return minutes, nil
}
