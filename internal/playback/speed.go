package playback

import (
	"fmt"
	"math"
)

// DefaultSpeed is normal playback speed.
const DefaultSpeed = 1.0

// SpeedSteps are the speeds offered by the speed up and slow down controls.
var SpeedSteps = []float64{
	0.5,  // half speed
	0.75, // three-quarter speed
	1.0,  // normal
	1.25,
	1.5,
	1.75,
	2.0, // double speed
}

// NextSpeed returns the next step above current, or the top step if current
// is already at or past it.
func NextSpeed(current float64) float64 {
	for _, s := range SpeedSteps {
		if s > current+1e-9 {
			return s
		}
	}
	return SpeedSteps[len(SpeedSteps)-1]
}

// PreviousSpeed returns the next step below current, or the bottom step if
// current is already at or below it.
func PreviousSpeed(current float64) float64 {
	for i := len(SpeedSteps) - 1; i >= 0; i-- {
		if SpeedSteps[i] < current-1e-9 {
			return SpeedSteps[i]
		}
	}
	return SpeedSteps[0]
}

// FormatSpeed renders a multiplier like "1.25x".
func FormatSpeed(speed float64) string {
	if speed == math.Trunc(speed) {
		return fmt.Sprintf("%.1fx", speed)
	}
	return fmt.Sprintf("%gx", speed)
}
