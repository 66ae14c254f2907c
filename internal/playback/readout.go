package playback

import (
	"fmt"
	"math"
)

// FormatClock renders seconds as m:ss, rounding down to the whole second.
// Negative and NaN values render as 0:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if math.IsInf(seconds, 1) {
		return "--:--"
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Progress returns offset/duration in [0, 1]. An empty buffer has no
// progress.
func (p Position) Progress() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return clamp(p.Offset/p.Duration, 1)
}

// Remaining returns the seconds left at the current position.
func (p Position) Remaining() float64 {
	return clamp(p.Duration-p.Offset, p.Duration)
}
