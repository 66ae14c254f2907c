// Package playback implements the playback clock: where playback is inside
// the loaded audio buffer as a function of the device clock.
//
// The clock never polls the device for progress. It remembers the offset and
// device time at which the current segment started and derives the position
// from the elapsed device time scaled by the speed multiplier. A speed change
// re-anchors the segment so the position stays continuous.
package playback
