// Package audio holds decoded audio buffers and the playback devices that
// emit them. The oto/v3 backed device is used at runtime; the mock device
// drives tests with a manual clock.
package audio
