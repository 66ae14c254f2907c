// Package cache keeps synthesized audio around between requests. It has an
// in-memory LRU (L1) and a zstd-compressed disk store (L2) that survives
// restarts. Entries are canonical WAV bytes keyed by a hash of the text,
// voice and speech rate that produced them.
package cache
