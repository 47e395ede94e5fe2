// Package cache provides a byte-bounded in-memory LRU for generated speech and
// encoded MP3 data. Entries live for the lifetime of the process.
package cache
