// Package audio decodes speech payloads into playable buffers and drives a
// single process-wide playback session on top of oto/v3.
package audio
