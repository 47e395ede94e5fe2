// Package engines contains SpeechGenerator implementations: the Gemini TTS
// client and a deterministic mock used for tests and offline runs.
package engines
