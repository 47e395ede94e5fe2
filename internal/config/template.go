package config

// Template is written when no config file exists yet.
const Template = `# Speech engine: gemini or mock
engine: "mock"
# Voice for new blocks; see "blockvox voices"
default_voice: "Kore"
# Block state changes kept for "blockvox generate -v" and /blocks/:id/history
history_size: 256

gemini:
  # api_key: "your-api-key-here"   # or GEMINI_API_KEY
  model: "gemini-2.5-flash-preview-tts"
  endpoint: "https://generativelanguage.googleapis.com/v1beta"
  timeout: "60s"
  requests_per_minute: 10

# Offline engine producing tones, for trying things out
mock:
  delay: "0s"
  duration: "300ms"
  # failure_text: "FAIL"

export:
  # deflate archive entries (mp3 barely shrinks)
  compress: false
  output_dir: "."
  archive_name: "tts_audio.zip"

cache:
  # bytes of speech and mp3 kept in memory
  max_bytes: 67108864

server:
  addr: "127.0.0.1:8740"

log:
  # debug, info, warn or error
  level: "info"
`
