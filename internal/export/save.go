package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/blockvox/internal/tts"
)

// Save writes data to path, creating parent directories. A leading ~ is
// expanded. Empty payloads are refused.
func Save(path string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", tts.EmptyPayloadError(filepath.Base(path))
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", expanded, err)
	}
	return expanded, nil
}

// SaveEntries writes every entry into dir and returns the written paths.
func SaveEntries(dir string, entries []Entry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		p, err := Save(filepath.Join(dir, entry.Name), entry.Data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
