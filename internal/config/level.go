package config

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a level name to a log level.
func ParseLevel(name string) (log.Level, error) {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
