package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/blockvox/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the blockvox config file",
	Long:    paragraph(fmt.Sprintf("\n%s the blockvox config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("blockvox config\nblockvox config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// A broken config file must still be editable.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		file, err := ensureConfigFile(configPath())
		if err != nil {
			return err
		}

		c, err := editor.Cmd("blockvox", file)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", file)
		return nil
	},
}

// configPath picks the --config flag, then the file viper found, then the
// default location.
func configPath() string {
	switch {
	case configFile != "":
		return configFile
	case viper.ConfigFileUsed() != "":
		return viper.ConfigFileUsed()
	default:
		return defaultConfigFile
	}
}

// ensureConfigFile writes the default template to file if it doesn't exist.
func ensureConfigFile(file string) (string, error) {
	if file == "" {
		return "", errors.New("no configuration path available")
	}
	if ext := path.Ext(file); ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return "", fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(file) //nolint:gosec
		if err != nil {
			return "", fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(config.Template); err != nil {
			return "", fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("unable to stat config file: %w", err)
	}
	return file, nil
}
