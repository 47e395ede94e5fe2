// Package main provides the entry point for the blockvox CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/blockvox/internal/config"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	verbose    bool
	engineFlag string
	voiceFlag  string

	// defaultConfigFile is created by "blockvox config" when no file was found.
	defaultConfigFile string

	// cfg is loaded before every command runs.
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "blockvox",
		Short: "Turn text blocks into speech, one voice per block",
		Long: paragraph(
			fmt.Sprintf("\nTurn scripts of text blocks into %s, generated one block at a time and exported as MP3.", keyword("speech")),
		),
		SilenceErrors:    true,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}
)

func loadConfig(cmd *cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	loaded, err := config.LoadFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("engine") || cmd.Flags().Changed("voice") {
		if engineFlag != "" {
			loaded.Engine = engineFlag
		}
		if voiceFlag != "" {
			loaded.DefaultVoice = voiceFlag
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
	}
	cfg = loaded

	lvl, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)
	log.Debug("configuration loaded", "file", viper.ConfigFileUsed(), "engine", cfg.Engine, "voice", cfg.DefaultVoice)
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().StringVarP(&engineFlag, "engine", "e", "", "speech engine (gemini or mock)")
	rootCmd.PersistentFlags().StringVar(&voiceFlag, "voice", "", "default voice for blocks that name none")

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(
		generateCmd,
		watchCmd,
		playCmd,
		voicesCmd,
		serveCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "blockvox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "blockvox")}, dirs...)
	}

	if c := os.Getenv("BLOCKVOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	viper.AddConfigPath(".")
	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("blockvox")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	defaultConfigFile = filepath.Join(dirs[0], "blockvox.yml")
}
