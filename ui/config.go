package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Title heads the view, usually the script name.
	Title string
	// Width caps the rendered width. Zero follows the terminal.
	Width int

	NoColor bool `env:"NO_COLOR"`

	// For debugging the UI
	ShowRevisions bool `env:"BLOCKVOX_UI_SHOW_REVISIONS" envDefault:"false"`
}
