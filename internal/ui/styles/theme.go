// Package styles holds the colors and symbols loom renders with.
//
// Call Init once with the [ui] settings before rendering; until then the
// default theme and ASCII-safe symbols are active.
package styles

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/raphi011/loom/internal/config"
)

// Theme defines the color palette for UI components
type Theme struct {
	Name    string
	Primary color.Color // headers, keys
	Accent  color.Color // identifiers
	Success color.Color // open items
	Error   color.Color // errors
	Muted   color.Color // closed items, timestamps
	Normal  color.Color // standard text
	Info    color.Color // informational text
	Warning color.Color // warnings
}

// Preset themes
var (
	// DefaultTheme is the default color scheme
	DefaultTheme = Theme{
		Name:    "default",
		Primary: lipgloss.Color("62"),  // cyan/teal
		Accent:  lipgloss.Color("212"), // pink/magenta
		Success: lipgloss.Color("82"),  // green
		Error:   lipgloss.Color("196"), // red
		Muted:   lipgloss.Color("240"), // dark gray
		Normal:  lipgloss.Color("252"), // light gray
		Info:    lipgloss.Color("244"), // gray
		Warning: lipgloss.Color("214"), // orange
	}

	DraculaTheme = Theme{
		Name:    "dracula",
		Primary: lipgloss.Color("#bd93f9"), // purple
		Accent:  lipgloss.Color("#ff79c6"), // pink
		Success: lipgloss.Color("#50fa7b"), // green
		Error:   lipgloss.Color("#ff5555"), // red
		Muted:   lipgloss.Color("#6272a4"), // comment
		Normal:  lipgloss.Color("#f8f8f2"), // foreground
		Info:    lipgloss.Color("#8be9fd"), // cyan
		Warning: lipgloss.Color("#ffb86c"), // orange
	}

	NordTheme = Theme{
		Name:    "nord",
		Primary: lipgloss.Color("#88c0d0"), // nord8 (frost cyan)
		Accent:  lipgloss.Color("#b48ead"), // nord15 (aurora purple)
		Success: lipgloss.Color("#a3be8c"), // nord14 (aurora green)
		Error:   lipgloss.Color("#bf616a"), // nord11 (aurora red)
		Muted:   lipgloss.Color("#4c566a"), // nord3 (polar night)
		Normal:  lipgloss.Color("#eceff4"), // nord6 (snow storm)
		Info:    lipgloss.Color("#81a1c1"), // nord9 (frost blue)
		Warning: lipgloss.Color("#ebcb8b"), // nord13 (aurora yellow)
	}

	GruvboxTheme = Theme{
		Name:    "gruvbox",
		Primary: lipgloss.Color("#83a598"), // blue
		Accent:  lipgloss.Color("#d3869b"), // purple
		Success: lipgloss.Color("#b8bb26"), // green
		Error:   lipgloss.Color("#fb4934"), // red
		Muted:   lipgloss.Color("#665c54"), // gray
		Normal:  lipgloss.Color("#ebdbb2"), // foreground
		Info:    lipgloss.Color("#8ec07c"), // aqua
		Warning: lipgloss.Color("#fabd2f"), // yellow
	}

	// NoneTheme renders without any colors (uses terminal defaults).
	// Bold and underline are kept.
	NoneTheme = Theme{
		Name:    "none",
		Primary: lipgloss.NoColor{},
		Accent:  lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Normal:  lipgloss.NoColor{},
		Info:    lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
	}
)

var presets = map[string]Theme{
	"default": DefaultTheme,
	"dracula": DraculaTheme,
	"nord":    NordTheme,
	"gruvbox": GruvboxTheme,
	"none":    NoneTheme,
}

// Styles derived from the current theme. Reassigned by Init.
var (
	Bold         = lipgloss.NewStyle().Bold(true)
	PrimaryStyle lipgloss.Style
	AccentStyle  lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	MutedStyle   lipgloss.Style
	NormalStyle  lipgloss.Style
	InfoStyle    lipgloss.Style
	WarningStyle lipgloss.Style
)

var currentTheme = DefaultTheme

func init() {
	applyTheme(DefaultTheme)
}

// Current returns the active theme.
func Current() Theme {
	return currentTheme
}

// Init selects the theme and symbol set. Unknown theme names fall back
// to the default; settings validation rejects them earlier.
func Init(cfg config.UIConfig) {
	theme, ok := presets[cfg.Theme]
	if !ok {
		theme = DefaultTheme
	}
	currentTheme = theme
	applyTheme(theme)
	SetNerdfont(cfg.Nerdfont)
}

func applyTheme(t Theme) {
	PrimaryStyle = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	AccentStyle = lipgloss.NewStyle().Foreground(t.Accent)
	SuccessStyle = lipgloss.NewStyle().Foreground(t.Success)
	ErrorStyle = lipgloss.NewStyle().Foreground(t.Error)
	MutedStyle = lipgloss.NewStyle().Foreground(t.Muted)
	NormalStyle = lipgloss.NewStyle().Foreground(t.Normal)
	InfoStyle = lipgloss.NewStyle().Foreground(t.Info).Italic(true)
	WarningStyle = lipgloss.NewStyle().Foreground(t.Warning)
}
