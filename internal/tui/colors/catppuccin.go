package colors

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha color palette
var (
	// Base colors
	Base     = lipgloss.Color("#1e1e2e") // Dark background
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244") // Surface colors
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8") // Text colors
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4") // Main text

	// Accent colors
	Lavender = lipgloss.Color("#b4befe")
	Blue     = lipgloss.Color("#89b4fa")
	Sky      = lipgloss.Color("#89dceb")
	Teal     = lipgloss.Color("#94e2d5")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Mauve    = lipgloss.Color("#cba6f7")
)

// ForLED maps a channel LED state as reported by the firmware to a palette color
func ForLED(state string) lipgloss.Color {
	s := strings.ToUpper(state)
	switch {
	case strings.HasPrefix(s, "RED"):
		return Red
	case strings.HasPrefix(s, "AMBER"), strings.HasPrefix(s, "YELLOW"):
		return Peach
	case strings.HasPrefix(s, "GREEN"):
		return Green
	case strings.HasPrefix(s, "BLUE"):
		return Blue
	default:
		return Overlay0
	}
}

// ForTemperature colors a board temperature against the warning and trip limits
func ForTemperature(celsius, warn, trip float64) lipgloss.Color {
	switch {
	case celsius >= trip:
		return Red
	case celsius >= warn:
		return Peach
	default:
		return Teal
	}
}
