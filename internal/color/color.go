package color

import (
	"fmt"
	"os"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor()}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor() bool {
	// Check NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}

	return true
}

// Fail colors a string to mark violations and missing targets (red)
func (c *Color) Fail(text string) string {
	if !c.enabled {
		return text
	}
	return Red + text + Reset
}

// Warn colors a string to mark non-fatal findings (yellow)
func (c *Color) Warn(text string) string {
	if !c.enabled {
		return text
	}
	return Yellow + text + Reset
}

// OK colors a string to mark a clean result (green)
func (c *Color) OK(text string) string {
	if !c.enabled {
		return text
	}
	return Green + text + Reset
}

// Header colors a section header (cyan)
func (c *Color) Header(text string) string {
	if !c.enabled {
		return text
	}
	return Cyan + text + Reset
}

// Bold makes text bold
func (c *Color) Bold(text string) string {
	if !c.enabled {
		return text
	}
	return Bold + text + Reset
}

// FormatFinding formats one lint finding as "<file>: [<table>] <message>"
func (c *Color) FormatFinding(file, table, msg string) string {
	if table == "" {
		return fmt.Sprintf("%s: %s", c.Header(file), c.Fail(msg))
	}
	return fmt.Sprintf("%s: [%s] %s", c.Header(file), c.Bold(table), c.Fail(msg))
}
