// Package ui styles CLI output with ANSI 256 colors.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorOK     = 71  // green
	colorFail   = 167 // red
	colorMuted  = 245 // medium gray
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderOK returns s styled as a success (green).
func RenderOK(s string) string { return paint(colorOK, s) }

// RenderFail returns s styled as a failure (red).
func RenderFail(s string) string { return paint(colorFail, s) }

// RenderStatus colors a health status: SERVING and ok in green, anything
// else in red.
func RenderStatus(status string) string {
	switch status {
	case "ok", "SERVING":
		return RenderOK(status)
	default:
		return RenderFail(status)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
