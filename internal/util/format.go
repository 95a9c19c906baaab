// Package util provides small formatting helpers shared across the UI.
package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatBytes formats a byte count as a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		if bytes < 0 {
			bytes = 0
		}
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	switch {
	case bytesPerSecond < 1024:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	case bytesPerSecond < 1024*1024:
		return fmt.Sprintf("%.1f KiB/s", bytesPerSecond/1024)
	case bytesPerSecond < 1024*1024*1024:
		return fmt.Sprintf("%.1f MiB/s", bytesPerSecond/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GiB/s", bytesPerSecond/(1024*1024*1024))
	}
}

// FormatPercent formats a percentage with one decimal, and a dash when no
// measurement exists yet.
func FormatPercent(p float64) string {
	if p != p { // NaN
		return "-"
	}
	return fmt.Sprintf("%.1f%%", p)
}

// FormatWindow renders a graph span compactly, e.g. "90s" or "2m".
func FormatWindow(d time.Duration) string {
	if d < time.Minute || d%time.Minute != 0 {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// PadRight pads s with spaces to width, truncating if longer.
func PadRight(s string, width int) string {
	if len([]rune(s)) > width {
		return Truncate(s, width)
	}
	return s + strings.Repeat(" ", width-len([]rune(s)))
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
