package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille rendering for high-resolution terminal graphs. Each braille cell
// is a 2x4 dot matrix, so one character row carries four vertical levels
// and one character column carries two samples.
//
// Unicode braille starts at U+2800 with one bit per dot:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8.

const brailleBase = '⠀'

// brailleDots maps (row, column) within a cell to the dot's bit offset.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// sparklineBlocks are single-row block levels, lowest to highest.
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// BrailleGraph renders a braille time-series graph against explicit axis
// bounds, so the axis stays put while values move and only the scaler
// decides when it changes. Data newer than the width right-aligns. Percent
// data colors by severity; other data uses color.
func BrailleGraph(data []float64, lower, upper float64, width, height int, color lipgloss.Color, percent bool) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	resampled := data
	if len(data) > targetPoints {
		resampled = resample(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	colMax := make([]float64, width)
	horizOffset := targetPoints - len(resampled)
	if horizOffset < 0 {
		horizOffset = 0
	}

	for i, val := range resampled {
		norm := normalize(val, lower, upper)
		dotHeight := clampInt(int(norm*float64(totalDots)), totalDots)

		charCol := (i + horizOffset) / 2
		if charCol >= width {
			continue
		}
		if val > colMax[charCol] {
			colMax[charCol] = val
		}
		subCol := (i + horizOffset) % 2

		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - (dot / 4)
			if row < 0 {
				continue
			}
			subRow := 3 - (dot % 4)
			grid[row][charCol] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	var lines []string
	for _, row := range grid {
		var b strings.Builder
		for col, char := range row {
			cellColor := color
			if percent {
				cellColor = MetricColor(colMax[col])
			}
			style := lipgloss.NewStyle().Foreground(cellColor).Background(ColorSurfaceBg)
			b.WriteString(style.Render(string(char)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// MiniSparkline renders a single-row block sparkline against explicit
// bounds, for compact per-core and per-device rows.
func MiniSparkline(data []float64, lower, upper float64, width int, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 {
		return strings.Repeat(" ", width)
	}

	resampled := resample(data, width)
	var b strings.Builder
	for _, val := range resampled {
		norm := normalize(val, lower, upper)
		idx := clampInt(int(norm*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
		b.WriteRune(sparklineBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// normalize maps val into 0..1 within the axis bounds.
func normalize(val, lower, upper float64) float64 {
	if upper <= lower {
		return 0
	}
	n := (val - lower) / (upper - lower)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func clampInt(val, max int) int {
	if val < 0 {
		return 0
	}
	if val > max {
		return max
	}
	return val
}

// resample fits data to targetSize points. Downsampling keeps the max of
// each bucket so short spikes stay visible; upsampling interpolates.
func resample(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) == targetSize {
		return data
	}

	result := make([]float64, targetSize)
	if len(data) == 1 {
		for i := range result {
			result[i] = data[0]
		}
		return result
	}

	if len(data) > targetSize {
		bucket := float64(len(data)) / float64(targetSize)
		for i := 0; i < targetSize; i++ {
			start := int(float64(i) * bucket)
			end := int(float64(i+1) * bucket)
			if end > len(data) {
				end = len(data)
			}
			if start >= end {
				start = end - 1
			}
			max := data[start]
			for j := start + 1; j < end; j++ {
				if data[j] > max {
					max = data[j]
				}
			}
			result[i] = max
		}
		return result
	}

	step := float64(len(data)-1) / float64(targetSize-1)
	for i := 0; i < targetSize; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		if idx >= len(data)-1 {
			result[i] = data[len(data)-1]
		} else {
			result[i] = data[idx]*(1-frac) + data[idx+1]*frac
		}
	}
	return result
}
