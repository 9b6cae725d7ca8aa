// Package display renders a *layout.Layout as a box-drawn ASCII keyboard,
// one grid per layer, in the teacher's visual idiom (box-drawing
// characters and ANSI-coloured banner headers).
package display

import (
	"fmt"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
)

// KeyboardDisplay renders layouts to stdout-ready strings.
type KeyboardDisplay struct {
	showColors bool
}

// NewKeyboardDisplay creates a display handler with the colour preference
// set to on.
func NewKeyboardDisplay() *KeyboardDisplay {
	return &KeyboardDisplay{showColors: true}
}

// SetOptions records the colour preference. RenderLayout and
// PrintFingerWorkload do not read it: their output always contains ANSI
// colour codes.
func (kd *KeyboardDisplay) SetOptions(showColors bool) {
	kd.showColors = showColors
}

const cellWidth = 5

// RenderLayout draws every layer of lo as a box-drawn grid, one key per
// cell, separated by "LAYER N" banners.
func (kd *KeyboardDisplay) RenderLayout(lo *layout.Layout) string {
	var b strings.Builder

	for li := 0; li < lo.NumLayers(); li++ {
		fmt.Fprintf(&b, "\n\033[1;34mLAYER %d\033[0m\n", li)
		kd.renderGrid(&b, lo, li)
	}

	return b.String()
}

func (kd *KeyboardDisplay) renderGrid(b *strings.Builder, lo *layout.Layout, layerIdx int) {
	rows, cols := lo.Rows(), lo.Cols()

	border := func(left, mid, right, fill string) {
		b.WriteString(left)

		for c := 0; c < cols; c++ {
			b.WriteString(strings.Repeat(fill, cellWidth))
			if c < cols-1 {
				b.WriteString(mid)
			}
		}

		b.WriteString(right)
		b.WriteString("\n")
	}

	border("┌", "┬", "┐", "─")

	for r := 0; r < rows; r++ {
		b.WriteString("│")

		for c := 0; c < cols; c++ {
			key, err := lo.Get(layerIdx, r, c)

			cell := "     "
			if err == nil {
				cell = formatCell(key.Value().String())
			}

			b.WriteString(cell)
			b.WriteString("│")
		}

		b.WriteString("\n")

		if r < rows-1 {
			border("├", "┼", "┤", "─")
		}
	}

	border("└", "┴", "┘", "─")
}

// formatCell centers a short token within a fixed-width cell, truncating
// anything too long to fit.
func formatCell(token string) string {
	if len(token) > cellWidth {
		token = token[:cellWidth]
	}

	pad := cellWidth - len(token)
	left := pad / 2
	right := pad - left

	return strings.Repeat(" ", left) + token + strings.Repeat(" ", right)
}

// PrintFingerWorkload renders a horizontal bar chart, under a coloured
// header, of how often each phalanx (hand+finger pair) is used, derived from a
// position -> count map (e.g. accumulated from a dataset's minimum-cost
// typing sequences).
func (kd *KeyboardDisplay) PrintFingerWorkload(counts map[layout.Position]uint64, phalanx *layer.Layer[layer.PhalanxKey]) string {
	var b strings.Builder

	usage := map[layer.PhalanxKey]uint64{}

	var total uint64

	for pos, n := range counts {
		pk, err := phalanx.Get(pos.Row, pos.Col)
		if err != nil {
			continue
		}

		usage[pk] += n
		total += n
	}

	if total == 0 {
		return ""
	}

	fmt.Fprintf(&b, "\n\033[1;35mFINGER WORKLOAD DISTRIBUTION:\033[0m\n")

	var maxUsage uint64
	for _, n := range usage {
		if n > maxUsage {
			maxUsage = n
		}
	}

	for pk, n := range usage {
		percent := float64(n) * 100.0 / float64(total)
		barLen := 0

		if maxUsage > 0 {
			barLen = int(float64(n) * 20.0 / float64(maxUsage))
		}

		bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
		fmt.Fprintf(&b, "   %-18s: %s %5.1f%% (%d)\n", pk.String(), bar, percent, n)
	}

	return b.String()
}
