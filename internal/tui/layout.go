package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to be exactly width columns wide (ANSI-aware) and height
// lines tall. This makes split-pane rendering stable when using lipgloss.JoinHorizontal.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")

	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i := range lines {
		ln := lines[i]
		// Fast path: avoid computing StringWidth on extremely long lines (can be slow).
		// If the raw string is huge, it's almost certainly visually wider than the pane;
		// cut it early so subsequent width computations are bounded.
		if width > 0 && len(ln) > 8192 {
			if width == 1 {
				ln = xansi.Cut(ln, 0, 1)
			} else {
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
		}

		w := xansi.StringWidth(ln)

		if w > width {
			if width <= 0 {
				ln = ""
			} else if width == 1 {
				ln = xansi.Cut(ln, 0, 1)
			} else {
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
			w = xansi.StringWidth(ln)
		}
		if w < width {
			ln = ln + strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}

	return strings.Join(lines, "\n")
}

// modalBodyWidth is the usable content width inside a modal box for a given
// terminal width. Keeps modals readable on wide terminals and usable on narrow ones.
func modalBodyWidth(termWidth int) int {
	w := termWidth - 12
	if w > 72 {
		w = 72
	}
	if w < 24 {
		w = 24
	}
	return w
}

// renderModalBox renders a titled modal surface sized for the given terminal width.
// No borders: some terminals show background artifacts when nesting bordered
// components inside a surface with a background color.
func renderModalBox(termWidth int, title string, content string) string {
	bodyW := modalBodyWidth(termWidth)

	header := lipgloss.NewStyle().
		Background(colorModalHeaderBg).
		Foreground(colorModalHeaderFg).
		Bold(true).
		Padding(0, 1).
		Width(bodyW + 2).
		Render(title)

	body := lipgloss.NewStyle().
		Background(colorModalSurfaceBg).
		Foreground(colorModalSurfaceFg).
		Padding(1, 1).
		Width(bodyW + 2).
		Render(lipgloss.NewStyle().Width(bodyW).Render(content))

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// overlayCentered places the modal over the base view, centered. We don't attempt
// true compositing; replacing the whole screen with a centered modal is stable
// across terminals and matches how the rest of the chrome is drawn.
func overlayCentered(width, height int, modal string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
