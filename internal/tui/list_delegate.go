package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type compactItemDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newCompactItemDelegate() compactItemDelegate {
	return compactItemDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d compactItemDelegate) Height() int  { return 1 }
func (d compactItemDelegate) Spacing() int { return 0 }
func (d compactItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d compactItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		fmt.Fprint(w, "")
		return
	}

	style := d.normal
	if index == m.Index() {
		style = d.selected
	}

	txt := ""
	if t, ok := item.(interface{ Title() string }); ok {
		txt = t.Title()
	} else {
		txt = fmt.Sprint(item)
	}

	fmt.Fprint(w, style.Render(fitLine(txt, contentW)))
}

// stepRowDelegate renders timeline step rows with trailing block type/trigger
// columns, e.g. "1. Practice round        Image   Keydown (a)".
type stepRowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	meta     lipgloss.Style
}

func newStepRowDelegate() stepRowDelegate {
	return stepRowDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		meta: styleMuted(),
	}
}

func (d stepRowDelegate) Height() int  { return 1 }
func (d stepRowDelegate) Spacing() int { return 0 }
func (d stepRowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d stepRowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		fmt.Fprint(w, "")
		return
	}

	si, ok := item.(stepItem)
	if !ok {
		fmt.Fprint(w, fitLine(fmt.Sprint(item), contentW))
		return
	}

	style := d.normal
	metaStyle := d.meta
	if index == m.Index() {
		style = d.selected
		metaStyle = d.selected
	}

	meta := fmt.Sprintf("%-8s %s", si.summary.Type, si.summary.Trigger)
	metaW := xansi.StringWidth(meta)

	title := si.Title()
	titleW := contentW - metaW - 2
	if titleW < 8 {
		// Narrow pane: drop the meta columns rather than mangling the title.
		fmt.Fprint(w, style.Render(fitLine(title, contentW)))
		return
	}

	line := fitLine(title, titleW) + "  " + metaStyle.Render(meta)
	fmt.Fprint(w, style.Render(fitLine(line, contentW)))
}

// fitLine pads or truncates a line to exactly width columns (ANSI-aware).
func fitLine(s string, width int) string {
	w := xansi.StringWidth(s)
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	if w > width {
		return xansi.Cut(s, 0, width)
	}
	return s
}
