package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stimline-cli/internal/model"
)

func (m appModel) View() string {
	if !m.seenWindowSize {
		return ""
	}

	var body string
	switch m.view {
	case viewExperiments:
		body = m.viewExperimentsScreen()
	case viewTimeline:
		body = m.viewTimelineScreen()
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		body,
		m.viewFooter(),
	)

	switch m.modal {
	case modalAddStep:
		return overlayCentered(m.width, m.height, m.viewAddStepModal())
	case modalConfig:
		return overlayCentered(m.width, m.height, m.viewConfigModal())
	case modalConfirmRemove:
		return overlayCentered(m.width, m.height, m.viewConfirmRemoveModal())
	}
	return screen
}

func (m appModel) viewHeader() string {
	crumb := "stimline › experiments"
	if m.view == viewTimeline {
		if sel, ok := m.sess.SelectedExperiment(); ok {
			title := strings.TrimSpace(sel.Title)
			if title == "" {
				title = sel.ID
			}
			crumb = "stimline › experiments › " + title
		} else {
			crumb = "stimline › experiments › timeline"
		}
	}
	st := lipgloss.NewStyle().Foreground(colorChromeMutedFg).Bold(true)
	return fitLine(st.Render(crumb), m.width)
}

func (m appModel) viewFooter() string {
	if m.minibufferText != "" {
		st := styleMuted()
		if m.minibufferIsError {
			st = lipgloss.NewStyle().Foreground(colorErrorFg)
		}
		return fitLine(st.Render(m.minibufferText), m.width)
	}

	help := "enter: open   r: reload   tab: preview   q: quit"
	if m.view == viewTimeline {
		help = "enter: configure   a: add   V: duplicate   d: remove   J/K: move   esc: back"
	}
	return fitLine(styleMuted().Render(help), m.width)
}

func (m appModel) viewExperimentsScreen() string {
	paneH := m.height - 2
	if paneH < 1 {
		paneH = 1
	}

	if m.loadingExperiments && len(m.experimentsList.Items()) == 0 {
		return normalizePane(styleMuted().Render("Loading experiments…"), m.width, paneH)
	}
	if len(m.experimentsList.Items()) == 0 {
		return normalizePane(styleMuted().Render("No experiments. Press r to reload."), m.width, paneH)
	}

	if !m.showPreview {
		return normalizePane(m.experimentsList.View(), m.width, paneH)
	}

	listW := m.width / 2
	previewW := m.width - listW - 1
	left := normalizePane(m.experimentsList.View(), listW, paneH)
	right := normalizePane(m.viewExperimentPreview(previewW), previewW, paneH)
	gap := normalizePane("", 1, paneH)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, gap, right)
}

func (m appModel) viewExperimentPreview(width int) string {
	it, ok := m.experimentsList.SelectedItem().(experimentItem)
	if !ok {
		return ""
	}
	exp := it.exp

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(exp.Title))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(exp.ID))
	b.WriteString("\n\n")

	if desc := strings.TrimSpace(exp.Description); desc != "" {
		b.WriteString(renderMarkdown(desc, width))
		b.WriteString("\n\n")
	}

	b.WriteString(styleMuted().Render(fmt.Sprintf("%d scientists   %d timeline steps", len(exp.Scientists), len(exp.Timeline))))
	return b.String()
}

func (m appModel) viewTimelineScreen() string {
	paneH := m.height - 2
	if paneH < 1 {
		paneH = 1
	}

	if m.tl.Loading() {
		return normalizePane(styleMuted().Render("Refreshing…"), m.width, paneH)
	}

	if len(m.stepsList.Items()) == 0 {
		return normalizePane(styleMuted().Render("No stimulus steps. Press a to add one."), m.width, paneH)
	}

	if !m.showPreview {
		return normalizePane(m.stepsList.View(), m.width, paneH)
	}

	listW := m.width / 2
	detailW := m.width - listW - 1
	left := normalizePane(m.stepsList.View(), listW, paneH)
	right := normalizePane(m.viewStepDetail(detailW), detailW, paneH)
	gap := normalizePane("", 1, paneH)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, gap, right)
}

func (m appModel) viewStepDetail(width int) string {
	it, ok := m.stepsList.SelectedItem().(stepItem)
	if !ok {
		return ""
	}
	step := it.step

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(step.Metadata.Title))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(step.ID))
	b.WriteString("\n\n")

	if len(step.Metadata.Blocks) > 0 && step.Metadata.Blocks[0].Config != nil {
		cfg := *step.Metadata.Blocks[0].Config
		for _, row := range configRows(cfg) {
			b.WriteString(fmt.Sprintf("%-22s %s\n", row.label, row.value))
		}
	}

	// Branch targets derived from level configs.
	for _, e := range m.tl.Edges() {
		if e.Branch && e.Source == step.ID {
			if target, ok := m.tl.StepByID(e.Target); ok {
				b.WriteString("\n")
				b.WriteString(styleMuted().Render("on wrong answer → " + target.Metadata.Title))
			}
		}
	}
	return b.String()
}

type configRow struct {
	label string
	value string
}

func configRows(cfg model.StimuliBlockConfig) []configRow {
	rows := []configRow{
		{"Trials", fmt.Sprintf("%d", cfg.Trials)},
		{"Stimulus duration", msValue(cfg.StimulusDuration)},
		{"Inter-stimulus interval", msValue(cfg.InterStimulusInterval)},
		{"Feedback duration", msValue(cfg.FeedbackDuration)},
		{"Level", onOff(cfg.IsLevel)},
	}
	if cfg.IsLevel {
		rows = append(rows, configRow{"Level value", levelValue(cfg)})
	}
	rows = append(rows,
		configRow{"Practice", onOff(cfg.IsPractice)},
		configRow{"Advance on wrong", onOff(cfg.AdvanceOnWrong)},
		configRow{"Randomize", onOff(cfg.Randomize)},
	)
	return rows
}

func msValue(v model.OptionalMS) string {
	ms, ok := v.Value()
	if !ok {
		return "off"
	}
	return fmt.Sprintf("%d ms", ms)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (m appModel) viewAddStepModal() string {
	bodyW := modalBodyWidth(m.width)
	help := styleMuted().Width(bodyW).Render("enter: add   esc: cancel")
	content := strings.Join([]string{
		m.titleInput.View(),
		"",
		help,
	}, "\n")
	return renderModalBox(m.width, "Add stimulus step", content)
}

func (m appModel) viewConfigModal() string {
	cfg := m.editor.Config()

	title := "Block configuration"
	if step, ok := m.editor.EditingStep(); ok {
		t := strings.TrimSpace(step.Metadata.Title)
		if t != "" {
			title = "Block configuration: " + t
		}
	}

	fields := []struct {
		field configField
		label string
		value string
	}{
		{cfgFieldTrials, "Trials", fmt.Sprintf("%d", cfg.Trials)},
		{cfgFieldStimulusDuration, "Stimulus duration", msValue(cfg.StimulusDuration)},
		{cfgFieldInterStimulusInterval, "Inter-stimulus interval", msValue(cfg.InterStimulusInterval)},
		{cfgFieldFeedbackDuration, "Feedback duration", msValue(cfg.FeedbackDuration)},
		{cfgFieldLevel, "Level", onOff(cfg.IsLevel)},
		{cfgFieldLevelValue, "Level value", levelValue(cfg)},
		{cfgFieldPractice, "Practice", onOff(cfg.IsPractice)},
		{cfgFieldAdvanceOnWrong, "Advance on wrong", onOff(cfg.AdvanceOnWrong)},
		{cfgFieldRandomize, "Randomize", onOff(cfg.Randomize)},
	}

	selected := lipgloss.NewStyle().
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	var rows []string
	for _, f := range fields {
		line := fmt.Sprintf("%-24s %s", f.label, f.value)
		if f.field == m.configFocus {
			line = selected.Render("› " + line)
		} else {
			line = "  " + line
		}
		rows = append(rows, line)
	}

	bodyW := modalBodyWidth(m.width)
	help := styleMuted().Width(bodyW).Render("enter/space: toggle   ←/→: adjust   tab: next   esc: close")
	content := strings.Join(rows, "\n") + "\n\n" + help
	return renderModalBox(m.width, title, content)
}

func levelValue(cfg model.StimuliBlockConfig) string {
	if !cfg.IsLevel || cfg.Level.Level == "" {
		return "–"
	}
	return cfg.Level.Level
}

func (m appModel) viewConfirmRemoveModal() string {
	title := "Remove step"
	body := "Remove this step from the timeline?"
	if step, ok := m.tl.StepByID(m.modalForID); ok {
		t := strings.TrimSpace(step.Metadata.Title)
		if t != "" {
			body = fmt.Sprintf("Remove %q from the timeline?", t)
		}
	}
	return renderConfirmModal(m.width, title, body, "Remove", "Cancel", m.confirmFocus)
}
