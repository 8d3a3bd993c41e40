package tui

import (
	"context"
	"errors"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stimline-cli/internal/gateway"
	"stimline-cli/internal/session"
)

const requestTimeout = 30 * time.Second

func clearMinibufferCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return minibufferClearMsg{seq: seq} })
}

func (m appModel) loadExperimentsCmd() tea.Cmd {
	sess, cache := m.sess, m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		exps := sess.UserExperiments(ctx)
		if len(exps) > 0 {
			if cache != nil {
				// Write-through so the list survives backend outages.
				_ = cache.PutExperiments(ctx, exps)
			}
			return experimentsLoadedMsg{experiments: exps}
		}

		// Fetch failed or returned nothing; fall back to the on-disk cache.
		if cache != nil {
			cached, err := cache.ListExperiments(ctx)
			if err == nil && len(cached) > 0 {
				sess.SetExperiments(cached)
				return experimentsLoadedMsg{experiments: cached, fromCache: true}
			}
		}
		return experimentsLoadedMsg{}
	}
}

func (m appModel) openTimelineCmd(experimentID string) tea.Cmd {
	sess, tl, userID := m.sess, m.tl, m.cfg.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		// Task catalog for the step detail pane; a failed load keeps the old catalog.
		_ = tl.LoadTasks(ctx)

		// The session keeps this context for reconcile fetches that outlive
		// the command, so it must not carry the command's deadline. The api
		// client bounds each request on its own.
		err := sess.OpenTimeline(context.Background(), experimentID, userID)
		return timelineOpenedMsg{experimentID: experimentID, err: err}
	}
}

func (m appModel) refreshExperimentCmd(experimentID string) tea.Cmd {
	sess, tl, cache := m.sess, m.tl, m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		exp, err := sess.ExperimentByID(ctx, experimentID)
		if err != nil {
			return toastMsg{text: "Error refreshing experiment", isError: true}
		}
		sess.SetSelectedExperiment(&exp)
		tl.FormatToTimeline(exp)
		if cache != nil {
			_ = cache.PutExperiment(ctx, exp)
		}
		return experimentRefreshedMsg{experimentID: experimentID}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		if !m.seenWindowSize {
			m.seenWindowSize = true
		}
		return m, nil

	case toastMsg:
		return m, m.showMinibuffer(msg.text, msg.isError)

	case minibufferClearMsg:
		// Debounce: only clear if this corresponds to the latest toast.
		if msg.seq == m.minibufferSeq {
			m.minibufferText = ""
			m.minibufferIsError = false
		}
		return m, m.events.wait()

	case navigateMsg:
		// The only navigation target the session emits is the experiments list.
		if msg.path == "/experiments" {
			m.view = viewExperiments
			m.modal = modalNone
			m.refreshExperiments()
		}
		return m, m.events.wait()

	case gatewayEventMsg:
		return m.updateGatewayEvent(msg.event)

	case experimentsLoadedMsg:
		m.loadingExperiments = false
		m.refreshExperiments()
		if msg.fromCache {
			return m, m.showMinibuffer("Offline: showing cached experiments", false)
		}
		return m, nil

	case timelineOpenedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrNotAuthorized) {
				// The session already raised the toast and navigation.
				return m, nil
			}
			return m, nil
		}
		m.view = viewTimeline
		m.refreshExperiments()
		m.refreshSteps()
		return m, nil

	case experimentRefreshedMsg:
		if m.view == viewTimeline {
			m.refreshSteps()
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m, nil
}

func (m appModel) updateGatewayEvent(ev gateway.Event) (tea.Model, tea.Cmd) {
	wait := m.events.wait()

	sel, ok := m.sess.SelectedExperiment()
	if !ok || sel.ID != ev.ExperimentID {
		return m, wait
	}

	switch ev.Type {
	case gateway.EventExperimentUpdated:
		if m.view == viewTimeline {
			return m, tea.Batch(wait, m.refreshExperimentCmd(ev.ExperimentID))
		}
	case gateway.EventExperimentDeleted:
		m.sess.Teardown()
		m.view = viewExperiments
		m.modal = modalNone
		m.refreshExperiments()
		return m, tea.Batch(wait, m.showMinibuffer("Experiment was deleted", true))
	}
	return m, wait
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.modal {
	case modalAddStep:
		return m.updateAddStepModal(msg)
	case modalConfig:
		return m.updateConfigModal(msg)
	case modalConfirmRemove:
		return m.updateConfirmRemoveModal(msg)
	}

	switch m.view {
	case viewExperiments:
		return m.updateExperimentsView(msg)
	case viewTimeline:
		return m.updateTimelineView(msg)
	}
	return m, nil
}

func (m appModel) updateExperimentsView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "r":
		// Drop the in-memory cache so the reload hits the backend.
		m.sess.SetExperiments(nil)
		m.loadingExperiments = true
		return m, m.loadExperimentsCmd()

	case "tab":
		m.showPreview = !m.showPreview
		m.resizeLists()
		return m, nil

	case "enter":
		it, ok := m.experimentsList.SelectedItem().(experimentItem)
		if !ok {
			return m, nil
		}
		return m, m.openTimelineCmd(it.exp.ID)
	}

	var cmd tea.Cmd
	m.experimentsList, cmd = m.experimentsList.Update(msg)
	return m, cmd
}

func (m appModel) updateTimelineView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.sess.Teardown()
		m.view = viewExperiments
		m.refreshExperiments()
		return m, nil

	case "tab":
		m.showPreview = !m.showPreview
		m.resizeLists()
		return m, nil

	case "a":
		m.modal = modalAddStep
		m.titleInput.SetValue("")
		m.titleInput.Focus()
		return m, nil

	case "enter", "e":
		it, ok := m.stepsList.SelectedItem().(stepItem)
		if !ok {
			return m, nil
		}
		m.editor.OpenEditorModal(it.step.ID)
		if !m.editor.IsOpen() {
			// Step vanished between render and keypress.
			m.refreshSteps()
			return m, nil
		}
		m.modal = modalConfig
		m.configFocus = cfgFieldTrials
		return m, nil

	case "V":
		it, ok := m.stepsList.SelectedItem().(stepItem)
		if !ok {
			return m, nil
		}
		id := m.editor.DuplicateStep(it.step.ID)
		m.refreshSteps()
		if id == "" {
			return m, nil
		}
		m.selectStep(id)
		return m, m.showMinibuffer("Duplicated step", false)

	case "d", "backspace":
		it, ok := m.stepsList.SelectedItem().(stepItem)
		if !ok {
			return m, nil
		}
		m.modal = modalConfirmRemove
		m.modalForID = it.step.ID
		m.confirmFocus = confirmFocusCancel
		return m, nil

	case "J":
		return m.moveStep(1), nil

	case "K":
		return m.moveStep(-1), nil
	}

	var cmd tea.Cmd
	m.stepsList, cmd = m.stepsList.Update(msg)
	return m, cmd
}

// moveStep shifts the selected step by delta within the managed sequence.
func (m appModel) moveStep(delta int) appModel {
	it, ok := m.stepsList.SelectedItem().(stepItem)
	if !ok {
		return m
	}
	steps := m.editor.Steps()
	ids := make([]string, len(steps))
	idx := -1
	for i, s := range steps {
		ids[i] = s.ID
		if s.ID == it.step.ID {
			idx = i
		}
	}
	j := idx + delta
	if idx < 0 || j < 0 || j >= len(ids) {
		return m
	}
	ids[idx], ids[j] = ids[j], ids[idx]
	if !m.editor.UpdateOrder(ids) {
		return m
	}
	m.refreshSteps()
	m.selectStep(it.step.ID)
	return m
}

func (m appModel) updateAddStepModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.titleInput.Blur()
		return m, nil

	case "enter":
		title := m.titleInput.Value()
		m.modal = modalNone
		m.titleInput.Blur()
		id := m.editor.AddStep(title)
		m.refreshSteps()
		m.selectStep(id)
		return m, m.showMinibuffer("Added step", false)
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirmRemoveModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.modalForID = ""
		return m, nil

	case "tab", "left", "right":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil

	case "enter":
		id := m.modalForID
		m.modal = modalNone
		m.modalForID = ""
		if m.confirmFocus != confirmFocusConfirm {
			return m, nil
		}
		if !m.editor.RemoveStep(id) {
			m.refreshSteps()
			return m, nil
		}
		m.refreshSteps()
		return m, m.showMinibuffer("Removed step", false)
	}
	return m, nil
}

func (m appModel) updateConfigModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.editor.Close()
		m.modal = modalNone
		m.refreshSteps()
		return m, nil

	case "down", "tab", "j":
		m.configFocus = (m.configFocus + 1) % cfgFieldCount
		return m, nil

	case "up", "shift+tab", "k":
		m.configFocus = (m.configFocus + cfgFieldCount - 1) % cfgFieldCount
		return m, nil

	case "enter", " ":
		m.toggleConfigField()
		m.refreshSteps()
		return m, nil

	case "right", "+", "=":
		m.adjustConfigField(1)
		m.refreshSteps()
		return m, nil

	case "left", "-":
		m.adjustConfigField(-1)
		m.refreshSteps()
		return m, nil
	}
	return m, nil
}

func (m *appModel) toggleConfigField() {
	switch m.configFocus {
	case cfgFieldStimulusDuration:
		m.editor.ToggleStimulusDuration()
	case cfgFieldInterStimulusInterval:
		m.editor.ToggleInterStimulusInterval()
	case cfgFieldFeedbackDuration:
		m.editor.ToggleFeedbackDuration()
	case cfgFieldLevel:
		m.editor.ToggleLevel()
	case cfgFieldPractice:
		m.editor.TogglePractice()
	case cfgFieldAdvanceOnWrong:
		m.editor.ToggleAdvanceOnWrong()
	case cfgFieldRandomize:
		m.editor.ToggleRandomize()
	}
}

// adjustConfigField tweaks the focused numeric field. Durations move in 100ms
// increments; trials and level by one.
func (m *appModel) adjustConfigField(dir int) {
	cfg := m.editor.Config()
	switch m.configFocus {
	case cfgFieldTrials:
		m.editor.SetTrials(cfg.Trials + dir)
	case cfgFieldStimulusDuration:
		if ms, ok := cfg.StimulusDuration.Value(); ok {
			m.editor.SetStimulusDurationMS(clampMS(ms + dir*100))
		}
	case cfgFieldInterStimulusInterval:
		if ms, ok := cfg.InterStimulusInterval.Value(); ok {
			m.editor.SetInterStimulusIntervalMS(clampMS(ms + dir*100))
		}
	case cfgFieldFeedbackDuration:
		if ms, ok := cfg.FeedbackDuration.Value(); ok {
			m.editor.SetFeedbackDurationMS(clampMS(ms + dir*100))
		}
	case cfgFieldLevelValue:
		if cfg.IsLevel {
			lvl := cfg.Level
			// Level rides the wire as a string; parse, step, reformat.
			n, _ := strconv.Atoi(lvl.Level)
			n += dir
			if n < 1 {
				n = 1
			}
			lvl.Level = strconv.Itoa(n)
			m.editor.SetLevel(lvl)
		}
	}
}

func clampMS(ms int) int {
	if ms < 0 {
		return 0
	}
	return ms
}
