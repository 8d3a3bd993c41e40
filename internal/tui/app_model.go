package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stimline-cli/internal/gateway"
	"stimline-cli/internal/model"
	"stimline-cli/internal/session"
	"stimline-cli/internal/stimuli"
	"stimline-cli/internal/store"
	"stimline-cli/internal/timeline"
)

type view int

const (
	viewExperiments view = iota
	viewTimeline
)

type modalKind int

const (
	modalNone modalKind = iota
	modalAddStep
	modalConfig
	modalConfirmRemove
)

// configField enumerates the focusable rows of the block config modal, in
// display order.
type configField int

const (
	cfgFieldTrials configField = iota
	cfgFieldStimulusDuration
	cfgFieldInterStimulusInterval
	cfgFieldFeedbackDuration
	cfgFieldLevel
	cfgFieldLevelValue
	cfgFieldPractice
	cfgFieldAdvanceOnWrong
	cfgFieldRandomize

	cfgFieldCount
)

// uiEvents bridges notifications from the session/editor layers into the
// bubbletea message loop. Sends never block; if the buffer is full the
// notification is dropped (a toast is advisory, not state).
type uiEvents struct {
	ch chan tea.Msg
}

func newUIEvents() *uiEvents {
	return &uiEvents{ch: make(chan tea.Msg, 16)}
}

func (e *uiEvents) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

func (e *uiEvents) Error(msg string)         { e.send(toastMsg{text: msg, isError: true}) }
func (e *uiEvents) Navigate(path string)     { e.send(navigateMsg{path: path}) }
func (e *uiEvents) Gateway(ev gateway.Event) { e.send(gatewayEventMsg{event: ev}) }

func (e *uiEvents) wait() tea.Cmd {
	return func() tea.Msg { return <-e.ch }
}

type toastMsg struct {
	text    string
	isError bool
}

type navigateMsg struct {
	path string
}

type gatewayEventMsg struct {
	event gateway.Event
}

type experimentsLoadedMsg struct {
	experiments []model.ExperimentWithTimeline
	fromCache   bool
}

type timelineOpenedMsg struct {
	experimentID string
	err          error
}

type experimentRefreshedMsg struct {
	experimentID string
}

type minibufferClearMsg struct {
	seq int
}

type appModel struct {
	cfg    store.Config
	sess   *session.Model
	editor *stimuli.Editor
	tl     *timeline.Model
	cache  *store.Cache // nil when the on-disk cache could not be opened
	events *uiEvents

	width  int
	height int

	// We treat the very first WindowSizeMsg as "initial sizing" rather than a
	// user-driven resize, so startup doesn't flash an empty layout.
	seenWindowSize bool

	view view

	experimentsList list.Model
	stepsList       list.Model
	showPreview     bool

	modal        modalKind
	modalForID   string
	confirmFocus confirmModalFocus
	configFocus  configField
	titleInput   textinput.Model

	loadingExperiments bool

	minibufferText    string
	minibufferIsError bool
	minibufferSeq     int
}

func newAppModel(cfg store.Config, sess *session.Model, editor *stimuli.Editor, tl *timeline.Model, cache *store.Cache, events *uiEvents) appModel {
	expList := list.New(nil, newCompactItemDelegate(), 0, 0)
	expList.SetShowTitle(false)
	expList.SetShowStatusBar(false)
	expList.SetShowHelp(false)
	expList.SetFilteringEnabled(false)

	steps := list.New(nil, newStepRowDelegate(), 0, 0)
	steps.SetShowTitle(false)
	steps.SetShowStatusBar(false)
	steps.SetShowHelp(false)
	steps.SetFilteringEnabled(false)

	ti := textinput.New()
	ti.Placeholder = "Step title"
	ti.CharLimit = 120

	return appModel{
		cfg:                cfg,
		sess:               sess,
		editor:             editor,
		tl:                 tl,
		cache:              cache,
		events:             events,
		view:               viewExperiments,
		showPreview:        true,
		loadingExperiments: true,

		experimentsList: expList,
		stepsList:       steps,
		titleInput:      ti,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.events.wait(), m.loadExperimentsCmd())
}

func (m *appModel) resizeLists() {
	listW := m.width
	if m.showPreview {
		listW = m.width / 2
	}
	listH := m.height - 4
	if listH < 1 {
		listH = 1
	}
	m.experimentsList.SetSize(listW, listH)
	m.stepsList.SetSize(listW, listH)
}

// refreshExperiments rebuilds the experiments list from the session, keeping
// the current selection when the selected experiment survives the reload.
func (m *appModel) refreshExperiments() {
	exps := m.sess.Experiments()
	selID := ""
	if cur, ok := m.experimentsList.SelectedItem().(experimentItem); ok {
		selID = cur.exp.ID
	}
	curID := ""
	if sel, ok := m.sess.SelectedExperiment(); ok {
		curID = sel.ID
	}

	items := make([]list.Item, 0, len(exps))
	selIdx := 0
	for i, e := range exps {
		items = append(items, experimentItem{exp: e, current: e.ID == curID})
		if e.ID == selID {
			selIdx = i
		}
	}
	m.experimentsList.SetItems(items)
	m.experimentsList.Select(selIdx)
}

// refreshSteps rebuilds the step rows from the editor's scoped view.
func (m *appModel) refreshSteps() {
	steps := m.editor.Steps()
	selID := ""
	if cur, ok := m.stepsList.SelectedItem().(stepItem); ok {
		selID = cur.step.ID
	}

	items := make([]list.Item, 0, len(steps))
	selIdx := 0
	for i, s := range steps {
		items = append(items, stepItem{
			step:     s,
			summary:  stimuli.BlockTypeAndTrigger(s),
			position: i + 1,
		})
		if s.ID == selID {
			selIdx = i
		}
	}
	m.stepsList.SetItems(items)
	m.stepsList.Select(selIdx)
}

func (m *appModel) selectStep(id string) {
	for i, it := range m.stepsList.Items() {
		if si, ok := it.(stepItem); ok && si.step.ID == id {
			m.stepsList.Select(i)
			return
		}
	}
}

func (m *appModel) showMinibuffer(text string, isError bool) tea.Cmd {
	m.minibufferText = text
	m.minibufferIsError = isError
	m.minibufferSeq++
	seq := m.minibufferSeq
	return clearMinibufferCmd(seq)
}
