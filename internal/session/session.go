// Package session holds the experiment caches and the editing-page state
// machine: which experiment is selected, which experiments the user can
// act on, and how those caches reconcile when the timeline reports a
// structural change.
package session

import (
	"context"
	"errors"
	"sync"

	"stimline-cli/internal/api"
	"stimline-cli/internal/model"
	"stimline-cli/internal/notify"
	"stimline-cli/internal/timeline"
)

// ErrNotAuthorized marks a viewer who is not in the experiment's
// assigned-scientists list. Terminal for the editing session.
var ErrNotAuthorized = errors.New("not allowed to edit this experiment")

// PageState tracks the editing-page lifecycle.
type PageState int

const (
	StateIdle PageState = iota
	StateAuthorizing
	StateRedirected
	StateEditing
	StateRefreshing
	StateTornDown
)

func (s PageState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthorizing:
		return "authorizing"
	case StateRedirected:
		return "redirected-unauthorized"
	case StateEditing:
		return "editing"
	case StateRefreshing:
		return "refreshing"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Backend is the slice of the api client the session model uses.
type Backend interface {
	GetUserExperiments(ctx context.Context) ([]model.ExperimentWithTimeline, error)
	GetExperimentByID(ctx context.Context, id string) (model.ExperimentWithTimeline, error)
	JoinExperiment(ctx context.Context, experimentID, userID, accessCode string) (api.Response, error)
	AddParticipantToExperiment(ctx context.Context, experimentID, userID string) (api.Response, error)
	GetExperimentParticipants(ctx context.Context, experimentID string) ([]model.Participant, error)
	GetExperimentScientists(ctx context.Context, experimentID string) ([]model.Scientist, error)
	GetUserExperimentResult(ctx context.Context, userID, experimentID string) (api.Response, error)
}

type Model struct {
	client Backend
	tl     *timeline.Model
	notify notify.Notifier
	nav    notify.Navigator

	mu           sync.Mutex
	experiments  []model.ExperimentWithTimeline
	selected     *model.ExperimentWithTimeline
	participants []model.Participant
	scientists   []model.Scientist
	state        PageState
	editingID    string
	// gen tags the editing session; fetches completing after teardown
	// carry an old gen and are discarded.
	gen        int
	refreshing bool
	ctx        context.Context
}

func New(client Backend, tl *timeline.Model, n notify.Notifier, nav notify.Navigator) *Model {
	if n == nil {
		n = notify.NopNotifier()
	}
	if nav == nil {
		nav = notify.NopNavigator()
	}
	m := &Model{client: client, tl: tl, notify: n, nav: nav, ctx: context.Background()}
	if tl != nil {
		tl.Subscribe(m.onStepsChanged)
	}
	return m
}

func (m *Model) State() PageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Experiments returns the cached experiment list.
func (m *Model) Experiments() []model.ExperimentWithTimeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExperimentWithTimeline, len(m.experiments))
	copy(out, m.experiments)
	return out
}

// SetExperiments replaces the experiment list cache.
func (m *Model) SetExperiments(exps []model.ExperimentWithTimeline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experiments = exps
}

// SelectedExperiment returns the selected experiment, if any.
func (m *Model) SelectedExperiment() (model.ExperimentWithTimeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return model.ExperimentWithTimeline{}, false
	}
	return *m.selected, true
}

// SetSelectedExperiment replaces the selected-experiment cache slot.
func (m *Model) SetSelectedExperiment(exp *model.ExperimentWithTimeline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = exp
}

func (m *Model) Participants() []model.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Participant, len(m.participants))
	copy(out, m.participants)
	return out
}

func (m *Model) Scientists() []model.Scientist {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Scientist, len(m.scientists))
	copy(out, m.scientists)
	return out
}

// UserExperiments is cache-first: a non-empty cache is returned as-is. On
// a transport failure the cache is cleared, the user is notified, and the
// failure is not surfaced to the caller.
func (m *Model) UserExperiments(ctx context.Context) []model.ExperimentWithTimeline {
	if cached := m.Experiments(); len(cached) > 0 {
		return cached
	}
	exps, err := m.client.GetUserExperiments(ctx)
	if err != nil {
		m.SetExperiments(nil)
		m.notify.Error("Error fetching experiments")
		return nil
	}
	m.SetExperiments(exps)
	return exps
}

// ExperimentByID always fetches fresh data, bypassing the cache.
func (m *Model) ExperimentByID(ctx context.Context, id string) (model.ExperimentWithTimeline, error) {
	return m.client.GetExperimentByID(ctx, id)
}

func (m *Model) JoinExperiment(ctx context.Context, experimentID, userID, accessCode string) (api.Response, error) {
	return m.client.JoinExperiment(ctx, experimentID, userID, accessCode)
}

func (m *Model) AddParticipantToExperiment(ctx context.Context, experimentID, userID string) (api.Response, error) {
	return m.client.AddParticipantToExperiment(ctx, experimentID, userID)
}

// ExperimentParticipants fetches and caches the participant list. The
// cache slot is written only on success; prior state survives failures.
func (m *Model) ExperimentParticipants(ctx context.Context, experimentID string) []model.Participant {
	out, err := m.client.GetExperimentParticipants(ctx, experimentID)
	if err != nil {
		return m.Participants()
	}
	m.mu.Lock()
	m.participants = out
	m.mu.Unlock()
	return out
}

// ExperimentScientists fetches and caches the scientist list, writing the
// slot only on success.
func (m *Model) ExperimentScientists(ctx context.Context, experimentID string) []model.Scientist {
	out, err := m.client.GetExperimentScientists(ctx, experimentID)
	if err != nil {
		return m.Scientists()
	}
	m.mu.Lock()
	m.scientists = out
	m.mu.Unlock()
	return out
}

func (m *Model) UserExperimentResult(ctx context.Context, userID, experimentID string) (api.Response, error) {
	return m.client.GetUserExperimentResult(ctx, userID, experimentID)
}

// OpenTimeline runs the editing-page entry sequence for viewerID: resolve
// the experiment (cache or fetch), authorize against the scientist list,
// and ingest the timeline. An unauthorized viewer is redirected to the
// experiments list and the timeline is never formatted.
func (m *Model) OpenTimeline(ctx context.Context, experimentID, viewerID string) error {
	m.mu.Lock()
	m.state = StateAuthorizing
	m.editingID = experimentID
	m.ctx = ctx
	gen := m.gen

	var payload model.ExperimentWithTimeline
	found := false
	for _, e := range m.experiments {
		if e.Experiment.ID == experimentID {
			payload = e
			found = true
			break
		}
	}
	m.mu.Unlock()

	if !found {
		fetched, err := m.client.GetExperimentByID(ctx, experimentID)
		if err != nil {
			m.notify.Error("Error fetching experiment")
			m.setStateIfGen(gen, StateIdle)
			return err
		}
		if m.staleGen(gen) {
			return nil
		}
		payload = fetched
		m.SetSelectedExperiment(&fetched)
	} else {
		m.SetSelectedExperiment(&payload)
	}

	if !payload.HasScientist(viewerID) {
		m.notify.Error("You are not allowed to edit this experiment")
		m.nav.Navigate("/experiments")
		m.setStateIfGen(gen, StateRedirected)
		return ErrNotAuthorized
	}

	m.tl.FormatToTimeline(payload)
	m.setStateIfGen(gen, StateEditing)
	return nil
}

// Teardown resets the editing session synchronously. In-flight fetches
// that complete afterwards carry a stale generation and are ignored.
func (m *Model) Teardown() {
	m.mu.Lock()
	m.gen++
	m.state = StateTornDown
	m.editingID = ""
	m.selected = nil
	m.refreshing = false
	m.mu.Unlock()
	m.tl.Reset()
}

// onStepsChanged is the timeline subscription handler: a structural step
// change while editing re-fetches the authoritative experiment, replaces
// the selected cache, and patches the matching list entry by id (not by
// index, which goes stale when the list is refetched concurrently).
func (m *Model) onStepsChanged(prev, next []model.TimelineStep) {
	m.mu.Lock()
	if m.refreshing || m.state != StateEditing || m.editingID == "" {
		m.mu.Unlock()
		return
	}
	m.refreshing = true
	m.state = StateRefreshing
	id := m.editingID
	gen := m.gen
	ctx := m.ctx
	m.mu.Unlock()

	m.tl.SetLoading(true)
	defer m.tl.SetLoading(false)

	fresh, err := m.client.GetExperimentByID(ctx, id)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return // torn down while the fetch was in flight
	}
	if err != nil {
		m.refreshing = false
		m.state = StateEditing
		m.mu.Unlock()
		m.notify.Error("Error refreshing experiment")
		return
	}
	m.selected = &fresh
	for i := range m.experiments {
		if m.experiments[i].Experiment.ID == id {
			m.experiments[i] = fresh
		}
	}
	m.mu.Unlock()

	// Last fetch wins: the authoritative copy replaces the local steps.
	// The deep-equality guard in the timeline stops a change echo when
	// the backend round-trips the same sequence; the refreshing flag
	// stops reentrant reconciliation either way.
	m.tl.FormatToTimeline(fresh)

	m.mu.Lock()
	if m.gen == gen {
		m.refreshing = false
		m.state = StateEditing
	}
	m.mu.Unlock()
}

func (m *Model) staleGen(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen != gen
}

func (m *Model) setStateIfGen(gen int, s PageState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen {
		m.state = s
	}
}
