package session

import (
	"context"
	"errors"
	"testing"

	"stimline-cli/internal/api"
	"stimline-cli/internal/model"
	"stimline-cli/internal/timeline"
)

type fakeBackend struct {
	experiments	[]model.ExperimentWithTimeline
	byID		map[string]model.ExperimentWithTimeline
	listErr		error
	byIDErr		error
	byIDCalls	int
	listCalls	int
	participants	[]model.Participant
	scientists	[]model.Scientist
	collabErr	error
}

func (f *fakeBackend) GetUserExperiments(ctx context.Context) ([]model.ExperimentWithTimeline, error) {
	f.listCalls++
	return f.experiments, f.listErr
}

func (f *fakeBackend) GetExperimentByID(ctx context.Context, id string) (model.ExperimentWithTimeline, error) {
	f.byIDCalls++
	if f.byIDErr != nil {
		return model.ExperimentWithTimeline{}, f.byIDErr
	}
	return f.byID[id], nil
}

func (f *fakeBackend) JoinExperiment(ctx context.Context, experimentID, userID, accessCode string) (api.Response, error) {
	return api.Response{}, nil
}

func (f *fakeBackend) AddParticipantToExperiment(ctx context.Context, experimentID, userID string) (api.Response, error) {
	return api.Response{}, nil
}

func (f *fakeBackend) GetExperimentParticipants(ctx context.Context, experimentID string) ([]model.Participant, error) {
	return f.participants, f.collabErr
}

func (f *fakeBackend) GetExperimentScientists(ctx context.Context, experimentID string) ([]model.Scientist, error) {
	return f.scientists, f.collabErr
}

func (f *fakeBackend) GetUserExperimentResult(ctx context.Context, userID, experimentID string) (api.Response, error) {
	return api.Response{}, nil
}

type recordingNotifier struct{ errors []string }

func (r *recordingNotifier) Error(msg string) { r.errors = append(r.errors, msg) }

type recordingNavigator struct{ paths []string }

func (r *recordingNavigator) Navigate(path string) { r.paths = append(r.paths, path) }

func expWith(id string, scientistIDs []string, steps ...model.TimelineStep) model.ExperimentWithTimeline {
	var sci []model.Scientist
	for _, s := range scientistIDs {
		sci = append(sci, model.Scientist{User: model.User{ID: s}})
	}
	return model.ExperimentWithTimeline{Experiment: model.Experiment{
		ID:         id,
		Title:      "Exp " + id,
		Scientists: sci,
		Timeline:   steps,
	}}
}

func step(id string) model.TimelineStep {
	return model.TimelineStep{
		ID:   id,
		Kind: model.StepKindMultiTriggerStimuli,
		Metadata: model.StepMetadata{
			Title:  id,
			Blocks: []model.StimulusBlock{{Type: "image"}},
		},
	}
}

func TestUserExperiments_CacheFirst(t *testing.T) {
	f := &fakeBackend{experiments: []model.ExperimentWithTimeline{expWith("e1", nil)}}
	m := New(f, timeline.New(nil), nil, nil)

	first := m.UserExperiments(context.Background())
	second := m.UserExperiments(context.Background())

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected cached list both times")
	}
	if f.listCalls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", f.listCalls)
	}
}

func TestUserExperiments_TransportFailureClearsAndNotifies(t *testing.T) {
	f := &fakeBackend{listErr: errors.New("boom")}
	n := &recordingNotifier{}
	m := New(f, timeline.New(nil), n, nil)
	m.SetExperiments(nil)

	got := m.UserExperiments(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected empty result on failure")
	}
	if len(m.Experiments()) != 0 {
		t.Fatalf("cache should be cleared on failure")
	}
	if len(n.errors) != 1 {
		t.Fatalf("expected a notification, got %v", n.errors)
	}
}

func TestOpenTimeline_UnauthorizedViewerRedirectsWithoutFormatting(t *testing.T) {
	exp := expWith("e1", []string{"u1"}, step("s1"))
	f := &fakeBackend{byID: map[string]model.ExperimentWithTimeline{"e1": exp}}
	n := &recordingNotifier{}
	nav := &recordingNavigator{}
	tl := timeline.New(nil)
	m := New(f, tl, n, nav)

	err := m.OpenTimeline(context.Background(), "e1", "u2")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if m.State() != StateRedirected {
		t.Fatalf("state = %v, want redirected", m.State())
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/experiments" {
		t.Fatalf("expected redirect to /experiments, got %v", nav.paths)
	}
	if len(tl.Steps()) != 0 {
		t.Fatalf("timeline must not be formatted for unauthorized viewers")
	}
	if len(n.errors) == 0 {
		t.Fatalf("expected a user-facing message")
	}
}

func TestOpenTimeline_AuthorizedViewerFormatsTimeline(t *testing.T) {
	exp := expWith("e1", []string{"u1"}, step("s1"), step("s2"))
	f := &fakeBackend{byID: map[string]model.ExperimentWithTimeline{"e1": exp}}
	tl := timeline.New(nil)
	m := New(f, tl, nil, nil)

	if err := m.OpenTimeline(context.Background(), "e1", "u1"); err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	if m.State() != StateEditing {
		t.Fatalf("state = %v, want editing", m.State())
	}
	if got := tl.Steps(); len(got) != 2 {
		t.Fatalf("timeline not ingested: %v", got)
	}
	if sel, ok := m.SelectedExperiment(); !ok || sel.Experiment.ID != "e1" {
		t.Fatalf("selected experiment not set")
	}
}

func TestOpenTimeline_UsesCachedExperiment(t *testing.T) {
	exp := expWith("e1", []string{"u1"}, step("s1"))
	f := &fakeBackend{byID: map[string]model.ExperimentWithTimeline{}}
	tl := timeline.New(nil)
	m := New(f, tl, nil, nil)
	m.SetExperiments([]model.ExperimentWithTimeline{exp})

	if err := m.OpenTimeline(context.Background(), "e1", "u1"); err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	if f.byIDCalls != 0 {
		t.Fatalf("cached entry should avoid the fetch, got %d calls", f.byIDCalls)
	}
}

func TestStepsChanged_RefetchesOnceAndPatchesByID(t *testing.T) {
	edited := expWith("e1", []string{"u1"}, step("s1"))
	other := expWith("e2", []string{"u1"}, step("x1"))

	refreshed := expWith("e1", []string{"u1"}, step("s1"), step("s2"))
	f := &fakeBackend{byID: map[string]model.ExperimentWithTimeline{"e1": edited}}
	tl := timeline.New(nil)
	m := New(f, tl, nil, nil)
	m.SetExperiments([]model.ExperimentWithTimeline{edited, other})

	if err := m.OpenTimeline(context.Background(), "e1", "u1"); err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	calls := f.byIDCalls

	// A structural edit lands in the canonical sequence; the backend now
	// returns the grown timeline.
	f.byID["e1"] = refreshed
	tl.InsertStepAfter("s1", step("s2"))

	if f.byIDCalls != calls+1 {
		t.Fatalf("expected exactly one refresh fetch, got %d", f.byIDCalls-calls)
	}

	exps := m.Experiments()
	if len(exps) != 2 {
		t.Fatalf("experiment list length changed")
	}
	for _, e := range exps {
		switch e.Experiment.ID {
		case "e1":
			if len(e.Experiment.Timeline) != 2 {
				t.Fatalf("edited entry not patched: %v", e.Experiment.Timeline)
			}
		case "e2":
			if len(e.Experiment.Timeline) != 1 || e.Experiment.Timeline[0].ID != "x1" {
				t.Fatalf("unrelated entry clobbered: %v", e.Experiment.Timeline)
			}
		}
	}

	if sel, ok := m.SelectedExperiment(); !ok || len(sel.Experiment.Timeline) != 2 {
		t.Fatalf("selected experiment not replaced")
	}
	if m.State() != StateEditing {
		t.Fatalf("state should settle back to editing, got %v", m.State())
	}
}

func TestStepsChanged_RefreshFailureKeepsEditing(t *testing.T) {
	exp := expWith("e1", []string{"u1"}, step("s1"))
	f := &fakeBackend{byID: map[string]model.ExperimentWithTimeline{"e1": exp}}
	n := &recordingNotifier{}
	tl := timeline.New(nil)
	m := New(f, tl, n, nil)

	if err := m.OpenTimeline(context.Background(), "e1", "u1"); err != nil {
		t.Fatalf("open timeline: %v", err)
	}

	f.byIDErr = errors.New("network down")
	tl.InsertStepAfter("s1", step("s2"))

	if m.State() != StateEditing {
		t.Fatalf("state = %v, want editing after failed refresh", m.State())
	}
	if len(n.errors) == 0 {
		t.Fatalf("expected a refresh failure notification")
	}
	// Local edit survives: last-good state stays visible.
	if got := tl.Steps(); len(got) != 2 {
		t.Fatalf("local edit lost on failed refresh: %v", got)
	}
}

func TestTeardown_ResetsSynchronouslyAndIgnoresStaleFetch(t *testing.T) {
	exp := expWith("e1", []string{"u1"}, step("s1"))
	f := &tearingBackend{inner: &fakeBackend{byID: map[string]model.ExperimentWithTimeline{"e1": exp}}}
	tl := timeline.New(nil)
	m := New(f, tl, nil, nil)
	f.m = m

	if err := m.OpenTimeline(context.Background(), "e1", "u1"); err != nil {
		t.Fatalf("open timeline: %v", err)
	}

	// The refresh fetch triggered by this edit tears the session down
	// mid-flight; its completion must not resurrect cleared state.
	f.tearDownOnNext = true
	tl.InsertStepAfter("s1", step("s2"))

	if m.State() != StateTornDown {
		t.Fatalf("state = %v, want torn-down", m.State())
	}
	if _, ok := m.SelectedExperiment(); ok {
		t.Fatalf("selected experiment resurrected by stale fetch")
	}
	if len(tl.Steps()) != 0 {
		t.Fatalf("timeline resurrected by stale fetch")
	}
}

// tearingBackend tears the session down in the middle of a by-id fetch.
type tearingBackend struct {
	inner          *fakeBackend
	m              *Model
	tearDownOnNext bool
}

func (f *tearingBackend) GetUserExperiments(ctx context.Context) ([]model.ExperimentWithTimeline, error) {
	return f.inner.GetUserExperiments(ctx)
}

func (f *tearingBackend) GetExperimentByID(ctx context.Context, id string) (model.ExperimentWithTimeline, error) {
	if f.tearDownOnNext {
		f.tearDownOnNext = false
		f.m.Teardown()
	}
	return f.inner.GetExperimentByID(ctx, id)
}

func (f *tearingBackend) JoinExperiment(ctx context.Context, experimentID, userID, accessCode string) (api.Response, error) {
	return f.inner.JoinExperiment(ctx, experimentID, userID, accessCode)
}

func (f *tearingBackend) AddParticipantToExperiment(ctx context.Context, experimentID, userID string) (api.Response, error) {
	return f.inner.AddParticipantToExperiment(ctx, experimentID, userID)
}

func (f *tearingBackend) GetExperimentParticipants(ctx context.Context, experimentID string) ([]model.Participant, error) {
	return f.inner.GetExperimentParticipants(ctx, experimentID)
}

func (f *tearingBackend) GetExperimentScientists(ctx context.Context, experimentID string) ([]model.Scientist, error) {
	return f.inner.GetExperimentScientists(ctx, experimentID)
}

func (f *tearingBackend) GetUserExperimentResult(ctx context.Context, userID, experimentID string) (api.Response, error) {
	return f.inner.GetUserExperimentResult(ctx, userID, experimentID)
}

func TestParticipants_CacheWrittenOnlyOnSuccess(t *testing.T) {
	f := &fakeBackend{participants: []model.Participant{{ID: "p1"}}}
	m := New(f, timeline.New(nil), nil, nil)

	got := m.ExperimentParticipants(context.Background(), "e1")
	if len(got) != 1 {
		t.Fatalf("expected one participant")
	}

	f.collabErr = errors.New("boom")
	f.participants = nil
	got = m.ExperimentParticipants(context.Background(), "e1")
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("failure must leave prior cache untouched, got %v", got)
	}
}

func TestScientists_CacheWrittenOnlyOnSuccess(t *testing.T) {
	f := &fakeBackend{scientists: []model.Scientist{{ID: "sc1"}}}
	m := New(f, timeline.New(nil), nil, nil)

	if got := m.ExperimentScientists(context.Background(), "e1"); len(got) != 1 {
		t.Fatalf("expected one scientist")
	}
	f.collabErr = errors.New("boom")
	if got := m.ExperimentScientists(context.Background(), "e1"); len(got) != 1 {
		t.Fatalf("failure must leave prior cache untouched")
	}
}
