// Package timeline owns the canonical ordered step sequence for the
// experiment under edit, plus the node/edge graph derived from it for
// interactive layout. Every write path routes through this model; editors
// hold filtered views, never a second source of truth.
package timeline

import (
	"context"
	"reflect"
	"sync"

	"stimline-cli/internal/model"
)

// TaskFetcher is the slice of the backend client the timeline model needs.
type TaskFetcher interface {
	GetTasks(ctx context.Context) ([]model.Task, error)
}

// Node is one graph node derived from a timeline step.
type Node struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind,omitempty"`
	Position int    `json:"position"`
}

// Edge connects two steps in the derived graph. Branch edges come from
// level configs (goToStepId); the rest follow sequence order.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Branch bool   `json:"branch,omitempty"`
}

// Subscriber observes step-sequence changes. It runs synchronously in the
// turn that changed the sequence, outside the model lock, so it may call
// back into the model.
type Subscriber func(old, new []model.TimelineStep)

type Model struct {
	mu    sync.Mutex
	tasks TaskFetcher

	steps   []model.TimelineStep
	nodes   []Node
	edges   []Edge
	catalog []model.Task
	loading bool

	// gen tags in-flight fetches; completions from an older generation
	// are discarded so teardown cannot be resurrected by a late response.
	gen int

	subs         []Subscriber
	lastObserved []model.TimelineStep
}

func New(tasks TaskFetcher) *Model {
	return &Model{tasks: tasks}
}

// Subscribe registers fn for step-sequence change notifications.
func (m *Model) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// FormatToTimeline ingests a backend experiment payload, replacing the
// step sequence and derived graph wholesale. Idempotent: the same payload
// yields the same step identities and order, and fires no notification
// the second time.
func (m *Model) FormatToTimeline(payload model.ExperimentWithTimeline) {
	steps := make([]model.TimelineStep, 0, len(payload.Experiment.Timeline))
	for _, s := range payload.Experiment.Timeline {
		steps = append(steps, s.Clone())
	}
	m.replaceSteps(steps)
}

// Reset clears steps and edges; used on editor teardown. Safe to call
// repeatedly. It advances the fetch generation and fires no notification.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.steps = nil
	m.nodes = nil
	m.edges = nil
	m.loading = false
	m.lastObserved = nil
}

func (m *Model) SetLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}

func (m *Model) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Generation returns the current fetch generation. Async work should
// capture it before suspending and discard its result if it changed.
func (m *Model) Generation() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// LoadTasks fetches the auxiliary task catalog. Failure is non-fatal: the
// previous catalog stays in place and the step sequence is untouched.
func (m *Model) LoadTasks(ctx context.Context) error {
	if m.tasks == nil {
		return nil
	}
	gen := m.Generation()
	catalog, err := m.tasks.GetTasks(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil // stale completion after a reset
	}
	m.catalog = catalog
	return nil
}

func (m *Model) Tasks() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, len(m.catalog))
	copy(out, m.catalog)
	return out
}

func (m *Model) TaskByID(id string) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.catalog {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Steps returns a deep copy of the current step sequence.
func (m *Model) Steps() []model.TimelineStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSteps(m.steps)
}

func (m *Model) StepByID(id string) (model.TimelineStep, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.steps {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return model.TimelineStep{}, false
}

func (m *Model) Nodes() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

func (m *Model) Edges() []Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// ReplaceStep swaps the step with the same ID. Unknown IDs are a no-op
// (stale references are not errors).
func (m *Model) ReplaceStep(step model.TimelineStep) bool {
	return m.mutate(func(steps []model.TimelineStep) ([]model.TimelineStep, bool) {
		for i := range steps {
			if steps[i].ID == step.ID {
				steps[i] = step.Clone()
				return steps, true
			}
		}
		return steps, false
	})
}

// RemoveStep deletes the step with the given ID. Unknown IDs are a no-op.
func (m *Model) RemoveStep(id string) bool {
	return m.mutate(func(steps []model.TimelineStep) ([]model.TimelineStep, bool) {
		for i := range steps {
			if steps[i].ID == id {
				return append(steps[:i], steps[i+1:]...), true
			}
		}
		return steps, false
	})
}

// InsertStepAfter inserts step immediately after afterID, or appends when
// afterID is empty or absent.
func (m *Model) InsertStepAfter(afterID string, step model.TimelineStep) {
	m.mutate(func(steps []model.TimelineStep) ([]model.TimelineStep, bool) {
		step = step.Clone()
		if afterID != "" {
			for i := range steps {
				if steps[i].ID == afterID {
					out := make([]model.TimelineStep, 0, len(steps)+1)
					out = append(out, steps[:i+1]...)
					out = append(out, step)
					out = append(out, steps[i+1:]...)
					return out, true
				}
			}
		}
		return append(steps, step), true
	})
}

// SetOrder replaces the sequence order with the given permutation of the
// current IDs. A permutation that does not contain exactly the current ID
// set is rejected as a no-op.
func (m *Model) SetOrder(ids []string) bool {
	return m.mutate(func(steps []model.TimelineStep) ([]model.TimelineStep, bool) {
		if len(ids) != len(steps) {
			return steps, false
		}
		byID := make(map[string]model.TimelineStep, len(steps))
		for _, s := range steps {
			byID[s.ID] = s
		}
		out := make([]model.TimelineStep, 0, len(steps))
		for _, id := range ids {
			s, ok := byID[id]
			if !ok {
				return steps, false
			}
			delete(byID, id) // duplicates in ids are not a permutation
			out = append(out, s)
		}
		return out, true
	})
}

func (m *Model) mutate(fn func([]model.TimelineStep) ([]model.TimelineStep, bool)) bool {
	m.mu.Lock()
	next, changed := fn(cloneSteps(m.steps))
	m.mu.Unlock()
	if !changed {
		return false
	}
	m.replaceSteps(next)
	return true
}

func (m *Model) replaceSteps(steps []model.TimelineStep) {
	m.mu.Lock()
	m.steps = steps
	m.nodes, m.edges = deriveGraph(steps)

	var prev, next []model.TimelineStep
	var subs []Subscriber
	fire := len(steps) > 0 && !reflect.DeepEqual(steps, m.lastObserved)
	if fire {
		prev = m.lastObserved
		next = cloneSteps(steps)
		m.lastObserved = cloneSteps(steps)
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	// Outside the lock: subscribers may call back into the model.
	for _, fn := range subs {
		fn(prev, next)
	}
}

func deriveGraph(steps []model.TimelineStep) ([]Node, []Edge) {
	nodes := make([]Node, 0, len(steps))
	edges := make([]Edge, 0, len(steps))
	ids := make(map[string]bool, len(steps))
	for i, s := range steps {
		nodes = append(nodes, Node{ID: s.ID, Title: s.Metadata.Title, Kind: s.Kind, Position: i})
		ids[s.ID] = true
	}
	for i := 0; i+1 < len(steps); i++ {
		edges = append(edges, Edge{
			ID:     "edge-" + steps[i].ID + "-" + steps[i+1].ID,
			Source: steps[i].ID,
			Target: steps[i+1].ID,
		})
	}
	// Level configs can branch to an arbitrary step.
	for _, s := range steps {
		for _, b := range s.Metadata.Blocks {
			if b.Config == nil || !b.Config.IsLevel {
				continue
			}
			target := b.Config.Level.GoToStepID
			if target == "" || !ids[target] || target == s.ID {
				continue
			}
			edges = append(edges, Edge{
				ID:     "edge-branch-" + s.ID + "-" + target,
				Source: s.ID,
				Target: target,
				Branch: true,
			})
		}
	}
	return nodes, edges
}

func cloneSteps(steps []model.TimelineStep) []model.TimelineStep {
	if steps == nil {
		return nil
	}
	out := make([]model.TimelineStep, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
