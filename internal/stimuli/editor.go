// Package stimuli implements the per-block-type configuration editors.
// The multi-trigger editor is a session over the timeline model: it holds
// a working config and the step being edited, but the step sequence stays
// exclusively owned by the timeline model.
package stimuli

import (
	"sync"

	"stimline-cli/internal/model"
	"stimline-cli/internal/notify"
	"stimline-cli/internal/store"
	"stimline-cli/internal/timeline"
)

// Defaults applied when a nullable duration is toggled on, and the upper
// bound on feedback duration (values above it are clamped, not rejected).
const (
	DefaultStimulusDurationMS      = 2000
	DefaultInterStimulusIntervalMS = 1000
	DefaultFeedbackDurationMS      = 1000
	MaxFeedbackDurationMS          = 10000
)

// Editor is one per-block-type editing session.
type Editor struct {
	mu     sync.Mutex
	tl     *timeline.Model
	notify notify.Notifier
	kind   string

	open          bool
	config        model.StimuliBlockConfig
	editingStepID string
}

// NewMultiTrigger returns the multi-trigger stimuli editor bound to tl.
func NewMultiTrigger(tl *timeline.Model, n notify.Notifier) *Editor {
	if n == nil {
		n = notify.NopNotifier()
	}
	return &Editor{tl: tl, notify: n, kind: model.StepKindMultiTriggerStimuli}
}

// DefaultConfig is the working config for a step created from scratch.
func DefaultConfig() model.StimuliBlockConfig {
	return model.StimuliBlockConfig{
		Trials:           1,
		StimulusDuration: model.EnabledMS(DefaultStimulusDurationMS),
	}
}

func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Open activates the configuration surface.
func (e *Editor) Open() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = true
}

// Close discards the working config and editing pointer.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
	e.config = model.StimuliBlockConfig{}
	e.editingStepID = ""
}

func (e *Editor) Config() model.StimuliBlockConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Steps is the ordered view of timeline steps this editor manages: steps
// of its block kind that carry at least one block. Empty-block
// placeholders are valid timeline steps but not orderable here.
func (e *Editor) Steps() []model.TimelineStep {
	var out []model.TimelineStep
	for _, s := range e.tl.Steps() {
		if e.manages(s) {
			out = append(out, s)
		}
	}
	return out
}

func (e *Editor) manages(s model.TimelineStep) bool {
	return s.Kind == e.kind && len(s.Metadata.Blocks) > 0
}

// EditingStep returns the step currently open for detailed editing.
func (e *Editor) EditingStep() (model.TimelineStep, bool) {
	e.mu.Lock()
	id := e.editingStepID
	e.mu.Unlock()
	if id == "" {
		return model.TimelineStep{}, false
	}
	return e.tl.StepByID(id)
}

// SetEditingStep points the editor at an existing step, pre-populating
// the working config from its first configured block. A nil step starts a
// fresh session with defaults.
func (e *Editor) SetEditingStep(step *model.TimelineStep) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if step == nil {
		e.editingStepID = ""
		e.config = DefaultConfig()
		return
	}
	e.editingStepID = step.ID
	e.config = configFromStep(*step)
}

// OpenEditorModal opens the detail editor for the step with the given ID,
// or for a new step when id is empty.
func (e *Editor) OpenEditorModal(id string) {
	if id == "" {
		e.SetEditingStep(nil)
	} else if step, ok := e.tl.StepByID(id); ok {
		e.SetEditingStep(&step)
	} else {
		return // stale reference: no-op
	}
	e.Open()
}

func configFromStep(step model.TimelineStep) model.StimuliBlockConfig {
	for _, b := range step.Metadata.Blocks {
		if b.Config != nil {
			return *b.Config
		}
	}
	return DefaultConfig()
}

// SetConfig merges a partial update into the working config only.
// Unspecified fields are preserved.
func (e *Editor) SetConfig(patch ConfigPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	patch.apply(&e.config)
}

// Apply merges the patch into the working config and propagates it into
// the editing step's persisted block data in the same synchronous turn,
// so no reader observes the two halves out of sync. With no editing step
// (configuring a not-yet-created step) only the working copy updates.
// Stale editing references make the whole call a no-op.
func (e *Editor) Apply(patch ConfigPatch) bool {
	patch = e.validate(patch)

	e.mu.Lock()
	id := e.editingStepID
	var step model.TimelineStep
	if id != "" {
		var ok bool
		step, ok = e.tl.StepByID(id)
		if !ok {
			e.mu.Unlock()
			return false
		}
	}
	patch.apply(&e.config)
	cfg := e.config
	e.mu.Unlock()

	if id == "" {
		return true
	}
	writeConfig(&step, cfg)
	return e.tl.ReplaceStep(step)
}

// validate clamps out-of-range values instead of rejecting them, with a
// notification explaining the correction.
func (e *Editor) validate(patch ConfigPatch) ConfigPatch {
	if patch.FeedbackDuration != nil {
		if ms, ok := patch.FeedbackDuration.Value(); ok && ms > MaxFeedbackDurationMS {
			patch.FeedbackDuration = msPtr(model.EnabledMS(MaxFeedbackDurationMS))
			e.notify.Error("Feedback duration cannot be greater than 10 seconds")
		}
	}
	return patch
}

func writeConfig(step *model.TimelineStep, cfg model.StimuliBlockConfig) {
	// Multi-trigger steps bundle several blocks under one shared config.
	for i := range step.Metadata.Blocks {
		c := cfg
		step.Metadata.Blocks[i].Config = &c
	}
}

// AddStep creates a new step from the working config and appends it to
// the timeline, returning its ID. The new step becomes the editing step.
func (e *Editor) AddStep(title string) string {
	e.mu.Lock()
	cfg := e.config
	e.mu.Unlock()

	id := store.NewStepID()
	c := cfg
	step := model.TimelineStep{
		ID:   id,
		Kind: e.kind,
		Metadata: model.StepMetadata{
			Title:  title,
			Blocks: []model.StimulusBlock{{Type: "image", Config: &c}},
		},
	}
	e.tl.InsertStepAfter("", step)

	e.mu.Lock()
	e.editingStepID = id
	e.mu.Unlock()
	return id
}

// RemoveStep removes a step by ID. An absent ID is a no-op, not a fault.
// Callers must confirm with the user before invoking this.
func (e *Editor) RemoveStep(id string) bool {
	removed := e.tl.RemoveStep(id)
	if removed {
		e.mu.Lock()
		if e.editingStepID == id {
			e.editingStepID = ""
		}
		e.mu.Unlock()
	}
	return removed
}

// RemoveStepConfirmed asks the confirmer first; used by call sites without
// their own dialog surface.
func (e *Editor) RemoveStepConfirmed(c notify.Confirmer, id string) bool {
	if c != nil && !c.Confirm("Remove stimulus", "This action cannot be undone.") {
		return false
	}
	return e.RemoveStep(id)
}

// DuplicateStep deep-copies the step with the given ID under a fresh ID
// and inserts it immediately after the source. Returns the new ID, or ""
// for a stale source reference.
func (e *Editor) DuplicateStep(id string) string {
	src, ok := e.tl.StepByID(id)
	if !ok {
		return ""
	}
	dup := src.Clone()
	dup.ID = store.NewStepID()
	e.tl.InsertStepAfter(id, dup)
	return dup.ID
}

// UpdateOrder reorders the editor's step view. ids must be a permutation
// of exactly the managed step IDs; anything else is a no-op. Steps outside
// this editor's scope keep their positions.
func (e *Editor) UpdateOrder(ids []string) bool {
	managed := e.Steps()
	if len(ids) != len(managed) {
		return false
	}
	byID := make(map[string]bool, len(managed))
	for _, s := range managed {
		byID[s.ID] = true
	}
	for _, id := range ids {
		if !byID[id] {
			return false
		}
		delete(byID, id)
	}

	full := e.tl.Steps()
	order := make([]string, 0, len(full))
	next := 0
	for _, s := range full {
		if e.manages(s) {
			order = append(order, ids[next])
			next++
		} else {
			order = append(order, s.ID)
		}
	}
	return e.tl.SetOrder(order)
}
