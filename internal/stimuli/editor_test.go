package stimuli

import (
	"reflect"
	"testing"

	"stimline-cli/internal/model"
	"stimline-cli/internal/notify"
	"stimline-cli/internal/timeline"
)

type recordingNotifier struct {
	errors []string
}

func (r *recordingNotifier) Error(msg string) { r.errors = append(r.errors, msg) }

func managedStep(id, title string) model.TimelineStep {
	return model.TimelineStep{
		ID:   id,
		Kind: model.StepKindMultiTriggerStimuli,
		Metadata: model.StepMetadata{
			Title: title,
			Blocks: []model.StimulusBlock{{
				Type:     "image",
				Triggers: []model.Trigger{{Metadata: model.TriggerMetadata{Type: model.TriggerKeydown, Key: "a"}}},
				Config:   &model.StimuliBlockConfig{Trials: 1},
			}},
		},
	}
}

func newEditor(t *testing.T, steps ...model.TimelineStep) (*Editor, *timeline.Model, *recordingNotifier) {
	t.Helper()
	tl := timeline.New(nil)
	tl.FormatToTimeline(model.ExperimentWithTimeline{Experiment: model.Experiment{
		ID:       "exp-1",
		Timeline: steps,
	}})
	n := &recordingNotifier{}
	return NewMultiTrigger(tl, n), tl, n
}

func TestDuplicateStep_DeepCopyInsertedAfterSource(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"), managedStep("s2", "Two"))

	newID := e.DuplicateStep("s1")
	if newID == "" || newID == "s1" {
		t.Fatalf("expected fresh id, got %q", newID)
	}

	steps := tl.Steps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].ID != "s1" || steps[1].ID != newID || steps[2].ID != "s2" {
		t.Fatalf("duplicate not inserted after source: %v", []string{steps[0].ID, steps[1].ID, steps[2].ID})
	}

	src, _ := tl.StepByID("s1")
	dup, _ := tl.StepByID(newID)
	if !reflect.DeepEqual(src.Metadata.Blocks, dup.Metadata.Blocks) {
		t.Fatalf("duplicated blocks differ from source")
	}

	// Mutating the copy must not touch the original.
	dup.Metadata.Blocks[0].Triggers[0].Metadata.Key = "z"
	tl.ReplaceStep(dup)
	src, _ = tl.StepByID("s1")
	if src.Metadata.Blocks[0].Triggers[0].Metadata.Key != "a" {
		t.Fatalf("mutating the duplicate leaked into the source")
	}
}

func TestDuplicateStep_StaleSourceIsNoOp(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	if id := e.DuplicateStep("missing"); id != "" {
		t.Fatalf("expected empty id for stale source, got %q", id)
	}
	if len(tl.Steps()) != 1 {
		t.Fatalf("sequence changed on stale duplicate")
	}
}

func TestRemoveStep_StaleIDIsNoOp(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	if e.RemoveStep("missing") {
		t.Fatalf("expected no-op for stale id")
	}
	if !e.RemoveStep("s1") {
		t.Fatalf("expected removal of existing step")
	}
	if len(tl.Steps()) != 0 {
		t.Fatalf("step not removed")
	}
}

func TestRemoveStepConfirmed_DeclinedKeepsStep(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	if e.RemoveStepConfirmed(notify.AlwaysConfirm(false), "s1") {
		t.Fatalf("declined confirmation must not remove")
	}
	if len(tl.Steps()) != 1 {
		t.Fatalf("step removed despite declined confirmation")
	}
	if !e.RemoveStepConfirmed(notify.AlwaysConfirm(true), "s1") {
		t.Fatalf("confirmed removal failed")
	}
}

func TestUpdateOrder_RejectsIncompletePermutation(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"), managedStep("s2", "Two"), managedStep("s3", "Three"))

	if e.UpdateOrder([]string{"s3", "s1"}) {
		t.Fatalf("expected rejection of incomplete permutation")
	}
	got := tl.Steps()
	if got[0].ID != "s1" || got[1].ID != "s2" || got[2].ID != "s3" {
		t.Fatalf("sequence changed on rejected reorder")
	}

	if !e.UpdateOrder([]string{"s3", "s1", "s2"}) {
		t.Fatalf("valid permutation rejected")
	}
	got = tl.Steps()
	if got[0].ID != "s3" || got[1].ID != "s1" || got[2].ID != "s2" {
		t.Fatalf("reorder not applied: %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestUpdateOrder_LeavesUnmanagedStepsInPlace(t *testing.T) {
	other := model.TimelineStep{
		ID:   "seq-1",
		Kind: model.StepKindSequentialStimuli,
		Metadata: model.StepMetadata{
			Title:  "Sequential",
			Blocks: []model.StimulusBlock{{Type: "text"}},
		},
	}
	e, tl, _ := newEditor(t, managedStep("s1", "One"), other, managedStep("s2", "Two"))

	if !e.UpdateOrder([]string{"s2", "s1"}) {
		t.Fatalf("scoped reorder rejected")
	}
	got := tl.Steps()
	if got[0].ID != "s2" || got[1].ID != "seq-1" || got[2].ID != "s1" {
		t.Fatalf("unmanaged step moved: %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestSteps_ScopedToKindAndNonEmptyBlocks(t *testing.T) {
	placeholder := model.TimelineStep{
		ID:       "empty-1",
		Kind:     model.StepKindMultiTriggerStimuli,
		Metadata: model.StepMetadata{Title: "Placeholder"},
	}
	other := model.TimelineStep{
		ID:       "seq-1",
		Kind:     model.StepKindSequentialStimuli,
		Metadata: model.StepMetadata{Title: "Seq", Blocks: []model.StimulusBlock{{Type: "text"}}},
	}
	e, _, _ := newEditor(t, managedStep("s1", "One"), placeholder, other)

	steps := e.Steps()
	if len(steps) != 1 || steps[0].ID != "s1" {
		t.Fatalf("unexpected scoped view: %v", steps)
	}
}

func TestToggleStimulusDuration_RoundTrip(t *testing.T) {
	e, _, _ := newEditor(t)
	e.SetEditingStep(nil)

	// DefaultConfig enables stimulus duration, so first toggle disables.
	e.ToggleStimulusDuration()
	if e.Config().StimulusDuration.Enabled() {
		t.Fatalf("expected disabled after toggle")
	}
	e.ToggleStimulusDuration()
	if ms, ok := e.Config().StimulusDuration.Value(); !ok || ms != DefaultStimulusDurationMS {
		t.Fatalf("expected enabled at default %d, got %v", DefaultStimulusDurationMS, e.Config().StimulusDuration)
	}
	e.ToggleStimulusDuration()
	if e.Config().StimulusDuration.Enabled() {
		t.Fatalf("round-tripping twice must return to disabled")
	}
}

func TestToggleFeedbackDuration_DefaultsTo1000(t *testing.T) {
	e, _, _ := newEditor(t)
	e.SetEditingStep(nil)
	e.ToggleFeedbackDuration()
	if ms, ok := e.Config().FeedbackDuration.Value(); !ok || ms != DefaultFeedbackDurationMS {
		t.Fatalf("feedback default = %v, want %d", e.Config().FeedbackDuration, DefaultFeedbackDurationMS)
	}
}

func TestSetFeedbackDuration_ClampsAndNotifies(t *testing.T) {
	e, tl, n := newEditor(t, managedStep("s1", "One"))
	step, _ := tl.StepByID("s1")
	e.SetEditingStep(&step)

	e.SetFeedbackDurationMS(15000)

	if ms, _ := e.Config().FeedbackDuration.Value(); ms != MaxFeedbackDurationMS {
		t.Fatalf("working config not clamped: %v", e.Config().FeedbackDuration)
	}
	persisted, _ := tl.StepByID("s1")
	cfg := persisted.Metadata.Blocks[0].Config
	if cfg == nil {
		t.Fatalf("config not written through to step")
	}
	if ms, _ := cfg.FeedbackDuration.Value(); ms != MaxFeedbackDurationMS {
		t.Fatalf("persisted config not clamped: %v", cfg.FeedbackDuration)
	}
	if len(n.errors) != 1 {
		t.Fatalf("expected one clamp notification, got %v", n.errors)
	}
}

func TestToggleLevel_OffResetsLevelConfig(t *testing.T) {
	e, _, _ := newEditor(t)
	e.SetEditingStep(nil)

	amount := 3
	e.SetConfig(ConfigPatch{
		IsLevel: boolPtr(true),
		Level:   levelPtr(model.LevelConfig{Level: "2", RepeatAmount: &amount, GoToStepID: "s9"}),
	})
	if e.Config().Level.GoToStepID != "s9" {
		t.Fatalf("level config not set")
	}

	e.ToggleLevel()
	cfg := e.Config()
	if cfg.IsLevel {
		t.Fatalf("expected level off")
	}
	if cfg.Level != (model.LevelConfig{}) {
		t.Fatalf("level sub-object not reset: %+v", cfg.Level)
	}
}

func TestApply_WorkingCopyAndStepNeverDiverge(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	step, _ := tl.StepByID("s1")
	e.SetEditingStep(&step)

	e.SetTrials(7)

	if e.Config().Trials != 7 {
		t.Fatalf("working copy missed the update")
	}
	persisted, _ := tl.StepByID("s1")
	for _, b := range persisted.Metadata.Blocks {
		if b.Config == nil || b.Config.Trials != 7 {
			t.Fatalf("step data missed the update: %+v", b.Config)
		}
	}
}

func TestApply_StaleEditingStepIsNoOp(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	step, _ := tl.StepByID("s1")
	e.SetEditingStep(&step)
	tl.RemoveStep("s1")

	before := e.Config()
	if e.SetTrials(9) {
		t.Fatalf("expected no-op against removed step")
	}
	if e.Config() != before {
		t.Fatalf("working copy changed despite stale step")
	}
}

func TestSetConfig_PreservesUnspecifiedFields(t *testing.T) {
	e, _, _ := newEditor(t)
	e.SetEditingStep(nil)

	e.SetConfig(ConfigPatch{Trials: intPtr(5)})
	e.SetConfig(ConfigPatch{Randomize: boolPtr(true)})

	cfg := e.Config()
	if cfg.Trials != 5 || !cfg.Randomize {
		t.Fatalf("partial merges clobbered fields: %+v", cfg)
	}
	if ms, ok := cfg.StimulusDuration.Value(); !ok || ms != DefaultStimulusDurationMS {
		t.Fatalf("default stimulus duration lost: %v", cfg.StimulusDuration)
	}
}

func TestOpenEditorModal_PrepopulatesFromStep(t *testing.T) {
	step := managedStep("s1", "One")
	step.Metadata.Blocks[0].Config = &model.StimuliBlockConfig{Trials: 4, Randomize: true}
	e, _, _ := newEditor(t, step)

	e.OpenEditorModal("s1")
	if !e.IsOpen() {
		t.Fatalf("editor should be open")
	}
	cfg := e.Config()
	if cfg.Trials != 4 || !cfg.Randomize {
		t.Fatalf("config not pre-populated: %+v", cfg)
	}
	if got, ok := e.EditingStep(); !ok || got.ID != "s1" {
		t.Fatalf("editing step not set")
	}
}

func TestOpenEditorModal_NewStepGetsDefaults(t *testing.T) {
	e, _, _ := newEditor(t)
	e.OpenEditorModal("")
	cfg := e.Config()
	if cfg.Trials != 1 {
		t.Fatalf("expected default trials, got %d", cfg.Trials)
	}
	if _, ok := e.EditingStep(); ok {
		t.Fatalf("new session must not point at a step")
	}
}

func TestAddStep_AppendsAndBecomesEditingStep(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	e.SetEditingStep(nil)
	e.SetConfig(ConfigPatch{Trials: intPtr(6)})

	id := e.AddStep("New stimulus")
	steps := tl.Steps()
	if len(steps) != 2 || steps[1].ID != id {
		t.Fatalf("new step not appended")
	}
	if steps[1].Metadata.Blocks[0].Config.Trials != 6 {
		t.Fatalf("working config not carried into new step")
	}
	if got, ok := e.EditingStep(); !ok || got.ID != id {
		t.Fatalf("new step should become the editing step")
	}
}

func TestClose_DiscardsWorkingState(t *testing.T) {
	e, tl, _ := newEditor(t, managedStep("s1", "One"))
	step, _ := tl.StepByID("s1")
	e.SetEditingStep(&step)
	e.Open()

	e.Close()
	if e.IsOpen() {
		t.Fatalf("editor still open")
	}
	if _, ok := e.EditingStep(); ok {
		t.Fatalf("editing pointer survived close")
	}
}
