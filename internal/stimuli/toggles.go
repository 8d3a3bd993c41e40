package stimuli

import "stimline-cli/internal/model"

// Toggle helpers for the form surface. Enabling a nullable duration sets
// its default; disabling nulls it. Each runs as one Apply transaction.

func (e *Editor) ToggleStimulusDuration() bool {
	return e.Apply(ConfigPatch{StimulusDuration: msPtr(toggleMS(e.Config().StimulusDuration, DefaultStimulusDurationMS))})
}

func (e *Editor) ToggleInterStimulusInterval() bool {
	return e.Apply(ConfigPatch{InterStimulusInterval: msPtr(toggleMS(e.Config().InterStimulusInterval, DefaultInterStimulusIntervalMS))})
}

func (e *Editor) ToggleFeedbackDuration() bool {
	return e.Apply(ConfigPatch{FeedbackDuration: msPtr(toggleMS(e.Config().FeedbackDuration, DefaultFeedbackDurationMS))})
}

// ToggleLevel flips IsLevel; switching it off resets the level sub-object
// as a side effect of the same transaction.
func (e *Editor) ToggleLevel() bool {
	return e.Apply(ConfigPatch{IsLevel: boolPtr(!e.Config().IsLevel)})
}

func (e *Editor) TogglePractice() bool {
	return e.Apply(ConfigPatch{IsPractice: boolPtr(!e.Config().IsPractice)})
}

func (e *Editor) ToggleAdvanceOnWrong() bool {
	return e.Apply(ConfigPatch{AdvanceOnWrong: boolPtr(!e.Config().AdvanceOnWrong)})
}

func (e *Editor) ToggleRandomize() bool {
	return e.Apply(ConfigPatch{Randomize: boolPtr(!e.Config().Randomize)})
}

func (e *Editor) SetTrials(n int) bool {
	if n < 1 {
		n = 1
	}
	return e.Apply(ConfigPatch{Trials: intPtr(n)})
}

func (e *Editor) SetStimulusDurationMS(ms int) bool {
	return e.Apply(ConfigPatch{StimulusDuration: msPtr(model.EnabledMS(ms))})
}

func (e *Editor) SetInterStimulusIntervalMS(ms int) bool {
	return e.Apply(ConfigPatch{InterStimulusInterval: msPtr(model.EnabledMS(ms))})
}

func (e *Editor) SetFeedbackDurationMS(ms int) bool {
	return e.Apply(ConfigPatch{FeedbackDuration: msPtr(model.EnabledMS(ms))})
}

// SetLevel replaces the level sub-object (the level settings modal writes
// the whole thing at once).
func (e *Editor) SetLevel(level model.LevelConfig) bool {
	return e.Apply(ConfigPatch{Level: levelPtr(level)})
}

func toggleMS(cur model.OptionalMS, def int) model.OptionalMS {
	if cur.Enabled() {
		return model.DisabledMS()
	}
	return model.EnabledMS(def)
}
