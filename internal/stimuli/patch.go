package stimuli

import "stimline-cli/internal/model"

// ConfigPatch is a partial update to a working StimuliBlockConfig. Nil
// fields are left untouched on merge.
type ConfigPatch struct {
	Trials                *int
	StimulusDuration      *model.OptionalMS
	InterStimulusInterval *model.OptionalMS
	IsLevel               *bool
	Level                 *model.LevelConfig
	IsPractice            *bool
	AdvanceOnWrong        *bool
	Randomize             *bool
	FeedbackDuration      *model.OptionalMS
}

func (p ConfigPatch) apply(cfg *model.StimuliBlockConfig) {
	if p.Trials != nil {
		cfg.Trials = *p.Trials
	}
	if p.StimulusDuration != nil {
		cfg.StimulusDuration = *p.StimulusDuration
	}
	if p.InterStimulusInterval != nil {
		cfg.InterStimulusInterval = *p.InterStimulusInterval
	}
	if p.IsLevel != nil {
		cfg.IsLevel = *p.IsLevel
		if !cfg.IsLevel {
			// Turning the level toggle off resets the whole sub-object.
			cfg.Level = model.LevelConfig{}
		}
	}
	if p.Level != nil {
		cfg.Level = *p.Level
	}
	if p.IsPractice != nil {
		cfg.IsPractice = *p.IsPractice
	}
	if p.AdvanceOnWrong != nil {
		cfg.AdvanceOnWrong = *p.AdvanceOnWrong
	}
	if p.Randomize != nil {
		cfg.Randomize = *p.Randomize
	}
	if p.FeedbackDuration != nil {
		cfg.FeedbackDuration = *p.FeedbackDuration
	}
}

func intPtr(v int) *int                               { return &v }
func boolPtr(v bool) *bool                            { return &v }
func msPtr(v model.OptionalMS) *model.OptionalMS      { return &v }
func levelPtr(v model.LevelConfig) *model.LevelConfig { return &v }
