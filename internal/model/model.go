package model

// Step kinds the timeline editor knows how to configure. Each kind has its
// own editor surface; the backend stores them in the same step sequence.
const (
	StepKindMultiTriggerStimuli = "multiTriggerStimuli"
	StepKindSequentialStimuli   = "sequentialStimuli"
)

// Trigger types carried in trigger metadata.
const (
	TriggerKeydown = "keydown"
	TriggerTimeout = "timeout"
)

type TriggerMetadata struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

type Trigger struct {
	Metadata TriggerMetadata `json:"metadata"`
}

type StimulusBlock struct {
	Type     string              `json:"type"`
	Triggers []Trigger           `json:"triggers,omitempty"`
	Config   *StimuliBlockConfig `json:"config,omitempty"`
}

type StepMetadata struct {
	Title  string          `json:"title"`
	Blocks []StimulusBlock `json:"blocks,omitempty"`
}

// TimelineStep is one node in the protocol sequence. IDs are unique across
// the full sequence. A step with no blocks is a valid placeholder.
type TimelineStep struct {
	ID       string       `json:"id"`
	Kind     string       `json:"type,omitempty"`
	Metadata StepMetadata `json:"metadata"`
}

// Clone returns a deep copy sharing no mutable structure with s.
func (s TimelineStep) Clone() TimelineStep {
	out := s
	out.Metadata.Blocks = CloneBlocks(s.Metadata.Blocks)
	return out
}

func CloneBlocks(blocks []StimulusBlock) []StimulusBlock {
	if blocks == nil {
		return nil
	}
	out := make([]StimulusBlock, len(blocks))
	for i, b := range blocks {
		nb := b
		if b.Triggers != nil {
			nb.Triggers = make([]Trigger, len(b.Triggers))
			copy(nb.Triggers, b.Triggers)
		}
		if b.Config != nil {
			cfg := *b.Config
			nb.Config = &cfg
		}
		out[i] = nb
	}
	return out
}

// LevelConfig holds branching/mastery rules for a block. Only meaningful
// while the owning config has IsLevel set; turning IsLevel off resets it.
type LevelConfig struct {
	Level         string `json:"level,omitempty"`
	RepeatAmount  *int   `json:"repeatAmount,omitempty"`
	OnWrongAnswer string `json:"onWrongAnswer,omitempty"`
	RepeatOnWrong *bool  `json:"repeatOnWrong,omitempty"`
	GoToStepID    string `json:"goToStepId,omitempty"`
}

// StimuliBlockConfig is the editable configuration surface for a block.
// Nullable millisecond fields use OptionalMS: enabled-ness is derived from
// the variant, never from a separate flag.
type StimuliBlockConfig struct {
	Trials                int         `json:"trials"`
	StimulusDuration      OptionalMS  `json:"stimulusDuration"`
	InterStimulusInterval OptionalMS  `json:"interStimulusInterval"`
	IsLevel               bool        `json:"isLevel"`
	Level                 LevelConfig `json:"level"`
	IsPractice            bool        `json:"isPractice"`
	AdvanceOnWrong        bool        `json:"advanceOnWrong"`
	Randomize             bool        `json:"randomize"`
	FeedbackDuration      OptionalMS  `json:"feedbackDuration"`
}
