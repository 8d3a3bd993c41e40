package stimuli

import (
	"strings"

	"stimline-cli/internal/model"
)

// EmptyMarker is displayed for steps with no triggered block.
const EmptyMarker = "—"

// Summary is the type/trigger projection of a step for manager views.
type Summary struct {
	Type    string
	Trigger string
}

// BlockTypeAndTrigger summarizes a step by its first block with at least
// one trigger. Keydown triggers include the bound key; more than one
// trigger on that block collapses to a "multiple keys" marker instead of
// enumerating. Pure and order-sensitive.
func BlockTypeAndTrigger(step model.TimelineStep) Summary {
	var first *model.StimulusBlock
	for i := range step.Metadata.Blocks {
		if len(step.Metadata.Blocks[i].Triggers) > 0 {
			first = &step.Metadata.Blocks[i]
			break
		}
	}
	if first == nil {
		return Summary{Type: EmptyMarker, Trigger: EmptyMarker}
	}

	meta := first.Triggers[0].Metadata
	trigger := meta.Type
	if meta.Type == model.TriggerKeydown {
		if len(first.Triggers) > 1 {
			trigger = meta.Type + " (multiple keys)"
		} else {
			trigger = meta.Type + " (" + meta.Key + ")"
		}
	}
	return Summary{
		Type:    capitalize(first.Type),
		Trigger: capitalize(trigger),
	}
}

func capitalize(s string) string {
	if s == "" {
		return EmptyMarker
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
