package tui

import (
	"fmt"
	"strings"

	"stimline-cli/internal/model"
	"stimline-cli/internal/stimuli"
)

type experimentItem struct {
	exp     model.ExperimentWithTimeline
	current bool
}

func (i experimentItem) FilterValue() string { return i.exp.Title }
func (i experimentItem) Title() string {
	t := strings.TrimSpace(i.exp.Title)
	if t == "" {
		t = "(untitled experiment)"
	}
	if i.current {
		return t + " •"
	}
	return t
}
func (i experimentItem) Description() string { return i.exp.ID }

type stepItem struct {
	step    model.TimelineStep
	summary stimuli.Summary
	// position within the managed step sequence, 1-based; used for the row prefix.
	position int
}

func (i stepItem) FilterValue() string { return i.step.Metadata.Title }
func (i stepItem) Title() string {
	t := strings.TrimSpace(i.step.Metadata.Title)
	if t == "" {
		t = "(untitled step)"
	}
	return fmt.Sprintf("%d. %s", i.position, t)
}
func (i stepItem) Description() string { return i.step.ID }
