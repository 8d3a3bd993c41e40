package cli

import (
	"github.com/spf13/cobra"

	"stimline-cli/internal/stimuli"
	"stimline-cli/internal/timeline"
)

func newStepsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Inspect an experiment's timeline steps",
	}
	cmd.AddCommand(newStepsListCmd(app))
	cmd.AddCommand(newStepsShowCmd(app))
	cmd.AddCommand(newStepsGraphCmd(app))
	return cmd
}

// loadTimeline fetches the experiment and formats it into a timeline model.
func loadTimeline(cmd *cobra.Command, app *App, experimentID string) (*timeline.Model, error) {
	client, _, err := newClient(app)
	if err != nil {
		return nil, err
	}
	exp, err := client.GetExperimentByID(cmd.Context(), experimentID)
	if err != nil {
		return nil, err
	}
	tl := timeline.New(client)
	tl.FormatToTimeline(exp)
	return tl, nil
}

func newStepsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <experiment-id>",
		Short: "List timeline steps with their block type and trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(cmd, app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			type row struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Kind    string `json:"kind,omitempty"`
				Type    string `json:"blockType"`
				Trigger string `json:"trigger"`
			}
			var rows []row
			for _, s := range tl.Steps() {
				sum := stimuli.BlockTypeAndTrigger(s)
				rows = append(rows, row{
					ID:      s.ID,
					Title:   s.Metadata.Title,
					Kind:    s.Kind,
					Type:    sum.Type,
					Trigger: sum.Trigger,
				})
			}
			return writeOut(cmd, app, map[string]any{"data": rows})
		},
	}
}

func newStepsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <experiment-id> <step-id>",
		Short: "Show one timeline step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(cmd, app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			step, ok := tl.StepByID(args[1])
			if !ok {
				return writeErr(cmd, errNotFound("step", args[1]))
			}
			return writeOut(cmd, app, map[string]any{"data": step})
		},
	}
}

func newStepsGraphCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <experiment-id>",
		Short: "Show the derived step graph (nodes and edges)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(cmd, app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"nodes": tl.Nodes(),
				"edges": tl.Edges(),
			}})
		},
	}
}
