package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"stimline-cli/internal/model"
	"stimline-cli/internal/store"
)

func newExperimentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "Experiment commands",
	}
	cmd.AddCommand(newExperimentsListCmd(app))
	cmd.AddCommand(newExperimentsShowCmd(app))
	cmd.AddCommand(newExperimentsCreateCmd(app))
	cmd.AddCommand(newExperimentsJoinCmd(app))
	cmd.AddCommand(newExperimentsParticipantsCmd(app))
	cmd.AddCommand(newExperimentsScientistsCmd(app))
	cmd.AddCommand(newExperimentsAddParticipantCmd(app))
	cmd.AddCommand(newExperimentsResultCmd(app))
	return cmd
}

func newExperimentsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the experiments visible to the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			exps, err := client.GetUserExperiments(ctx)
			if err != nil {
				// Backend unreachable: fall back to the on-disk cache.
				if cached, ok := listCachedExperiments(cmd); ok {
					return writeOut(cmd, app, map[string]any{"data": cached, "meta": map[string]any{"cached": true}})
				}
				return writeErr(cmd, err)
			}

			cacheExperiments(cmd, exps)
			return writeOut(cmd, app, map[string]any{"data": exps})
		},
	}
}

func newExperimentsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <experiment-id>",
		Short: "Show one experiment with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			exp, err := client.GetExperimentByID(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			cacheExperiments(cmd, []model.ExperimentWithTimeline{exp})
			return writeOut(cmd, app, map[string]any{"data": exp})
		},
	}
}

func newExperimentsCreateCmd(app *App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			resp, err := client.CreateExperiment(cmd.Context(), model.CreateExperiment{
				Title:       strings.TrimSpace(title),
				Description: description,
				UserID:      cfg.UserID,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if resp.Failed() {
				return writeErr(cmd, apiError(resp.ErrorMessage()))
			}
			return writeOut(cmd, app, resp)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Experiment title")
	cmd.Flags().StringVar(&description, "description", "", "Experiment description (markdown)")
	return cmd
}

func newExperimentsJoinCmd(app *App) *cobra.Command {
	var accessCode string

	cmd := &cobra.Command{
		Use:   "join <experiment-id>",
		Short: "Join an experiment as a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			resp, err := client.JoinExperiment(cmd.Context(), args[0], cfg.UserID, accessCode)
			if err != nil {
				return writeErr(cmd, err)
			}
			if resp.Failed() {
				return writeErr(cmd, apiError(resp.ErrorMessage()))
			}
			return writeOut(cmd, app, resp)
		},
	}

	cmd.Flags().StringVar(&accessCode, "access-code", "", "Access code, when the experiment requires one")
	return cmd
}

func newExperimentsParticipantsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "participants <experiment-id>",
		Short: "List the participants of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			parts, err := client.GetExperimentParticipants(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": parts})
		},
	}
}

func newExperimentsScientistsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scientists <experiment-id>",
		Short: "List the scientists of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			sci, err := client.GetExperimentScientists(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sci})
		},
	}
}

func newExperimentsAddParticipantCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-participant <experiment-id> <user-id>",
		Short: "Add a participant to an experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			resp, err := client.AddParticipantToExperiment(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			if resp.Failed() {
				return writeErr(cmd, apiError(resp.ErrorMessage()))
			}
			return writeOut(cmd, app, resp)
		},
	}
}

func newExperimentsResultCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "result <experiment-id> <user-id>",
		Short: "Fetch one user's result for an experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			resp, err := client.GetUserExperimentResult(cmd.Context(), args[1], args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if resp.Failed() {
				return writeErr(cmd, apiError(resp.ErrorMessage()))
			}
			return writeOut(cmd, app, resp)
		},
	}
}

// cacheExperiments writes fetched experiments through to the on-disk cache.
// Cache trouble never fails the command.
func cacheExperiments(cmd *cobra.Command, exps []model.ExperimentWithTimeline) {
	path, err := store.DefaultCachePath()
	if err != nil {
		return
	}
	c, err := store.OpenCache(path)
	if err != nil {
		return
	}
	defer c.Close()
	_ = c.PutExperiments(cmd.Context(), exps)
}

func listCachedExperiments(cmd *cobra.Command) ([]model.ExperimentWithTimeline, bool) {
	path, err := store.DefaultCachePath()
	if err != nil {
		return nil, false
	}
	c, err := store.OpenCache(path)
	if err != nil {
		return nil, false
	}
	defer c.Close()
	exps, err := c.ListExperiments(cmd.Context())
	if err != nil || len(exps) == 0 {
		return nil, false
	}
	return exps, true
}
