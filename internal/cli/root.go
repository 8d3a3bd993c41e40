package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stimline-cli/internal/api"
	"stimline-cli/internal/format"
	"stimline-cli/internal/store"
	"stimline-cli/internal/tui"
)

type App struct {
	ConfigPath string
	BackendURL string
	GatewayURL string
	Token      string
	UserID     string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "stimline",
		Short:        "Experiment timeline CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive timeline editor
  stimline

  # Scriptable commands
  stimline experiments list
  stimline experiments show exp-1a2b3c4d
  stimline steps list exp-1a2b3c4d
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("STIMLINE_CONFIG", ""), "Path to config file (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.BackendURL, "backend", "", "Backend base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.GatewayURL, "gateway", "", "Gateway websocket URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", "", "API token (overrides config)")
	cmd.PersistentFlags().StringVar(&app.UserID, "user", "", "Acting user id (overrides config)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("STIMLINE_FORMAT", "json"), "Output format (json|yaml)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newExperimentsCmd(app))
	cmd.AddCommand(newStepsCmd(app))
	cmd.AddCommand(newTasksCmd(app))

	return cmd
}

func runTUI(app *App) error {
	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

// loadConfig resolves the effective config: file (or defaults when missing),
// then env overrides, then flags.
func loadConfig(app *App) (store.Config, error) {
	var cfg store.Config
	var err error
	if app.ConfigPath != "" {
		cfg, err = store.LoadConfigFromFile(app.ConfigPath)
	} else {
		cfg, err = store.LoadConfig()
	}
	if err != nil {
		return store.Config{}, err
	}

	if app.BackendURL != "" {
		cfg.BackendURL = app.BackendURL
	}
	if app.GatewayURL != "" {
		cfg.GatewayURL = app.GatewayURL
	}
	if app.Token != "" {
		cfg.Token = app.Token
	}
	if app.UserID != "" {
		cfg.UserID = app.UserID
	}
	return cfg, nil
}

func newClient(app *App) (*api.Client, store.Config, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, store.Config{}, err
	}
	return api.NewClient(cfg.BackendURL, cfg.Token), cfg, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
