package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"stimline-cli/internal/store"
)

func newLoginCmd(app *App) *cobra.Command {
	var token, userID, backend, gatewayURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API credentials in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return writeErr(cmd, errors.New("missing --token"))
			}

			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg.Token = token
			if userID != "" {
				cfg.UserID = userID
			}
			if backend != "" {
				cfg.BackendURL = backend
			}
			if gatewayURL != "" {
				cfg.GatewayURL = gatewayURL
			}

			if app.ConfigPath != "" {
				err = store.SaveConfigToFile(app.ConfigPath, cfg)
			} else {
				err = store.SaveConfig(cfg)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"userId":     cfg.UserID,
				"backendUrl": cfg.BackendURL,
			}})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token")
	cmd.Flags().StringVar(&userID, "user", "", "User id the token belongs to")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend base URL")
	cmd.Flags().StringVar(&gatewayURL, "gateway", "", "Gateway websocket URL")
	return cmd
}
