package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"stimline-cli/internal/api"
	"stimline-cli/internal/gateway"
	"stimline-cli/internal/session"
	"stimline-cli/internal/stimuli"
	"stimline-cli/internal/store"
	"stimline-cli/internal/timeline"
)

func Run(cfg store.Config) error {
	applyColorProfilePreference()
	applyThemePreference()

	events := newUIEvents()

	client := api.NewClient(cfg.BackendURL, cfg.Token)
	tl := timeline.New(client)
	sess := session.New(client, tl, events, events)
	editor := stimuli.NewMultiTrigger(tl, events)

	// Opening the cache is best-effort; without it the TUI just loses the
	// offline experiment list.
	var cache *store.Cache
	if path, err := store.DefaultCachePath(); err == nil {
		if c, err := store.OpenCache(path); err == nil {
			cache = c
			defer c.Close()
		}
	}

	var gw *gateway.Client
	if cfg.GatewayURL != "" {
		gw = gateway.NewClient(cfg.GatewayURL, cfg.Token)
		gw.OnEvent(events.Gateway)
		// A gateway that won't connect degrades to manual reloads.
		_ = gw.Connect()
		defer gw.Close()
	}

	m := newAppModel(cfg, sess, editor, tl, cache, events)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
