// Package notify declares the collaborator contracts the editing models
// depend on: a user-facing notification channel, a confirmation dialog,
// and navigation. Implementations live in the TUI (interactive) or are
// no-ops (scriptable CLI, tests).
package notify

type Notifier interface {
	Error(message string)
}

type Confirmer interface {
	Confirm(title, message string) bool
}

type Navigator interface {
	Navigate(path string)
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}

// NopNotifier discards all notifications.
func NopNotifier() Notifier { return nopNotifier{} }

type staticConfirmer bool

func (c staticConfirmer) Confirm(string, string) bool { return bool(c) }

// AlwaysConfirm answers every confirmation with the given value.
func AlwaysConfirm(ok bool) Confirmer { return staticConfirmer(ok) }

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

func NopNavigator() Navigator { return nopNavigator{} }
