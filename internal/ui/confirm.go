package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// ConfirmDelete asks the user to confirm a destructive action. Non-interactive
// sessions get the default without prompting; scripted callers should pass
// --yes instead of relying on that.
func ConfirmDelete(title string, defaultYes bool) bool {
	if !IsTerminal() {
		fmt.Printf("%s (non-interactive, defaulting to %t)\n", title, defaultYes)
		return defaultYes
	}

	confirmed := defaultYes
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return confirmed
}
