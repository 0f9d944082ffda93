package main

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// promptConfirmer asks on the terminal before each install. Aborting the
// prompt counts as declining.
type promptConfirmer struct{}

func (promptConfirmer) Confirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Install").
				Negative("Abort").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
