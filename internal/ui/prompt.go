package ui

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ConfirmRemoval asks the operator to confirm deleting the listed files.
// Declining or interrupting the prompt reports false without an error.
func ConfirmRemoval(files []string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Remove %d unmanaged file(s)", len(files)),
		IsConfirm: true,
	}

	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
