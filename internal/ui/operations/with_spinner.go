package operations

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/models/spinner"
)

// OperationFunc is run in the background while the spinner is shown. step
// updates the spinner text.
type OperationFunc[T any] func(step func(string)) (T, error)

// WithSpinner runs operation behind a spinner and returns its result. Without
// a terminal, or when plain is set, the operation runs directly.
func WithSpinner[T any](message string, plain bool, operation OperationFunc[T]) (T, error) {
	if plain || !ui.IsTerminal(os.Stdout) || ui.IsCI() {
		return operation(func(string) {})
	}

	program := tea.NewProgram(spinner.NewSpinnerModelWithMessage(message), tea.WithOutput(os.Stderr))

	go func() {
		result, err := operation(func(step string) {
			program.Send(spinner.StepMsg(step))
		})
		if err != nil {
			program.Send(err)
			return
		}
		program.Send(spinner.ResultMsg{Result: result})
	}()

	var zero T
	model, err := program.Run()
	if err != nil {
		return zero, err
	}

	finalModel, ok := model.(spinner.Model)
	if !ok {
		return zero, fmt.Errorf("program finished with invalid model")
	}
	if finalModel.HasError() {
		return zero, finalModel.GetError()
	}

	result, ok := finalModel.GetResult().(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type: %T", finalModel.GetResult())
	}
	return result, nil
}
