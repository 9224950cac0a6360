package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"strand/internal/ui"
)

type benchOutcome struct {
	result benchResult
	err    error
}

func runBenchWithUI(title string, bc benchConfig) (benchResult, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan benchOutcome, 1)

	go func() {
		res, err := runBench(bc, events)
		outcomeCh <- benchOutcome{result: res, err: err}
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
