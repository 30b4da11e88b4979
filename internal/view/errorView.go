package view

import (
	"fmt"
	"io"

	"github.com/sasha-s/go-deadlock"

	"gcm/internal/color"
	"gcm/internal/counter"
	"gcm/internal/ext"
)

type ErrorViewModel struct {
	errorCount  *counter.Counter
	mu          deadlock.Mutex
	latestError string
	logFilePath string
}

func NewErrorViewModel(logFilePath string) *ErrorViewModel {
	return &ErrorViewModel{
		errorCount:  counter.NewCounter(),
		logFilePath: logFilePath,
	}
}

func (vm *ErrorViewModel) ReportError(err error) {
	vm.mu.Lock()
	vm.latestError = err.Error()
	vm.mu.Unlock()
	vm.errorCount.Inc()
}

func (vm *ErrorViewModel) ErrorCount() int {
	return vm.errorCount.Count()
}

func (vm *ErrorViewModel) LatestError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.latestError
}

func (vm *ErrorViewModel) Stop() {
	vm.errorCount.Stop()
}

type ErrorView struct {
	viewModel *ErrorViewModel
	stdout    io.Writer
}

func NewErrorView(vm *ErrorViewModel, stdout io.Writer) *ErrorView {
	return &ErrorView{
		viewModel: vm,
		stdout:    stdout,
	}
}

func (v ErrorView) Render(width int) int {
	count := v.viewModel.ErrorCount()
	if count == 0 {
		return 0
	}
	return WriteLines(v.stdout, fmt.Sprintf("--- %s errors ---\n%s\nSee log file:\n%s\n",
		color.FgRed("%d", count),
		TrimTextToWidth(width, v.viewModel.LatestError()),
		color.FgMagenta("%s", ext.ReplaceHomeDirWithTilde(v.viewModel.logFilePath))))
}
