package terminalView

import (
	"fmt"
	"io"
	"time"

	"gcm/internal/color"
	"gcm/internal/counter"
	"gcm/internal/gitrepo"
	"gcm/internal/view"
)

// RunTotalsViewModel counts clone outcomes of this run across all hosts.
type RunTotalsViewModel struct {
	ClonedNowCount *counter.Counter
	SkippedCount   *counter.Counter
	FailedCount    *counter.Counter
	startTime      time.Time
}

func NewRunTotalsViewModel(startTime time.Time) *RunTotalsViewModel {
	return &RunTotalsViewModel{
		ClonedNowCount: counter.NewCounter(),
		SkippedCount:   counter.NewCounter(),
		FailedCount:    counter.NewCounter(),
		startTime:      startTime,
	}
}

func (vm *RunTotalsViewModel) Observe(outcome gitrepo.CloneOutcome) {
	switch outcome.Result {
	case gitrepo.Cloned:
		vm.ClonedNowCount.Inc()
	case gitrepo.Skipped:
		vm.SkippedCount.Inc()
	case gitrepo.Failed:
		vm.FailedCount.Inc()
	}
}

func (vm *RunTotalsViewModel) Stop() {
	vm.ClonedNowCount.Stop()
	vm.SkippedCount.Stop()
	vm.FailedCount.Stop()
}

type RunTotalsView struct {
	viewModel *RunTotalsViewModel
	stdout    io.Writer
	since     func(time.Time) time.Duration
}

func NewRunTotalsView(vm *RunTotalsViewModel, stdout io.Writer, since func(time.Time) time.Duration) *RunTotalsView {
	return &RunTotalsView{
		viewModel: vm,
		stdout:    stdout,
		since:     since,
	}
}

func (v *RunTotalsView) Render(int) int {
	elapsed := v.since(v.viewModel.startTime).Seconds()
	cloned := v.viewModel.ClonedNowCount.Count()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(cloned) / elapsed
	}
	return view.WriteLines(v.stdout, fmt.Sprintf("%s cloned now, %s skipped, %s failed\n%s seconds (%s clones/s)\n",
		color.FgMagenta("%d", cloned),
		color.FgMagenta("%d", v.viewModel.SkippedCount.Count()),
		color.FgRed("%d", v.viewModel.FailedCount.Count()),
		color.FgGreen("%.2f", elapsed),
		color.FgGreen("%.2f", rate)))
}
