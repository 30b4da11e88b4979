package terminalView

import (
	"fmt"
	"io"
	"strings"

	"gcm/internal/color"
	"gcm/internal/counter"
	"gcm/internal/ext"
	"gcm/internal/gitrepo"
	"gcm/internal/view"
)

type GitLabCloneViewModel struct {
	CloneRoot            string
	RemoteHostName       string
	GroupCount           *counter.Counter
	ProjectCount         *counter.Counter
	CloneCount           *counter.Counter
	SkippedCount         *counter.Counter
	FailedCount          *counter.Counter
	ArchivedCloneCounter *counter.Counter
}

func NewGitLabCloneViewModel(remoteHostName string, cloneRoot string) *GitLabCloneViewModel {
	return &GitLabCloneViewModel{
		CloneRoot:            cloneRoot,
		RemoteHostName:       remoteHostName,
		GroupCount:           counter.NewCounter(),
		ProjectCount:         counter.NewCounter(),
		CloneCount:           counter.NewCounter(),
		SkippedCount:         counter.NewCounter(),
		FailedCount:          counter.NewCounter(),
		ArchivedCloneCounter: counter.NewCounter(),
	}
}

// Observe counts a finished clone task. It is safe to call from clone workers.
func (vm *GitLabCloneViewModel) Observe(outcome gitrepo.CloneOutcome) {
	switch outcome.Result {
	case gitrepo.Cloned:
		vm.CloneCount.Inc()
		if outcome.Task.Repository.Archived {
			vm.ArchivedCloneCounter.Inc()
		}
	case gitrepo.Skipped:
		vm.SkippedCount.Inc()
	case gitrepo.Failed:
		vm.FailedCount.Inc()
	}
}

func (vm *GitLabCloneViewModel) Stop() {
	for _, c := range []*counter.Counter{vm.GroupCount, vm.ProjectCount, vm.CloneCount, vm.SkippedCount, vm.FailedCount, vm.ArchivedCloneCounter} {
		c.Stop()
	}
}

// GitLabCloneView renders the counters of every mirrored host
type GitLabCloneView struct {
	viewModels func() []*GitLabCloneViewModel
	stdout     io.Writer
}

func NewGitLabCloneView(stdout io.Writer, viewModels func() []*GitLabCloneViewModel) *GitLabCloneView {
	return &GitLabCloneView{
		viewModels: viewModels,
		stdout:     stdout,
	}
}

func (r *GitLabCloneView) Render(width int) (lines int) {
	var out strings.Builder
	for _, vm := range r.viewModels() {
		out.WriteString(
			fmt.Sprintf(
				"%s\n  <- %s:\n    %s projects in %s groups\n    %s git clones (%s archived)\n    %s already cloned, %s failed\n",
				color.FgCyan("%s", view.TruncateTextToWidth(width, ext.ReplaceHomeDirWithTilde(vm.CloneRoot))),
				color.FgCyan("%s", view.TrimTextToWidth(max(width-6, 1), vm.RemoteHostName)),
				color.FgMagenta("%d", vm.ProjectCount.Count()),
				color.FgMagenta("%d", vm.GroupCount.Count()),
				color.FgMagenta("%d", vm.CloneCount.Count()),
				color.FgMagenta("%d", vm.ArchivedCloneCounter.Count()),
				color.FgMagenta("%d", vm.SkippedCount.Count()),
				color.FgRed("%d", vm.FailedCount.Count()),
			),
		)
	}
	return view.WriteLines(r.stdout, out.String())
}
