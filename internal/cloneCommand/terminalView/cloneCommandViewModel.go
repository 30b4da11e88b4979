package terminalView

import (
	"time"

	"gcm/internal/gitrepo"
	"gcm/internal/view"
)

type CloneCommandViewModel struct {
	GitLabCloneViewModels []*GitLabCloneViewModel
	RunTotalsViewModel    *RunTotalsViewModel
	ErrorViewModel        *view.ErrorViewModel
}

func NewCloneCommandViewModel(logFilePath string, startTime time.Time) *CloneCommandViewModel {
	return &CloneCommandViewModel{
		GitLabCloneViewModels: make([]*GitLabCloneViewModel, 0),
		RunTotalsViewModel:    NewRunTotalsViewModel(startTime),
		ErrorViewModel:        view.NewErrorViewModel(logFilePath),
	}
}

// AddGitLabCloneVM must be called before the render loop starts.
func (vm *CloneCommandViewModel) AddGitLabCloneVM(hostName, absPath string) *GitLabCloneViewModel {
	cloneViewModel := NewGitLabCloneViewModel(hostName, absPath)
	vm.GitLabCloneViewModels = append(vm.GitLabCloneViewModels, cloneViewModel)
	return cloneViewModel
}

// Observer returns the outcome callback feeding the host's counters and the run totals.
func (vm *CloneCommandViewModel) Observer(host *GitLabCloneViewModel) func(gitrepo.CloneOutcome) {
	return func(outcome gitrepo.CloneOutcome) {
		host.Observe(outcome)
		vm.RunTotalsViewModel.Observe(outcome)
		if outcome.Err != nil {
			vm.ErrorViewModel.ReportError(outcome.Err)
		}
	}
}

func (vm *CloneCommandViewModel) Stop() {
	for _, host := range vm.GitLabCloneViewModels {
		host.Stop()
	}
	vm.RunTotalsViewModel.Stop()
	vm.ErrorViewModel.Stop()
}

func (vm *CloneCommandViewModel) getGitLabCloneViewModels() []*GitLabCloneViewModel {
	return vm.GitLabCloneViewModels
}
