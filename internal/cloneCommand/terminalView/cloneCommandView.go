package terminalView

import (
	"io"
	"time"

	"gcm/internal/view"
)

type CloneCommandView struct {
	compositeView *view.CompositeView
}

func NewCloneCommandView(vm *CloneCommandViewModel, out io.Writer) *CloneCommandView {
	compositeView := view.NewCompositeView(
		NewGitLabCloneView(out, vm.getGitLabCloneViewModels),
		view.NewErrorView(vm.ErrorViewModel, out),
		NewRunTotalsView(vm.RunTotalsViewModel, out, time.Since),
	)

	return &CloneCommandView{
		compositeView: compositeView,
	}
}

func (c CloneCommandView) Render(width int) (lines int) {
	return c.compositeView.Render(width)
}
