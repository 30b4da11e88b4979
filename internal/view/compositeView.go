package view

import "github.com/samber/lo"

// CompositeView stacks views top to bottom.
type CompositeView struct {
	views []View
}

func NewCompositeView(views ...View) *CompositeView {
	return &CompositeView{views: views}
}

func (cv *CompositeView) AddView(view View) {
	cv.views = append(cv.views, view)
}

func (cv *CompositeView) Render(width int) int {
	return lo.SumBy(cv.views, func(view View) int {
		return view.Render(width)
	})
}
