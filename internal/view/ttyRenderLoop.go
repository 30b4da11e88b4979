package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

const DefaultRefreshInterval = 100 * time.Millisecond

var ErrNotATerminal = errors.New("cannot start a TTY render loop on a non-terminal file")

// RenderLoop redraws a view in place until its context is cancelled.
type RenderLoop struct {
	view     View
	out      io.Writer
	width    func() int
	interval time.Duration
}

func NewTTYRenderLoop(v View, file *os.File) (*RenderLoop, error) {
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotATerminal
	}
	width := func() int {
		width, _, err := term.GetSize(fd)
		if err != nil || width <= 0 {
			return DefaultWidth
		}
		return width
	}
	return NewRenderLoop(v, file, width, DefaultRefreshInterval), nil
}

func NewRenderLoop(v View, out io.Writer, width func() int, interval time.Duration) *RenderLoop {
	return &RenderLoop{view: v, out: out, width: width, interval: interval}
}

// Run draws the view, redraws it every interval and draws a final frame once ctx is done,
// so the last counts stay on screen.
func (l *RenderLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	lineCount := l.view.Render(l.width())
	for {
		select {
		case <-ctx.Done():
			l.redraw(lineCount)
			return
		case <-ticker.C:
			lineCount = l.redraw(lineCount)
		}
	}
}

func (l *RenderLoop) redraw(lineCount int) int {
	if lineCount > 0 {
		if _, err := fmt.Fprint(l.out, ansiLineOffset(lineCount)); err != nil {
			return lineCount
		}
	}
	return l.view.Render(l.width())
}
