package view

import (
	"fmt"
	"io"
	"strings"
)

// View writes itself to its output and reports how many lines it wrote, so a render loop
// can move the cursor back up and draw over it.
type View interface {
	Render(width int) (lines int)
}

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// WriteLines writes text and returns its line count, or 0 when nothing could be written.
func WriteLines(out io.Writer, text string) int {
	if _, err := io.WriteString(out, text); err != nil {
		return 0
	}
	return strings.Count(text, "\n")
}

func ansiLineOffset(lines int) string {
	return fmt.Sprintf("\033[%dA", lines)
}
