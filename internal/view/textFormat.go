package view

import (
	"strings"

	"github.com/samber/lo"
)

const ellipsis = "..."

// TruncateTextToWidth keeps the end of every line, marking shortened lines with a leading
// ellipsis, and pads short lines with spaces. Widths count runes, so namespaces with
// non-ASCII names are never cut inside a character.
func TruncateTextToWidth(width int, text string) string {
	return fitLines(max(width, 0), text, func(line []rune, width int) string {
		if width > len(ellipsis) {
			return ellipsis + string(line[len(line)-width+len(ellipsis):])
		}
		return string(line[len(line)-width:])
	})
}

// TrimTextToWidth cuts off the end of every line longer than width and pads short lines
// with spaces.
func TrimTextToWidth(width int, text string) string {
	return fitLines(max(width, 0), text, func(line []rune, width int) string {
		return string(line[:width])
	})
}

func fitLines(width int, text string, shorten func(line []rune, width int) string) string {
	lines := lo.Map(strings.Split(text, "\n"), func(line string, _ int) string {
		runes := []rune(line)
		if len(runes) > width {
			return shorten(runes, width)
		}
		return line + strings.Repeat(" ", width-len(runes))
	})
	return strings.Join(lines, "\n")
}
