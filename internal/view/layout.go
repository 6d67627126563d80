package view

import "github.com/rivo/uniseg"

// cell is one grapheme cluster placed on screen.
type cell struct {
	col   int
	runes []rune
	width int
}

// layoutLine splits line into grapheme cells, expanding tabs to the next
// multiple of tabWidth. Control characters show as '?'.
func layoutLine(line string, tabWidth int) []cell {
	var cells []cell
	col := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		runes := g.Runes()
		switch r := runes[0]; {
		case r == '\t':
			w := tabWidth - col%tabWidth
			cells = append(cells, cell{col: col, runes: []rune{' '}, width: w})
			col += w
			continue
		case r == '\r' && len(runes) == 1:
			// CR of a CRLF line ending
			continue
		case r < 0x20 || r == 0x7f:
			runes = []rune{'?'}
		}

		w := max(g.Width(), 1)
		cells = append(cells, cell{col: col, runes: runes, width: w})
		col += w
	}
	return cells
}
