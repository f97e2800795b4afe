package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// cell is the visible text of a column plus an optional hyperlink target
type cell struct {
	text string
	link string
}

type table struct {
	headers []string
	rows    [][]cell
	links   bool
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

// write prints the table with columns aligned on display width, so wide
// glyphs such as emoji do not shift the following columns
func (t *table) write(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if cw := runewidth.StringWidth(c.text); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	header := make([]cell, len(t.headers))
	for i, h := range t.headers {
		header[i] = cell{text: h}
	}
	if err := t.writeRow(w, header, widths); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.writeRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) writeRow(w io.Writer, row []cell, widths []int) error {
	var b strings.Builder
	for i, c := range row {
		last := i == len(row)-1
		text := c.text
		if t.links && c.link != "" {
			// OSC 8 hyperlink, invisible on terminals that support it
			text = fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", c.link, c.text)
		}
		b.WriteString(text)
		if !last {
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text)+2))
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
