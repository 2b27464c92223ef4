package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"lumen/internal/diag"
	"lumen/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgGreen),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее). Для каждой печатает
//
//	error[SEM3003]: message
//	  --> path:line:col
//	   |
//	 5 |   - {call: foo}
//	   |     ^^^^^^^^^^^
//
// затем Notes в том же виде.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	items := bag.Items()
	n := limit(len(items), opts.Max)
	var sb strings.Builder
	for i, d := range items[:n] {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sev := pal.severity(d.Severity)
		sb.WriteString(sev.Sprintf("%s[%s]", d.Severity.Label(), d.Code.ID()))
		sb.WriteString(pal.bold.Sprintf(": %s", d.Message))
		sb.WriteByte('\n')
		writeSnippet(&sb, fs, d.Primary, opts, pal, pal.caret)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				sb.WriteString(pal.note.Sprint("note"))
				sb.WriteString(": " + note.Msg + "\n")
				if note.Span != d.Primary {
					writeSnippet(&sb, fs, note.Span, opts, pal, pal.note)
				}
			}
		}
	}
	if hidden := len(items) - n + bag.Dropped(); hidden > 0 {
		fmt.Fprintf(&sb, "\n... %d more diagnostic(s) not shown\n", hidden)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeSnippet(sb *strings.Builder, fs *source.FileSet, span source.Span, opts PrettyOpts, pal palette, mark *color.Color) {
	f := fs.Get(span.File)
	if f == nil {
		return
	}
	path := formatPath(f, opts.PathMode, opts.BaseDir)
	start, end, ok := fs.Resolve(span)
	if !ok {
		fmt.Fprintf(sb, "  %s %s\n", pal.gutter.Sprint("-->"), path)
		return
	}
	fmt.Fprintf(sb, "  %s %s:%d:%d\n", pal.gutter.Sprint("-->"), path, start.Line, start.Col)

	line := f.GetLine(start.Line)
	num := strconv.FormatUint(uint64(start.Line), 10)
	pad := strings.Repeat(" ", len(num))
	bar := pal.gutter.Sprint("|")
	fmt.Fprintf(sb, " %s %s\n", pad, bar)
	fmt.Fprintf(sb, " %s %s %s\n", pal.gutter.Sprint(num), bar, expandTabs(line))

	// для многострочного span подчёркиваем до конца первой строки
	endCol := int(end.Col)
	if end.Line != start.Line {
		endCol = len(line) + 1
	}
	offset, width := caretRange(line, int(start.Col), endCol)
	fmt.Fprintf(sb, " %s %s %s%s\n", pad, bar, strings.Repeat(" ", offset), mark.Sprint(strings.Repeat("^", width)))
}

// caretRange returns the display offset and width of byte columns
// [startCol, endCol) of line. Wide runes count as two cells.
func caretRange(line string, startCol, endCol int) (offset, width int) {
	s := clampCol(line, startCol)
	e := clampCol(line, endCol)
	if e < s {
		e = s
	}
	offset = runewidth.StringWidth(expandTabs(line[:s]))
	width = runewidth.StringWidth(expandTabs(line[:e])) - offset
	return offset, max(width, 1)
}

func clampCol(line string, col int) int {
	if col <= 0 {
		return 0
	}
	return min(col-1, len(line))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
