package diag

import (
	"fmt"
	"sort"
	"strings"

	"lumen/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

func (d shortDiagnostic) location() string {
	if d.Line == 0 {
		return d.Path
	}
	return fmt.Sprintf("%s:%d:%d", d.Path, d.Line, d.Column)
}

// FormatShort renders diagnostics one per line as
// "<severity> <code> <path>[:line:col] <message>", sorted deterministically.
// Positions are omitted for files registered without text.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		rendered = append(rendered, resolveShort(fs, d.Primary, d.Severity.Label(), d.Code, d.Message))
		if includeNotes {
			for _, note := range d.Notes {
				rendered = append(rendered, resolveShort(fs, note.Span, "note", d.Code, note.Msg))
			}
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.location(), d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func resolveShort(fs *source.FileSet, span source.Span, sev string, code Code, msg string) shortDiagnostic {
	out := shortDiagnostic{
		Severity: sev,
		Code:     code.ID(),
		Message:  sanitizeMessage(msg),
	}
	if f := fs.Get(span.File); f != nil {
		out.Path = f.Path
	}
	if start, _, ok := fs.Resolve(span); ok {
		out.Line, out.Column = start.Line, start.Col
	}
	return out
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
