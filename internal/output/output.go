// Package output renders CLI results as styled text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/ui"
)

// Output formats accepted by --format.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ValidateFormat rejects anything other than text or json.
func ValidateFormat(f string) error {
	switch f {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", f)
	}
}

// ValidateResultFormat is ValidateFormat for commands that print search
// results, which can also be rendered as markdown.
func ValidateResultFormat(f string) error {
	if f == FormatMarkdown {
		return nil
	}
	if err := ValidateFormat(f); err != nil {
		return fmt.Errorf("unknown output format %q (use text, json or markdown)", f)
	}
	return nil
}

// Writer provides formatted output for the CLI. Colour is used only when
// out is a terminal and NO_COLOR is unset.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer for out.
func New(out io.Writer) *Writer {
	noColor := !ui.IsTTY(out) || ui.DetectNoColor()
	return &Writer{out: out, styles: ui.GetStyles(noColor)}
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Markdown writes pre-rendered markdown unchanged.
func (w *Writer) Markdown(md string) {
	_, _ = fmt.Fprint(w.out, md)
}

// Status prints a message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message.
func (w *Writer) Statusf(icon, f string, args ...any) {
	w.Status(icon, fmt.Sprintf(f, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(f string, args ...any) {
	w.Success(fmt.Sprintf(f, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(f string, args ...any) {
	w.Warning(fmt.Sprintf(f, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintf(w.out, "%s\n\n", w.styles.Header.Render(title))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Verses prints ranked verse results with any context.
func (w *Writer) Verses(verses []format.Verse) {
	for _, v := range verses {
		_, _ = fmt.Fprintf(w.out, "%d. %s %s  %s\n", v.Rank,
			w.styles.Reference.Render(v.Reference),
			w.styles.Label.Render(v.ChapterName),
			w.styles.Dim.Render(v.Relevance))
		w.contextLines(v.ContextBefore)
		w.indented(v.Arabic)
		w.indented(v.English)
		w.contextLines(v.ContextAfter)
		w.Newline()
	}
}

// Narrations prints ranked narration results.
func (w *Writer) Narrations(ns []format.Narration) {
	for _, n := range ns {
		_, _ = fmt.Fprintf(w.out, "%d. %s  %s  %s\n", n.Rank,
			w.styles.Reference.Render(n.Reference),
			w.styles.Label.Render(n.Grade),
			w.styles.Dim.Render(n.Relevance+" "+n.MatchType))
		w.indented(w.styles.Label.Render("Narrated by " + n.Narrator))
		w.indented(n.English)
		if n.SourceURL != "" {
			w.indented(w.styles.Dim.Render(n.SourceURL))
		}
		w.Newline()
	}
}

// References prints resolved references verse by verse.
func (w *Writer) References(refs []format.Reference) {
	for _, r := range refs {
		_, _ = fmt.Fprintf(w.out, "%s  %s\n", w.styles.Reference.Render(r.Display), w.styles.Label.Render(r.ChapterNameNative))
		for _, l := range r.Verses {
			text := l.Reference + "  " + l.English
			if l.IsContext {
				text = w.styles.Dim.Render(text)
			}
			w.indented(text)
		}
		w.Newline()
	}
}

func (w *Writer) contextLines(lines []format.VerseLine) {
	for _, l := range lines {
		w.indented(w.styles.Dim.Render(l.Reference + "  " + l.English))
	}
}

func (w *Writer) indented(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	_, _ = fmt.Fprintf(w.out, "   %s\n", text)
}
