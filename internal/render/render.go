// Package render prints model output to a terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"
)

const DefaultTheme = "monokai"

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	banner  = color.New(color.FgCyan, color.Bold)
	gutter  = color.New(color.Faint)
)

// Printer writes to one stream. Escapes are emitted only when color is
// enabled (color.NoColor is false).
type Printer struct {
	out   io.Writer
	theme string
}

func New(out io.Writer) *Printer {
	return &Printer{out: out, theme: DefaultTheme}
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) Heading(text string) {
	bold.Fprintf(p.out, "\n%s\n\n", text)
}

func (p *Printer) Banner(text string) {
	banner.Fprintln(p.out, text)
}

func (p *Printer) Success(format string, args ...any) {
	success.Fprintln(p.out, fmt.Sprintf(format, args...))
}

func (p *Printer) Warn(format string, args ...any) {
	warning.Fprintln(p.out, fmt.Sprintf(format, args...))
}

func (p *Printer) Error(format string, args ...any) {
	failure.Fprintln(p.out, fmt.Sprintf(format, args...))
}

func (p *Printer) Println(text string) {
	fmt.Fprintln(p.out, text)
}

// Text prints s exactly, adding a newline only if s lacks one.
func (p *Printer) Text(s string) {
	io.WriteString(p.out, s)
	if !strings.HasSuffix(s, "\n") {
		io.WriteString(p.out, "\n")
	}
}

// Code prints a numbered listing of code, highlighted for language when
// color is on. Trailing blank lines are not numbered.
func (p *Printer) Code(code, language string) error {
	code = strings.TrimRight(code, "\r\n")
	if color.NoColor {
		p.plainCode(code)
		return nil
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("tokenising %s: %w", language, err)
	}

	style := styles.Get(p.theme)
	formatter := formatters.Get("terminal256")

	lines := chroma.SplitTokensIntoLines(it.Tokens())
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	width := len(strconv.Itoa(len(lines)))
	for i, line := range lines {
		gutter.Fprintf(p.out, "%*d │ ", width, i+1)
		if err := formatter.Format(p.out, style, chroma.Literator(line...)); err != nil {
			return err
		}
		if !endsWithNewline(line) {
			io.WriteString(p.out, "\n")
		}
	}
	return nil
}

func (p *Printer) plainCode(code string) {
	if code == "" {
		return
	}
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	width := len(strconv.Itoa(len(lines)))
	for i, line := range lines {
		fmt.Fprintf(p.out, "%*d │ %s\n", width, i+1, line)
	}
}

func endsWithNewline(line []chroma.Token) bool {
	if len(line) == 0 {
		return false
	}
	return strings.HasSuffix(line[len(line)-1].Value, "\n")
}

func isBlank(line []chroma.Token) bool {
	for _, t := range line {
		if t.Value != "" {
			return false
		}
	}
	return true
}
