package codegen

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
)

// prompter reads one line of user input at a time. Prompt returns io.EOF
// when input ends or the user aborts with Ctrl-C.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type linePrompter struct {
	state       *liner.State
	historyPath string
}

func newLinePrompter() (prompter, error) {
	rl := liner.NewLiner()
	rl.SetCtrlCAborts(true)

	p := &linePrompter{state: rl}
	if dir, err := os.UserConfigDir(); err == nil {
		p.historyPath = filepath.Join(dir, appName, "history")
		if f, err := os.Open(p.historyPath); err == nil {
			rl.ReadHistory(f)
			f.Close()
		}
	}
	return p, nil
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	line, err := p.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (p *linePrompter) AppendHistory(item string) {
	if item != "" {
		p.state.AppendHistory(item)
	}
}

// Close restores the terminal and saves history on a best-effort basis.
func (p *linePrompter) Close() error {
	if p.historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(p.historyPath), 0o755); err == nil {
			if f, err := os.Create(p.historyPath); err == nil {
				p.state.WriteHistory(f)
				f.Close()
			}
		}
	}
	return p.state.Close()
}
