package codegen

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/davidhbaek/codegen/internal/credential"
	"github.com/davidhbaek/codegen/internal/llm"
	"github.com/davidhbaek/codegen/internal/wire"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeClient struct {
	model    string
	reply    string
	err      error
	requests []*wire.Request
}

func (f *fakeClient) Generate(_ context.Context, req *wire.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeClient) Model() string { return f.model }

func (f *fakeClient) prompts() []string {
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Prompt)
	}
	return out
}

type scriptedPrompter struct {
	lines   []string
	asked   []string
	history []string
	closed  bool
}

func (s *scriptedPrompter) Prompt(prompt string) (string, error) {
	s.asked = append(s.asked, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedPrompter) AppendHistory(item string) { s.history = append(s.history, item) }

func (s *scriptedPrompter) Close() error {
	s.closed = true
	return nil
}

// factoryCall records which provider was asked for a client.
type factoryCall struct {
	provider llm.Provider
	model    string
	apiKey   string
}

type harness struct {
	t        *testing.T
	envFile  string
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	client   *fakeClient
	calls    []factoryCall
	prompter *scriptedPrompter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, p := range llm.Providers {
		t.Setenv(p.KeyName(), "")
	}
	t.Setenv(modelEnvKey, "")

	return &harness{
		t:        t,
		envFile:  filepath.Join(t.TempDir(), ".env"),
		client:   &fakeClient{reply: "print('hello')\n"},
		prompter: &scriptedPrompter{},
	}
}

func (h *harness) writeEnv(contents string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(h.envFile, []byte(contents), 0o600))
}

func (h *harness) run(args ...string) int {
	app := newEnv(&h.stdout, &h.stderr)

	app.clients = &llm.ClientConfig{Models: map[llm.Provider]llm.ClientFactory{}}
	for _, p := range llm.Providers {
		app.clients.Models[p] = func(model, apiKey string) llm.Client {
			h.calls = append(h.calls, factoryCall{provider: p, model: model, apiKey: apiKey})
			h.client.model = model
			return h.client
		}
	}
	app.newPrompter = func() (prompter, error) { return h.prompter, nil }

	return app.execute(context.Background(), append([]string{"--env-file", h.envFile}, args...))
}

func TestSetKey(t *testing.T) {
	tests := []struct {
		Name     string
		Args     []string
		KeyName  string
		Expected int
	}{
		{Name: "Default provider is gemini", Args: []string{"set-key", "AIza-1"}, KeyName: "GEMINI_API_KEY"},
		{Name: "Explicit provider", Args: []string{"set-key", "--provider", "openai", "sk-1"}, KeyName: "OPENAI_API_KEY"},
		{Name: "Unknown provider", Args: []string{"set-key", "-p", "mistral", "k"}, Expected: 2},
		{Name: "Missing key argument", Args: []string{"set-key"}, Expected: 2},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			h := newHarness(t)

			require.Equal(t, test.Expected, h.run(test.Args...))
			if test.Expected != 0 {
				return
			}

			require.Contains(t, h.stdout.String(), "API Key has been set successfully!")
			v, err := credential.NewStore(h.envFile).Lookup(test.KeyName)
			require.NoError(t, err)
			require.Equal(t, test.Args[len(test.Args)-1], v)
			require.Empty(t, h.calls)
		})
	}
}

func TestSetKeyThenGenerate(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("set-key", "AIza-2"))
	require.Equal(t, 0, h.run("generate", "hello world"))

	require.Len(t, h.calls, 1)
	require.Equal(t, factoryCall{provider: llm.Gemini, model: llm.FLASH, apiKey: "AIza-2"}, h.calls[0])
}

func TestSetKeyRoundTrip(t *testing.T) {
	for _, key := range []string{"0123456789", "+42", "a$b", `abc\`} {
		t.Run(key, func(t *testing.T) {
			h := newHarness(t)

			require.Equal(t, 0, h.run("set-key", key))
			require.Equal(t, 0, h.run("generate", "x"))
			require.Equal(t, []factoryCall{{provider: llm.Gemini, model: llm.FLASH, apiKey: key}}, h.calls)
		})
	}
}

func TestSetKeyRepairsUnreadableEnvFile(t *testing.T) {
	h := newHarness(t)
	h.writeEnv(`GEMINI_API_KEY="abc\\"` + "\n")

	require.Equal(t, 1, h.run("generate", "x"))
	require.Contains(t, h.stderr.String(), "unterminated quoted value")
	require.Empty(t, h.calls)

	require.Equal(t, 0, h.run("set-key", "AIza-3"))
	require.Equal(t, 0, h.run("generate", "x"))
	require.Equal(t, []factoryCall{{provider: llm.Gemini, model: llm.FLASH, apiKey: "AIza-3"}}, h.calls)
}

func TestMissingCredential(t *testing.T) {
	tests := []struct {
		Name  string
		Env   string
		Args  []string
		Lines []string
	}{
		{Name: "generate", Args: []string{"generate", "fizzbuzz"}},
		{Name: "ask", Env: "GEMINI_API_KEY=\n", Args: []string{"ask", "what is a goroutine?"}},
		{Name: "interactive", Args: []string{"interactive"}, Lines: []string{"fizzbuzz", ""}},
		{Name: "menu generate", Args: []string{"start"}, Lines: []string{"1", "fizzbuzz", ""}},
		{Name: "key for another provider only", Env: "GEMINI_API_KEY=AIza\n", Args: []string{"--model", "haiku", "generate", "x"}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			h := newHarness(t)
			if test.Env != "" {
				h.writeEnv(test.Env)
			}
			h.prompter.lines = test.Lines

			require.Equal(t, 1, h.run(test.Args...))
			require.Empty(t, h.calls, "no client may be built without a key")
			require.Empty(t, h.client.requests)
			require.Contains(t, h.stderr.String(), "API key not found")
		})
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		Name   string
		Args   []string
		Prompt string
	}{
		{Name: "Default language", Args: []string{"generate", "add two numbers"}, Prompt: "Generate python code for: add two numbers"},
		{Name: "Language flag", Args: []string{"generate", "-l", "go", "add two numbers"}, Prompt: "Generate go code for: add two numbers"},
		{Name: "Unquoted words are joined", Args: []string{"generate", "add", "two", "numbers", "--language", "rust"}, Prompt: "Generate rust code for: add two numbers"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			h := newHarness(t)
			h.writeEnv("GEMINI_API_KEY=AIza\n")
			h.client.reply = "def add(a, b):\n    return a + b\n"

			require.Equal(t, 0, h.run(test.Args...))
			require.Equal(t, []string{test.Prompt}, h.client.prompts())

			out := h.stdout.String()
			require.Contains(t, out, "Generated Code:")
			require.Contains(t, out, "1 │ def add(a, b):\n2 │     return a + b\n")
		})
	}
}

func TestAskPassesResponseThrough(t *testing.T) {
	h := newHarness(t)
	h.writeEnv("GEMINI_API_KEY=AIza\n")
	h.client.reply = "Use a `map[string]int`.\n\n  [bold]not markup[/bold]\n"

	require.Equal(t, 0, h.run("ask", "how do I count words?"))
	require.Equal(t, []string{"Answer this programming question: how do I count words?"}, h.client.prompts())
	require.Equal(t, "\nAI Response:\n\n"+h.client.reply, h.stdout.String())
}

func TestRemoteErrorExitsNonZero(t *testing.T) {
	for _, args := range [][]string{{"generate", "x"}, {"ask", "x"}} {
		t.Run(args[0], func(t *testing.T) {
			h := newHarness(t)
			h.writeEnv("GEMINI_API_KEY=AIza\n")
			h.client.err = &wire.APIError{StatusCode: 503, Type: "unavailable", Message: "model overloaded"}

			require.Equal(t, 1, h.run(args...))
			require.Contains(t, h.stderr.String(), "model overloaded")
			require.NotContains(t, h.stdout.String(), "Generated Code:")
		})
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		Name     string
		Args     []string
		Expected int
	}{
		{Name: "No subcommand", Args: nil, Expected: 1},
		{Name: "Unknown subcommand", Args: []string{"deploy"}, Expected: 1},
		{Name: "Unknown flag", Args: []string{"generate", "--colour", "x"}, Expected: 2},
		{Name: "Generate without prompt", Args: []string{"generate"}, Expected: 2},
		{Name: "Start takes no arguments", Args: []string{"start", "now"}, Expected: 2},
		{Name: "Unknown model", Args: []string{"--model", "llama3", "generate", "x"}, Expected: 1},
		{Name: "Help", Args: []string{"--help"}, Expected: 0},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			h := newHarness(t)
			h.writeEnv("GEMINI_API_KEY=AIza\n")

			require.Equal(t, test.Expected, h.run(test.Args...))
		})
	}
}

func TestModelSelection(t *testing.T) {
	tests := []struct {
		Name     string
		Env      string
		Args     []string
		Provider llm.Provider
		Model    string
		Key      string
	}{
		{Name: "Default", Env: "GEMINI_API_KEY=g\n", Args: []string{"generate", "x"}, Provider: llm.Gemini, Model: llm.FLASH, Key: "g"},
		{Name: "Flag alias", Env: "ANTHROPIC_API_KEY=a\n", Args: []string{"-m", "haiku", "generate", "x"}, Provider: llm.Anthropic, Model: llm.HAIKU, Key: "a"},
		{Name: "From env file", Env: "CODEGEN_MODEL=gpt\nOPENAI_API_KEY=o\n", Args: []string{"ask", "x"}, Provider: llm.OpenAI, Model: llm.GPT, Key: "o"},
		{Name: "Flag beats env file", Env: "CODEGEN_MODEL=gpt\nGEMINI_API_KEY=g\n", Args: []string{"--model", "gemini-2.5-pro", "ask", "x"}, Provider: llm.Gemini, Model: "gemini-2.5-pro", Key: "g"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			h := newHarness(t)
			h.writeEnv(test.Env)

			require.Equal(t, 0, h.run(test.Args...))
			require.Equal(t, []factoryCall{{provider: test.Provider, model: test.Model, apiKey: test.Key}}, h.calls)
		})
	}
}

func TestSystemPromptAndDocuments(t *testing.T) {
	h := newHarness(t)
	h.writeEnv("GEMINI_API_KEY=AIza\n")

	dir := t.TempDir()
	system := filepath.Join(dir, "system.txt")
	doc := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(system, []byte("be terse"), 0o644))
	require.NoError(t, os.WriteFile(doc, []byte("the API uses cursors"), 0o644))

	require.Equal(t, 0, h.run("-s", system, "ask", "-d", doc, "how do I paginate?"))
	require.Len(t, h.client.requests, 1)
	require.Equal(t, "be terse\n\n<document>the API uses cursors</document>", h.client.requests[0].System)
	require.Equal(t, "Answer this programming question: how do I paginate?", h.client.requests[0].Prompt)
}

func TestMissingAttachmentFails(t *testing.T) {
	h := newHarness(t)
	h.writeEnv("GEMINI_API_KEY=AIza\n")

	require.Equal(t, 1, h.run("generate", "-i", filepath.Join(t.TempDir(), "nope.png"), "x"))
	require.Empty(t, h.client.requests)
}

func TestVerboseLogging(t *testing.T) {
	h := newHarness(t)
	h.writeEnv("GEMINI_API_KEY=AIza\n")

	require.Equal(t, 0, h.run("-v", "generate", "x"))
	require.Contains(t, h.stderr.String(), "sending prompt")
	require.NotContains(t, h.stderr.String(), "AIza")
}
