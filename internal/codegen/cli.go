// Package codegen is the command-line front end: it parses arguments, reads
// the credential, and routes prompts to the dispatchers.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/davidhbaek/codegen/internal/attach"
	"github.com/davidhbaek/codegen/internal/credential"
	"github.com/davidhbaek/codegen/internal/ctxlog"
	"github.com/davidhbaek/codegen/internal/llm"
	"github.com/davidhbaek/codegen/internal/render"
)

const appName = "codegen"

type env struct {
	settings settings
	store    *credential.Store
	clients  *llm.ClientConfig
	loader   *attach.Loader
	client   llm.Client

	stdout *render.Printer
	stderr *render.Printer

	newPrompter func() (prompter, error)
}

// usageError marks malformed flags or arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

var errNoCommand = errors.New("no command given")

func CLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newEnv(os.Stdout, os.Stderr)
	return app.execute(ctx, args)
}

func newEnv(stdout, stderr io.Writer) *env {
	return &env{
		clients:     llm.NewClientConfig(),
		loader:      attach.NewLoader(),
		stdout:      render.New(stdout),
		stderr:      render.New(stderr),
		newPrompter: newLinePrompter,
	}
}

func (app *env) execute(ctx context.Context, args []string) int {
	root := app.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0

	case errors.As(err, new(usageError)):
		app.stderr.Error("parsing args: %v", err)
		app.stderr.Println(fmt.Sprintf("Run '%s --help' for usage.", appName))
		return 2

	case errors.Is(err, errNoCommand):
		return 1

	case errors.Is(err, credential.ErrMissing):
		app.stderr.Warn("API key not found! Please set it using: %s set-key YOUR_API_KEY (%v)", appName, err)
		return 1

	default:
		app.stderr.Error("Error: %v", err)
		return 1
	}
}

func (app *env) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "AI-powered CLI code generator",
		Long:          "Generate code and answer programming questions with a remote language model (Gemini by default).",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Help()
			return errNoCommand
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.configure(cmd)
		},
	}

	root.SetOut(app.stdout.Writer())
	root.SetErr(app.stderr.Writer())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	app.settings.register(root.PersistentFlags())

	root.AddCommand(
		app.setKeyCommand(),
		app.startCommand(),
		app.generateCommand(),
		app.askCommand(),
		app.interactiveCommand(),
	)
	return root
}

// usageArgs turns argument-count failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// llmClient builds the provider client on first use. The credential is
// checked before the client exists, so a missing key never reaches the network.
func (app *env) llmClient(ctx context.Context) (llm.Client, error) {
	if app.client != nil {
		return app.client, nil
	}

	provider, model, err := llm.Resolve(app.settings.model)
	if err != nil {
		return nil, err
	}

	apiKey, err := app.store.Require(provider.KeyName())
	if err != nil {
		return nil, err
	}

	client, err := app.clients.NewClient(provider, model, apiKey)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("created client", "provider", provider, "model", model)
	app.client = client
	return client, nil
}
