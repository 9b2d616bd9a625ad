package codegen

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidhbaek/codegen/internal/attach"
	"github.com/davidhbaek/codegen/internal/ctxlog"
	"github.com/davidhbaek/codegen/internal/llm"
)

func (app *env) setKeyCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "set-key <api_key>",
		Short: "Save your API key to the env file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := llm.ParseProvider(provider)
			if err != nil {
				return usageError{err}
			}

			if err := app.store.Set(p.KeyName(), args[0]); err != nil {
				return err
			}

			ctxlog.FromContext(cmd.Context()).Debug("stored credential", "key", p.KeyName(), "path", app.store.Path())
			app.stdout.Success("API Key has been set successfully!")
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", string(llm.Gemini), "provider the key belongs to [gemini, openai, anthropic]")
	return cmd
}

// attachments holds the -i and -d flags shared by generate and ask.
type attachments struct {
	images []string
	docs   []string
}

func (a *attachments) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&a.images, "image", "i", nil, "image path or URL to attach (repeatable)")
	cmd.Flags().StringArrayVarP(&a.docs, "document", "d", nil, "document to use as context; PDFs are converted to text (repeatable)")
}

func (app *env) loadAttachments(cmd *cobra.Command, a *attachments) (*attach.Bundle, error) {
	if len(a.images) == 0 && len(a.docs) == 0 {
		return nil, nil
	}
	return app.loader.Load(cmd.Context(), a.images, a.docs)
}

func (app *env) generateCommand() *cobra.Command {
	var (
		language string
		files    attachments
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate code from a prompt",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.llmClient(cmd.Context())
			if err != nil {
				return err
			}

			bundle, err := app.loadAttachments(cmd, &files)
			if err != nil {
				return err
			}

			code, err := GenerateCode(cmd.Context(), client, strings.Join(args, " "), language, app.settings.system, bundle)
			if err != nil {
				return err
			}

			app.stdout.Heading("Generated Code:")
			return app.stdout.Code(code, language)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", DefaultLanguage, "programming language")
	files.register(cmd)
	return cmd
}

func (app *env) askCommand() *cobra.Command {
	var files attachments

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a coding-related question",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.llmClient(cmd.Context())
			if err != nil {
				return err
			}

			bundle, err := app.loadAttachments(cmd, &files)
			if err != nil {
				return err
			}

			answer, err := AskQuestion(cmd.Context(), client, strings.Join(args, " "), app.settings.system, bundle)
			if err != nil {
				return err
			}

			app.stdout.Heading("AI Response:")
			app.stdout.Text(answer)
			return nil
		},
	}

	files.register(cmd)
	return cmd
}

func (app *env) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the CLI menu",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withPrompter(func(p prompter) error {
				return app.runMenu(cmd.Context(), p)
			})
		},
	}
}

func (app *env) interactiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Run the CLI in interactive mode",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Fail before the first prompt when there is no key
			if _, err := app.llmClient(cmd.Context()); err != nil {
				return err
			}

			return app.withPrompter(func(p prompter) error {
				err := app.runInteractive(cmd.Context(), p)
				if errors.Is(err, io.EOF) {
					app.stdout.Success("Exiting...")
					return nil
				}
				return err
			})
		},
	}
}

func (app *env) withPrompter(fn func(prompter) error) error {
	p, err := app.newPrompter()
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(p)
}
