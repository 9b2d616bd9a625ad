package codegen

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ask prompts once and trims the reply. End of input comes back as io.EOF.
func ask(p prompter, prompt string) (string, error) {
	line, err := p.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func askLanguage(p prompter, prompt string) (string, error) {
	language, err := ask(p, prompt)
	if err != nil {
		return "", err
	}
	if language == "" {
		return DefaultLanguage, nil
	}
	return language, nil
}

func (app *env) printMenu() {
	app.stdout.Banner("\nWelcome to AI Code Generator CLI")
	app.stdout.Success("Choose an option:")
	app.stdout.Println("1. Generate Code")
	app.stdout.Println("2. Ask a Question")
	app.stdout.Println("3. Interactive Mode")
	app.stdout.Println("4. Exit")
}

// runMenu loops until the user picks Exit or input ends. Any failed remote
// call ends the loop with that error.
func (app *env) runMenu(ctx context.Context, p prompter) error {
	for {
		app.printMenu()

		choice, err := ask(p, "Enter your choice (1-4): ")
		if errors.Is(err, io.EOF) {
			app.stdout.Success("Exiting...")
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = app.menuGenerate(ctx, p)
		case "2":
			err = app.menuAsk(ctx, p)
		case "3":
			err = app.runInteractive(ctx, p)
		case "4":
			app.stdout.Success("Exiting...")
			return nil
		default:
			app.stdout.Error("Invalid choice! Please enter a number between 1-4.")
			continue
		}

		if errors.Is(err, io.EOF) {
			app.stdout.Success("Exiting...")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (app *env) menuGenerate(ctx context.Context, p prompter) error {
	prompt, err := ask(p, "Enter your prompt for code generation: ")
	if err != nil {
		return err
	}
	language, err := askLanguage(p, "Enter the programming language (default: Python): ")
	if err != nil {
		return err
	}
	p.AppendHistory(prompt)

	client, err := app.llmClient(ctx)
	if err != nil {
		return err
	}

	code, err := GenerateCode(ctx, client, prompt, language, app.settings.system, nil)
	if err != nil {
		return err
	}
	return app.stdout.Code(code, language)
}

func (app *env) menuAsk(ctx context.Context, p prompter) error {
	question, err := ask(p, "Enter your question: ")
	if err != nil {
		return err
	}
	p.AppendHistory(question)

	client, err := app.llmClient(ctx)
	if err != nil {
		return err
	}

	answer, err := AskQuestion(ctx, client, question, app.settings.system, nil)
	if err != nil {
		return err
	}

	app.stdout.Heading("AI Response:")
	app.stdout.Text(answer)
	return nil
}

// runInteractive generates code for each prompt. "exit" returns nil and
// end of input returns io.EOF.
func (app *env) runInteractive(ctx context.Context, p prompter) error {
	client, err := app.llmClient(ctx)
	if err != nil {
		return err
	}

	app.stdout.Banner("AI Code Generator CLI - Interactive Mode (type 'exit' to quit)")
	for {
		app.stdout.Println("")
		prompt, err := ask(p, "Enter your prompt: ")
		if err != nil {
			return err
		}

		if strings.EqualFold(prompt, "exit") {
			app.stdout.Success("Exiting...")
			return nil
		}
		if prompt == "" {
			continue
		}
		p.AppendHistory(prompt)

		language, err := askLanguage(p, "Enter language (default: Python): ")
		if err != nil {
			return err
		}

		code, err := GenerateCode(ctx, client, prompt, language, app.settings.system, nil)
		if err != nil {
			return err
		}
		if err := app.stdout.Code(code, language); err != nil {
			return err
		}
	}
}
