package codegen

import (
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/davidhbaek/codegen/internal/credential"
	"github.com/davidhbaek/codegen/internal/ctxlog"
	"github.com/davidhbaek/codegen/internal/llm"
)

const (
	defaultEnvFile = ".env"
	modelEnvKey    = "CODEGEN_MODEL"
)

type settings struct {
	envFile string
	model   string
	system  string
	verbose bool
}

func (s *settings) register(fl *pflag.FlagSet) {
	fl.StringVar(&s.envFile, "env-file", defaultEnvFile, "file holding the API key as KEY=VALUE")
	fl.StringVarP(&s.model, "model", "m", llm.FLASH, "model name or alias [flash, pro, gpt, haiku, sonnet, opus] (env "+modelEnvKey+")")
	fl.StringVarP(&s.system, "system", "s", "", "system prompt, or a path to a .txt file holding one")
	fl.BoolVarP(&s.verbose, "verbose", "v", false, "log debug output to stderr")
}

// configure runs before every subcommand once flags are parsed.
func (app *env) configure(cmd *cobra.Command) error {
	logger := ctxlog.New(app.stderr.Writer(), app.settings.verbose)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))

	app.store = credential.NewStore(app.settings.envFile)

	if !cmd.Flags().Changed("model") {
		// An unreadable env file must not block set-key from rewriting it.
		// Commands that need a key report the error from Require.
		model, err := app.store.Lookup(modelEnvKey)
		if err != nil {
			logger.Debug("skipping model from env file", "err", err)
		} else if model != "" {
			app.settings.model = model
		}
	}

	// Get the system prompt text if it's coming from a file
	if filepath.Ext(app.settings.system) == ".txt" {
		logger.Debug("reading system file", "path", app.settings.system)
		b, err := os.ReadFile(app.settings.system)
		if err != nil {
			return err
		}
		app.settings.system = string(b)
	}

	if app.settings.verbose {
		logger.Debug("settings", "dump", spew.Sdump(app.settings))
	}
	return nil
}
