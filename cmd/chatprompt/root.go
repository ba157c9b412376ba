package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/fileregistry"
	"github.com/skosovsky/chatprompt/manifest"
)

const envPrefix = "CHATPROMPT"

// app holds per-invocation state shared by subcommands.
type app struct {
	v      *viper.Viper
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "chatprompt",
		Short:         "Render and validate chat prompt manifests",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	flags.StringP("log-level", "l", "warn", "log level (debug, info, warn, error)")
	flags.StringP("dir", "d", "prompts", "directory with prompt manifests")
	flags.StringP("env", "e", "", "environment suffix (name.<env>.yaml)")
	flags.StringP("syntax", "s", "f-string", "default template syntax (f-string, mustache, jinja2)")
	bindErr := bindFlags(a.v, root, map[string]string{
		"logging.level": "log-level",
		"dir":           "dir",
		"env":           "env",
		"syntax":        "syntax",
	})

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if bindErr != nil {
			return bindErr
		}
		return a.init(cmd.ErrOrStderr(), cfgFile)
	}

	root.AddCommand(a.renderCmd(), a.varsCmd(), a.validateCmd())
	return root
}

// bindFlags binds config keys to persistent flags of cmd.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	var errs []error
	for key, name := range keys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) init(stderr io.Writer, cfgFile string) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	level, err := zerolog.ParseLevel(a.v.GetString("logging.level"))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		Level(level).With().Timestamp().Logger()
	return nil
}

func (a *app) syntax() (chatprompt.Syntax, error) {
	return chatprompt.ParseSyntax(a.v.GetString("syntax"))
}

func (a *app) templateOptions() []chatprompt.Option {
	return []chatprompt.Option{chatprompt.WithLogger(a.logger)}
}

func (a *app) registry() (*fileregistry.Registry, error) {
	s, err := a.syntax()
	if err != nil {
		return nil, err
	}
	return fileregistry.New(a.v.GetString("dir"),
		fileregistry.WithSyntax(s),
		fileregistry.WithTemplateOptions(a.templateOptions()...),
	), nil
}

// load resolves ref as a manifest path when it names an existing .yaml/.yml file,
// otherwise as a template name in the configured directory.
func (a *app) load(ctx context.Context, ref string) (*chatprompt.ChatTemplate, error) {
	if ext := filepath.Ext(ref); ext == ".yaml" || ext == ".yml" {
		if _, err := os.Stat(ref); err == nil {
			s, err := a.syntax()
			if err != nil {
				return nil, err
			}
			a.logger.Debug().Str("path", ref).Msg("loading manifest file")
			return manifest.ParseFile(ref,
				manifest.WithDefaultSyntax(s),
				manifest.WithTemplateOptions(a.templateOptions()...),
			)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("name", ref).Str("env", a.v.GetString("env")).Msg("loading template from registry")
	return reg.GetTemplate(ctx, ref, a.v.GetString("env"))
}
