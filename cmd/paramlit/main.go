// Command paramlit converts test-case records to the case arrays of C++ tiling
// tests and back.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/i18n"
	"github.com/utgen/paramlit/internal/batch"
	"github.com/utgen/paramlit/internal/config"
	"github.com/utgen/paramlit/schema"
)

func main() {
	root := newRootCmd(nil)
	if err := root.Execute(); err != nil {
		report(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// app is the state shared by all subcommands.
type app struct {
	configPath  string
	schemasPath string
	lang        string
	verbose     bool

	logger   *zap.Logger
	cfg      *config.Config
	registry *schema.Registry
}

// newRootCmd builds the command tree. A nil logger is built from --verbose.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	a := &app{logger: logger}
	ownLogger := logger == nil

	root := &cobra.Command{
		Use:   "paramlit",
		Short: "Convert test-case records to C++ case arrays and back",
		Long: `paramlit splices JSONL test cases into C++ tiling test skeletons as
positional case arrays, and extracts them again.

Operators are discovered from the input and template directories of
paramlit.yaml; see the generate and verify commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if ownLogger {
				zc := zap.NewProductionConfig()
				if a.verbose {
					zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
				}
				l, err := zc.Build()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				a.logger = l
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ownLogger && a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultFile, "configuration file")
	root.PersistentFlags().StringVar(&a.schemasPath, "schemas", "", "YAML file with extra layouts")
	root.PersistentFlags().StringVar(&a.lang, "lang", "", "message language (en, zh); overrides the configuration")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.generateCmd(),
		a.extractCmd(),
		a.listCmd(),
		a.verifyCmd(),
		a.stripCmd(),
		a.skeletonCmd(),
		a.schemasCmd(),
		a.initCmd(),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.lang != "" {
		cfg.Language = a.lang
	}
	i18n.SetLanguage(cfg.Language)

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	if a.schemasPath != "" {
		f, err := os.Open(a.schemasPath)
		if err != nil {
			return fmt.Errorf("failed to open schemas: %w", err)
		}
		defer f.Close()
		descs, err := schema.LoadYAML(f)
		if err != nil {
			return paramlit.WithPath(err, a.schemasPath, paramlit.CodeInvalidSchema)
		}
		if reg, err = reg.With(descs...); err != nil {
			return paramlit.WithPath(err, a.schemasPath, paramlit.CodeInvalidSchema)
		}
	}
	a.cfg, a.registry = cfg, reg
	a.logger.Debug("configuration loaded",
		zap.String("path", a.configPath),
		zap.Int("schemas", len(reg.All())),
		zap.String("language", cfg.Language))
	return nil
}

func (a *app) runner() *batch.Runner {
	return &batch.Runner{
		Paths:         batch.PathsFromConfig(a.cfg),
		Registry:      a.registry,
		Concurrency:   a.cfg.Concurrency,
		DuplicateKeys: a.cfg.DuplicateKeySeverity(),
		Logger:        a.logger,
	}
}

// report writes one line per issue, or the plain error. Joined errors are
// reported one by one.
func report(w io.Writer, err error) {
	if _, isIssues := err.(paramlit.Issues); !isIssues {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				report(w, e)
			}
			return
		}
	}
	if iss, ok := paramlit.AsIssues(err); ok {
		for _, it := range iss {
			fmt.Fprintln(w, "error:", i18n.Describe(it))
		}
		return
	}
	fmt.Fprintln(w, "error:", err)
}
