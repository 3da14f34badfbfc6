package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/i18n"
	"github.com/utgen/paramlit/internal/batch"
	"github.com/utgen/paramlit/internal/config"
	"github.com/utgen/paramlit/internal/fsutil"
	"github.com/utgen/paramlit/schema"
	"github.com/utgen/paramlit/skeleton"
	"github.com/utgen/paramlit/source/jsonl"
	"github.com/utgen/paramlit/transcode"
)

// operators returns args, or every discovered operator when args is empty.
func (a *app) operators(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	ops, err := batch.PathsFromConfig(a.cfg).Discover()
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operators found in %s or %s", a.cfg.InputDir, a.cfg.TemplateDir)
	}
	return ops, nil
}

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [operator...]",
		Short: "Splice the JSONL cases of each operator into its skeleton",
		Long: `For every operator, reads <input_dir>/<op>.jsonl, renders the case array
of the layout declared by the skeleton, and writes the patched source to
<output_dir>. A missing or empty input copies the skeleton unchanged.
Without arguments every operator with an input or template is generated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.operators(args)
			if err != nil {
				return err
			}
			results, err := a.runner().Run(cmd.Context(), ops)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, res := range results {
				switch {
				case res.Err != nil:
					fmt.Fprintf(out, "FAIL  %s\n", res.Op)
				case res.Copied:
					fmt.Fprintf(out, "COPY  %s -> %s\n", res.Op, res.Output)
				default:
					fmt.Fprintf(out, "OK    %s -> %s (%s, %d cases)\n", res.Op, res.Output, res.Schema, res.Records)
				}
				for _, it := range res.Warnings {
					fmt.Fprintf(out, "      warning: %s\n", i18n.Describe(it))
				}
			}
			return batch.Errors(results)
		},
	}
}

func (a *app) extractCmd() *cobra.Command {
	var (
		schemaID string
		lenient  bool
	)
	cmd := &cobra.Command{
		Use:   "extract <source.cpp> [out.jsonl]",
		Short: "Decode the case array of a test source into JSONL",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			opt := transcode.DecodeOpt{Registry: a.registry}
			if lenient {
				opt.OnMismatch = paramlit.Warn
			}
			if schemaID != "" {
				d, ok := a.registry.Get(schemaID)
				if !ok {
					return paramlit.Errorf(paramlit.CodeUnsupportedSchema, "unknown schema %s", schemaID)
				}
				opt.Schema = d
			}
			doc, err := transcode.Decode(string(src), opt)
			if err != nil {
				return paramlit.WithPath(err, args[0], paramlit.CodeMalformedLiteral)
			}
			for _, it := range doc.Skipped {
				it.Path = args[0]
				fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", i18n.Describe(it))
			}
			a.logger.Info("extracted",
				zap.String("source", args[0]),
				zap.String("schema", doc.Schema.ID()),
				zap.Int("records", len(doc.Records)),
				zap.Int("skipped", len(doc.Skipped)))

			if len(args) == 1 {
				return jsonl.WriteAll(cmd.OutOrStdout(), doc.Records)
			}
			var b strings.Builder
			if err := jsonl.WriteAll(&b, doc.Records); err != nil {
				return err
			}
			return fsutil.WriteFile(args[1], []byte(b.String()), 0o644)
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "force a layout ID instead of resolving it")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip entries whose field count does not match instead of failing")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List operators with their input and template files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := batch.PathsFromConfig(a.cfg)
			ops, err := paths.Discover()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OPERATOR\tINPUT\tTEMPLATE")
			for _, op := range ops {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", op, exists(paths.Input(op)), exists(paths.Template(op)))
			}
			return tw.Flush()
		},
	}
}

func exists(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "-"
	}
	return path
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [operator...]",
		Short: "Compare generated sources with the reference sources in target_dir",
		Long: `Compares <output_dir>/test_<op>_tiling.cpp with the file of the same name in
target_dir, ignoring blank lines and trailing whitespace, and prints a diff
for each mismatch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.TargetDir == "" {
				return errors.New("target_dir is not configured")
			}
			ops, err := a.operators(args)
			if err != nil {
				return err
			}
			cmps, err := a.runner().Verify(cmd.Context(), ops)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, c := range cmps {
				switch {
				case c.Err != nil:
					failed++
					fmt.Fprintf(out, "ERROR %s: %v\n", c.Op, c.Err)
				case c.Diff != "":
					failed++
					fmt.Fprintf(out, "DIFF  %s (-target +output):\n%s\n", c.Op, c.Diff)
				default:
					fmt.Fprintf(out, "OK    %s\n", c.Op)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d operators differ from their targets", failed, len(cmps))
			}
			return nil
		},
	}
}

func (a *app) stripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip <source.cpp> [out.cpp]",
		Short: "Remove the case array and its constants, leaving the skeleton",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			skel, err := skeleton.Strip(string(src))
			if err != nil {
				return paramlit.WithPath(err, args[0], paramlit.CodeMalformedLiteral)
			}
			return write(cmd.OutOrStdout(), args, skel)
		},
	}
}

func (a *app) skeletonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skeleton <schema> [out.cpp]",
		Short: "Render an initial test skeleton for a layout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := a.registry.Get(args[0])
			if !ok {
				return paramlit.Errorf(paramlit.CodeUnsupportedSchema, "unknown schema %s", args[0])
			}
			text, err := skeleton.Generate(d)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), args, text)
		},
	}
}

// write sends text to args[1] when given, else to w.
func write(w io.Writer, args []string, text string) error {
	if len(args) < 2 {
		_, err := io.WriteString(w, text)
		return err
	}
	return fsutil.WriteFile(args[1], []byte(text), 0o644)
}

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}
			if err := config.Default().Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", a.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *app) schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the registered layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFIELDS\tFALLBACK\tDESCRIPTION")
			for _, d := range a.registry.All() {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.ID(), d.Arity(), fallback(d), d.Doc)
			}
			return tw.Flush()
		},
	}
}

func fallback(d *schema.Descriptor) string {
	if d.NameOnly {
		return "no"
	}
	return "yes"
}
