// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	fcolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/docdiff/internal/config"
	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document/normalizers"
	"github.com/gemaraproj/docdiff/internal/logging"
	"github.com/gemaraproj/docdiff/internal/report"
)

const (
	htmlFlag = "html"
	jsonFlag = "json"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare OLD NEW",
		Short: "Compare two document revisions",
		Long: `Compare two revisions of a document (txt, markdown, yaml, json, docx or xlsx)
and print a summary. Use --html and --json to write the full report.

Exit status is 2 when an input cannot be read or has an unsupported format.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args[0], args[1])
		},
	}
	cmd.Flags().String(htmlFlag, "", "write the interactive HTML report to this path")
	cmd.Flags().String(jsonFlag, "", "write the JSON export to this path")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, logging.Format(cfg.Log.Format))
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return logger, nil
}

func runCompare(cmd *cobra.Command, oldPath, newPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx, _ := logging.WithRunID(contextOf(cmd))
	logger := logging.FromContext(ctx, base)

	pipeline := normalizers.DefaultPipeline().WithLogger(logger)
	logger.Debug("normalizers registered", "normalizers", pipeline.RegisteredNormalizers())
	oldSeq, err := pipeline.Load(ctx, oldPath)
	if err != nil {
		return err
	}
	newSeq, err := pipeline.Load(ctx, newPath)
	if err != nil {
		return err
	}

	o, closeOracle, err := newOracle(cfg, versionOf(cmd), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeOracle(); err != nil {
			logger.Warn("closing oracle failed", "error", err)
		}
	}()

	opts := cfg.ClassifierOptions()
	opts.Logger = logger
	engine, err := diff.NewEngine(o, cfg.AlignOptions(), opts)
	if err != nil {
		return err
	}
	res, err := engine.Compare(ctx, oldSeq, newSeq)
	if err != nil {
		return fmt.Errorf("compare %s and %s: %w", oldPath, newPath, err)
	}
	model := report.BuildWithOptions(res, cfg.ReportOptions())

	var written []string
	if path, _ := cmd.Flags().GetString(htmlFlag); path != "" {
		if err := report.WriteFile(path, func(w io.Writer) error { return report.RenderHTML(w, model) }); err != nil {
			return err
		}
		written = append(written, path)
	}
	if path, _ := cmd.Flags().GetString(jsonFlag); path != "" {
		if err := report.WriteFile(path, func(w io.Writer) error { return report.RenderJSON(w, model) }); err != nil {
			return err
		}
		written = append(written, path)
	}
	logger.Info("comparison finished",
		"changes", model.Counts.Changed(), "clusters", len(model.Clusters), "reports", len(written))

	printSummary(cmd.OutOrStdout(), model, written)
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printSummary writes the human readable outcome of a comparison.
func printSummary(w io.Writer, m *report.Model, written []string) {
	bold := fcolor.New(fcolor.Bold)
	green := fcolor.New(fcolor.FgGreen)
	red := fcolor.New(fcolor.FgRed)
	yellow := fcolor.New(fcolor.FgYellow)

	_, _ = bold.Fprintf(w, "%s → %s\n", m.OldSource, m.NewSource)
	_, _ = fmt.Fprintf(w, "  %d blocks: ", m.Counts.Total)
	_, _ = green.Fprintf(w, "%d added", m.Counts.Added)
	_, _ = fmt.Fprint(w, ", ")
	_, _ = red.Fprintf(w, "%d deleted", m.Counts.Deleted)
	_, _ = fmt.Fprint(w, ", ")
	_, _ = yellow.Fprintf(w, "%d modified", m.Counts.Modified)
	_, _ = fmt.Fprintf(w, ", %d unchanged\n", m.Counts.Unchanged)
	if m.AverageModifiedScore != nil {
		_, _ = fmt.Fprintf(w, "  average similarity of modifications: %.2f/10\n", *m.AverageModifiedScore)
	}
	_, _ = fmt.Fprintf(w, "  %s\n", m.Summary)
	if m.Degraded > 0 {
		_, _ = yellow.Fprintf(w, "  ⚠ %d scores came from the fallback heuristic\n", m.Degraded)
	}
	for _, path := range written {
		_, _ = green.Fprintf(w, "  ✚ wrote %s\n", path)
	}
}
