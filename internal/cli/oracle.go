// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/docdiff/internal/config"
	"github.com/gemaraproj/docdiff/internal/oracle"
	"github.com/gemaraproj/docdiff/internal/tool"
)

// newOracle builds the oracle named by the configuration, wrapped in the
// score cache when a cache path is set. The returned func releases it.
func newOracle(cfg *config.Config, version string, logger *slog.Logger) (oracle.Oracle, func() error, error) {
	var (
		o       oracle.Oracle
		closers []func() error
	)
	switch cfg.Oracle.Kind {
	case "mcp":
		m := oracle.NewMCP(oracle.CommandTransport(cfg.Oracle.Command, cfg.Oracle.Args...), oracle.MCPOptions{
			Tool:    cfg.Oracle.Tool,
			Version: version,
			Logger:  logger,
		})
		o = m
		closers = append(closers, m.Close)
	default:
		rules, err := cfg.LabelRules()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: oracle.labels: %w", config.ErrInvalid, err)
		}
		o = oracle.NewHeuristic(rules)
	}

	if cfg.Oracle.CachePath != "" {
		cached, err := oracle.OpenCached(cfg.Oracle.CachePath, cfg.Oracle.ModelID, o, logger)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, nil, err
		}
		o = cached
		closers = append(closers, func() error {
			if n, err := cached.Len(context.Background()); err == nil {
				logger.Debug("oracle cache closed", "path", cfg.Oracle.CachePath, "entries", n)
			}
			return cached.Close()
		})
	}

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return o, closeAll, nil
}

func newOracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Similarity oracle utilities",
	}
	cmd.AddCommand(newOracleServeCmd())
	return cmd
}

func newOracleServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the heuristic oracle as an MCP tool over stdio",
		Long: `Serve the score_similarity tool backed by the built-in heuristic oracle.

The server speaks the Model Context Protocol over stdio and can be used as
the oracle command of another docdiff run:

  docdiff compare old.docx new.docx --oracle mcp --oracle-command docdiff --oracle-arg oracle --oracle-arg serve`,
		Args: cobra.NoArgs,
		RunE: runOracleServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runOracleServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	rules, err := cfg.LabelRules()
	if err != nil {
		return fmt.Errorf("%w: oracle.labels: %w", config.ErrInvalid, err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "docdiff-oracle", Version: versionOf(cmd)}, nil)
	tool.Register(server, oracle.NewHeuristic(rules))

	logger.Info("serving similarity oracle", "tool", oracle.DefaultTool, "labels", len(rules))
	if err := server.Run(contextOf(cmd), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("running oracle server: %w", err)
	}
	return nil
}
