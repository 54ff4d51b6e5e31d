// SPDX-License-Identifier: Apache-2.0

// Package cli wires the docdiff commands.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemaraproj/docdiff/internal/document"
)

// Exit codes returned by the docdiff binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitInput   = 2
)

const configFlag = "config"

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdiff",
		Short: "Compare two revisions of a document",
		Long: `docdiff aligns the structural blocks of two document revisions and reports
what was added, deleted and modified, scoring every modification with a
similarity oracle.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{"version": version},
	}
	cmd.PersistentFlags().String(configFlag, "", "path to a docdiff YAML configuration file")

	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newOracleCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// ExitCode maps a command error to the process exit code. Unreadable or
// unsupported inputs exit with ExitInput; everything else with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, document.ErrParse) || errors.Is(err, document.ErrUnsupportedFormat) {
		return ExitInput
	}
	return ExitFailure
}

func versionOf(cmd *cobra.Command) string {
	if v, ok := cmd.Root().Annotations["version"]; ok && v != "" {
		return v
	}
	return "dev"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docdiff version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionOf(cmd))
			return err
		},
	}
}
