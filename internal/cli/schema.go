// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gemaraproj/docdiff/internal/report"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the report export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := report.ExportSchema()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(schema); err != nil {
				return err
			}
			_, err = out.Write([]byte("\n"))
			return err
		},
	}
}
