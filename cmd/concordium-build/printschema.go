package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concordium/concordium-build/artifact"
)

func printSchemaCmd() *cobra.Command {
	var (
		modulePath    string
		schemaPath    string
		out           string
		schemaVersion string
	)

	cmd := &cobra.Command{
		Use:   "print-schema",
		Short: "Print a schema as base64, or write its binary form to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := loadSchemaSource(modulePath, schemaPath, schemaVersion)
			if err != nil {
				return err
			}
			if out != "" {
				if err := artifact.Write(out, ms.Serialize()); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Writing the schema to %s.\n", out)
				return nil
			}
			fmt.Println(ms.Base64())
			return nil
		},
	}

	cmd.Flags().StringVar(&modulePath, "module", "", "module file carrying an embedded schema")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "standalone binary schema file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the binary schema to this file instead of printing base64")
	cmd.Flags().StringVar(&schemaVersion, "schema-version", "", "schema version for unversioned schema files (V0..V3)")
	return cmd
}
