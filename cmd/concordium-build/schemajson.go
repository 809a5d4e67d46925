package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concordium/concordium-build/schema"
)

func schemaJSONCmd() *cobra.Command {
	var (
		modulePath    string
		schemaPath    string
		out           string
		schemaVersion string
	)

	cmd := &cobra.Command{
		Use:   "schema-json",
		Short: "Convert an embedded or standalone schema to per-contract JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := loadSchemaSource(modulePath, schemaPath, schemaVersion)
			if err != nil {
				return err
			}
			info, err := os.Stat(out)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("--out %q must be an existing directory", out)
			}
			paths, err := schema.WriteJSONFiles(out, ms)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(os.Stderr, "Writing the JSON schema to %s.\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modulePath, "module", "", "module file carrying an embedded schema")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "standalone binary schema file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "existing directory to write JSON files into")
	cmd.Flags().StringVar(&schemaVersion, "schema-version", "", "schema version for unversioned schema files (V0..V3)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
