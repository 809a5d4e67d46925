package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/concordium/concordium-build/artifact"
	"github.com/concordium/concordium-build/build"
	"github.com/concordium/concordium-build/schema"
)

func buildCmd() *cobra.Command {
	var (
		versionFlag   string
		out           string
		dir           string
		schemaEmbed   bool
		schemaOut     string
		schemaJSONOut string
	)

	cmd := &cobra.Command{
		Use:   "build [-- cargo args...]",
		Short: "Compile a contract and package it as a versioned module",
		Long: `Compile a contract for the wasm32 target, validate its imports and
exports against the selected module version, and write the versioned module.

With --schema-embed or --schema-out the contract is first compiled with the
schema feature enabled and the schema is extracted by executing the
schema-generation entry points. Arguments after "--" are passed to cargo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := artifact.ParseVersion(versionFlag)
			if err != nil {
				return err
			}

			schemaOpts := build.SchemaDoNotBuild
			switch {
			case schemaEmbed:
				schemaOpts = build.SchemaBuildAndEmbed
			case schemaOut != "" || schemaJSONOut != "":
				schemaOpts = build.SchemaJustBuild
			}
			if schemaJSONOut != "" {
				info, err := os.Stat(schemaJSONOut)
				if err != nil || !info.IsDir() {
					return fmt.Errorf("--schema-json-out %q must be an existing directory", schemaJSONOut)
				}
			}

			res, err := build.BuildContract(cmd.Context(), build.Options{
				Version:   version,
				Schema:    schemaOpts,
				Out:       out,
				Dir:       dir,
				CargoArgs: args,
			})
			if err != nil {
				return err
			}

			if res.Schema != nil {
				if err := reportSchema(res.Schema, schemaOut, schemaJSONOut, schemaEmbed); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "%s %d.%03d kB (%d B) at %s\n",
				styled(successStyle, "Finished smart contract module"),
				res.TotalSize/1000, res.TotalSize%1000, res.TotalSize, res.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&versionFlag, "version", "V1", "module version to build (V0 or V1)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path for the versioned module")
	cmd.Flags().StringVar(&dir, "dir", "", "project directory (defaults to the current directory)")
	cmd.Flags().BoolVarP(&schemaEmbed, "schema-embed", "e", false, "build the schema and embed it into the module")
	cmd.Flags().StringVar(&schemaOut, "schema-out", "", "write the binary schema to this file")
	cmd.Flags().StringVar(&schemaJSONOut, "schema-json-out", "", "write per-contract JSON schemas into this directory")
	return cmd
}

// reportSchema prints the per-contract schema summary and writes the
// requested binary and JSON outputs.
func reportSchema(ms *schema.ModuleSchema, schemaOut, schemaJSONOut string, embedded bool) error {
	names := make([]string, 0, len(ms.Contracts))
	for name := range ms.Contracts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, styled(headingStyle, "Module schema includes:"))
	for _, name := range names {
		c := ms.Contracts[name]
		fmt.Fprintf(os.Stderr, "  %s (%d entrypoints, %d B)\n",
			name, len(c.Receive), len(c.Serialize(ms.Version)))
	}
	blob := ms.Serialize()
	fmt.Fprintf(os.Stderr, "Total size of the module schema is %d B\n", len(blob))

	if embedded {
		fmt.Fprintln(os.Stderr, "Embedding schema into the module.")
	}
	if schemaOut != "" {
		if err := artifact.Write(schemaOut, blob); err != nil {
			return fmt.Errorf("writing schema: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Writing the schema to %s.\n", schemaOut)
	}
	if schemaJSONOut != "" {
		paths, err := schema.WriteJSONFiles(schemaJSONOut, ms)
		if err != nil {
			return fmt.Errorf("writing schema JSON: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintf(os.Stderr, "Writing the JSON schema to %s.\n", p)
		}
	}
	return nil
}
