// Command concordium-build compiles, packages, and inspects smart contract
// modules in the versioned deployment format.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/concordium/concordium-build/build"
)

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	errStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	headingStyle = lipgloss.NewStyle().Bold(true)
)

// styled renders s through style when stderr is a terminal, and plain
// otherwise, so piped output stays free of escape sequences.
func styled(style lipgloss.Style, s string) string {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return s
	}
	return style.Render(s)
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "concordium-build",
		Short:         "Build, package and inspect smart contract modules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				build.SetLogger(log)
			}
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(buildCmd())
	cmd.AddCommand(schemaJSONCmd())
	cmd.AddCommand(printSchemaCmd())
	cmd.AddCommand(inspectCmd())
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styled(errStyle, "Error: "+err.Error()))
		os.Exit(1)
	}
}
