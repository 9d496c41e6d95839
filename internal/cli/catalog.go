package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the available node types",
		Long: `List every node type with its inputs and outputs.

Inputs named entity, accounts, period, fx_rates and rules are supplied by
the run itself; every other input must be produced by an upstream node.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, category, cmd)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "show one category only")

	return cmd
}

func runCatalog(opts *RootOptions, category string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	contracts := make([]model.Contract, 0, len(nodes.Catalog))
	for _, c := range nodes.Catalog {
		if category == "" || c.Category == category {
			contracts = append(contracts, c)
		}
	}
	if len(contracts) == 0 {
		msg := fmt.Sprintf("no node types in category %q", category)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	return formatter.Success(contracts, func(w io.Writer) {
		for _, c := range contracts {
			fmt.Fprintf(w, "%s (%s) - %s\n", c.Type, c.Category, c.DisplayName)
			fmt.Fprintf(w, "    %s\n", c.Description)
			fmt.Fprintf(w, "    inputs:  %s\n", strings.Join(c.Inputs, ", "))
			if len(c.Optional) > 0 {
				fmt.Fprintf(w, "    optional: %s\n", strings.Join(c.Optional, ", "))
			}
			fmt.Fprintf(w, "    outputs: %s\n", strings.Join(c.Outputs, ", "))
		}
	})
}
