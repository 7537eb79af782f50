package main

import (
	"fmt"
	"strings"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/spf13/cobra"
)

func newTipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips [species]",
		Short: "Show conservation strategies for a species or habitat",
		Long: `Show conservation strategies for a species or habitat.

Names are matched case-insensitively. Without an argument, lists the
species that have guides.

Examples:
  ecosim tips tiger
  ecosim tips "coral reefs"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := content.Default()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				return listSpecies(cmd, lib)
			}

			name := strings.Join(args, " ")
			guide, ok := lib.Tips(name)
			if !ok {
				if jsonOutput(cmd) {
					return printJSON(cmd, map[string]any{
						"species": content.NormalizeSpecies(name),
						"error":   content.NoGuideMessage,
					})
				}
				fmt.Fprintln(out, content.NoGuideMessage)
				return nil
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, guide)
			}
			fmt.Fprint(out, guide.Markdown())
			return nil
		},
	}
}

func newSpeciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species",
		Short: "List species with conservation guides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSpecies(cmd, content.Default())
		},
	}
}

func listSpecies(cmd *cobra.Command, lib *content.Library) error {
	species := lib.Species()
	if jsonOutput(cmd) {
		return printJSON(cmd, map[string]any{"species": species, "count": len(species)})
	}
	for _, s := range species {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

func newResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List educational resources on ecology and conservation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := content.Default().Resources()
			if jsonOutput(cmd) {
				return printJSON(cmd, groups)
			}

			out := cmd.OutOrStdout()
			for i, g := range groups {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s\n", g.Category)
				for _, l := range g.Links {
					fmt.Fprintf(out, "  %s\n    %s\n", l.Title, l.URL)
				}
			}
			return nil
		},
	}
}
