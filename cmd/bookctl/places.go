package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanizio/tradesite/internal/places"
)

func newPlacesCmd(g *globalOpts) *cobra.Command {
	var details bool
	cmd := &cobra.Command{
		Use:   "places <text>",
		Short: "Query address suggestions",
		Long: `Print the site's address suggestions for <text>, one per line as
"<place id>\t<description>".  With --details the argument is a place id
and the resolved address is printed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			rl := places.NewRemoteLookup(g.site, &http.Client{Timeout: g.timeout})
			input := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			if details {
				a, err := rl.Details(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, a.Formatted)
				for _, k := range sortedKeys(a.Components) {
					fmt.Fprintf(out, "  %s: %s\n", k, a.Components[k])
				}
				return nil
			}

			preds, err := rl.Autocomplete(ctx, input)
			if err != nil {
				return err
			}
			for _, p := range preds {
				fmt.Fprintf(out, "%s\t%s\n", p.PlaceID, p.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "resolve a place id")
	return cmd
}
