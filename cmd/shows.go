package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polittalk/talkwatch/internal/sources"
)

var showsCmd = &cobra.Command{
	Use:   "shows",
	Short: "List the configured shows and their archive settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SHOW\tFETCH\tARCHIVE")
		for _, src := range sources.All() {
			fetch := "browser"
			if src.Static {
				fetch = "http"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.Name, fetch, src.ListingURL)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(showsCmd)
}
