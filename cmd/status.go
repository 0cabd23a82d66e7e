package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/polittalk/talkwatch/internal/sources"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoints per show and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SHOW\tLATEST EPISODE")
		for _, src := range sources.All() {
			latest, ok, err := st.LatestEpisodeDate(ctx, src.Name)
			if err != nil {
				return eris.Wrapf(err, "checkpoint for %s", src.Name)
			}
			if ok {
				fmt.Fprintf(w, "%s\t%s\n", src.Name, latest.Format("2006-01-02"))
			} else {
				fmt.Fprintf(w, "%s\t-\n", src.Name)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(runs) == 0 {
			fmt.Println("\nno recorded runs")
			return nil
		}

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tMODE\tSTARTED\tDURATION\tPOLITICIANS\tLINKS\tFAILED SHOWS")
		for _, run := range runs {
			totals := run.Summary.Totals()
			failed := 0
			for _, s := range run.Summary.Shows {
				if s.Failed() {
					failed++
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				run.ID[:8],
				run.Mode,
				run.StartedAt.Format(time.RFC3339),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
				totals.PoliticiansAdded,
				totals.LinksAdded,
				failed)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
