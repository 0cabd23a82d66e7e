package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/pipeline"
)

var (
	crawlMode  string
	crawlShows []string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl show archives once and record new appearances",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode, ok := model.ParseMode(crawlMode)
		if !ok {
			return eris.Errorf("unknown mode %q", crawlMode)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		orch, err := pipeline.New(cfg, st)
		if err != nil {
			return err
		}

		summary, err := orch.Run(ctx, mode, crawlShows)
		if err != nil {
			return err
		}

		totals := summary.Totals()
		zap.L().Info("crawl finished",
			zap.String("mode", string(mode)),
			zap.Int("politicians_added", totals.PoliticiansAdded),
			zap.Int("links_added", totals.LinksAdded))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "encode summary")
		}

		for _, s := range summary.Shows {
			if s.Failed() {
				return eris.Errorf("show %s failed: %s", s.Show, s.Error)
			}
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlMode, "mode", "incremental", "crawl mode: incremental or full")
	crawlCmd.Flags().StringSliceVar(&crawlShows, "show", nil, "show to crawl (repeatable, default all)")
	rootCmd.AddCommand(crawlCmd)
}
