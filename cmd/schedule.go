package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/pipeline"
	"github.com/polittalk/talkwatch/internal/sources"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run incremental crawls on each show's cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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

		c := cron.New()
		for _, src := range sources.All() {
			spec := cfg.Schedule.Shows[src.Name]
			if spec == "" {
				spec = cfg.Schedule.Default
			}
			show := src.Name
			_, err := c.AddFunc(spec, func() {
				zap.L().Info("scheduled crawl starting", zap.String("show", show))
				if _, err := orch.Run(ctx, model.ModeIncremental, []string{show}); err != nil {
					zap.L().Error("scheduled crawl failed",
						zap.String("show", show), zap.Error(err))
				}
			})
			if err != nil {
				return eris.Wrapf(err, "schedule %s (%q)", show, spec)
			}
			zap.L().Info("show scheduled",
				zap.String("show", show), zap.String("cron", spec))
		}

		c.Start()
		<-ctx.Done()
		zap.L().Info("shutting down, waiting for running jobs")

		stopCtx := c.Stop()
		<-stopCtx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
