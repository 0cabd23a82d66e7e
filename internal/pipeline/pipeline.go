// Package pipeline orchestrates crawl runs across shows: it wires the
// fetchers, extraction cascade, resolver, and store together and fans the
// per-show engines out under a shared throttle.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/polittalk/talkwatch/internal/browser"
	"github.com/polittalk/talkwatch/internal/config"
	"github.com/polittalk/talkwatch/internal/crawler"
	"github.com/polittalk/talkwatch/internal/extract"
	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/resilience"
	"github.com/polittalk/talkwatch/internal/resolve"
	"github.com/polittalk/talkwatch/internal/sources"
	"github.com/polittalk/talkwatch/internal/store"
	"github.com/polittalk/talkwatch/pkg/anthropic"
	"github.com/polittalk/talkwatch/pkg/registry"
)

// showConcurrency bounds how many shows crawl at once. Each non-static show
// costs a Chrome instance.
const showConcurrency = 2

// recordTimeout bounds the run-record insert after the crawl context is done.
const recordTimeout = 30 * time.Second

// Orchestrator runs the crawl pipeline for a set of shows.
type Orchestrator struct {
	cfg      *config.Config
	store    store.Store
	resolver crawler.IdentityResolver
	limiter  *rate.Limiter
	ai       anthropic.Client

	// newFetcher is swappable for tests.
	newFetcher func(src sources.Source) (crawler.Fetcher, error)
}

// New wires an Orchestrator from configuration. The store is owned by the
// caller.
func New(cfg *config.Config, st store.Store) (*Orchestrator, error) {
	overrides, err := resolve.LoadOverrides(cfg.Resolve.OverridesPath)
	if err != nil {
		return nil, err
	}

	// One limiter throttles every outbound registry and AI request across
	// all shows.
	limiter := rate.NewLimiter(rate.Limit(cfg.Resolve.RequestsPerSec), burst(cfg.Resolve.RequestBurst))

	client := registry.New(registry.Options{
		BaseURL: cfg.Registry.BaseURL,
		Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
	})
	resolver := resolve.NewResolver(overrides, client, limiter, resilience.RetryConfig{
		MaxAttempts: cfg.Registry.MaxRetries,
	})

	var ai anthropic.Client
	if cfg.Anthropic.Key != "" {
		ai = anthropic.NewClient(cfg.Anthropic.Key)
	}

	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		limiter:  limiter,
		ai:       ai,
	}
	o.newFetcher = o.defaultFetcher
	return o, nil
}

// Run crawls the named shows (all configured shows when empty) and records
// the run. Per-show failures land in the summary; only setup and bookkeeping
// failures are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, mode model.Mode, shows []string) (*model.RunSummary, error) {
	srcs, err := selectSources(shows)
	if err != nil {
		return nil, err
	}

	if mode == model.ModeFull {
		if deadline := o.cfg.Crawl.FullModeDeadline(); deadline > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}
	}

	summary := &model.RunSummary{
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Shows:     make([]model.ShowSummary, len(srcs)),
	}
	zap.L().Info("pipeline: run starting",
		zap.String("mode", string(mode)),
		zap.Int("shows", len(srcs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(showConcurrency)
	for i, src := range srcs {
		g.Go(func() error {
			summary.Shows[i] = o.crawlShow(gctx, src, mode)
			return nil
		})
	}
	_ = g.Wait()
	summary.FinishedAt = time.Now().UTC()

	for _, s := range summary.Shows {
		if s.Failed() {
			zap.L().Error("pipeline: show failed",
				zap.String("show", s.Show),
				zap.String("error", s.Error))
		}
	}

	rec := model.RunRecord{
		ID:         uuid.NewString(),
		Mode:       mode,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Summary:    *summary,
	}
	// The run context may already be expired here, full mode in particular
	// ends its runs by deadline. The record must still land.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := o.store.RecordRun(recordCtx, rec); err != nil {
		return summary, eris.Wrap(err, "pipeline: record run")
	}
	return summary, nil
}

func (o *Orchestrator) crawlShow(ctx context.Context, src sources.Source, mode model.Mode) model.ShowSummary {
	fetcher, err := o.newFetcher(src)
	if err != nil {
		return model.ShowSummary{
			Show:  src.Name,
			Error: eris.Wrapf(err, "pipeline: fetcher for %s", src.Name).Error(),
		}
	}

	engine := &crawler.Engine{
		Source:        src,
		Fetcher:       fetcher,
		Cascade:       o.buildCascade(src),
		Resolver:      o.resolver,
		Store:         o.store,
		PaginationCap: o.cfg.Crawl.PaginationCap,
		BatchSize:     o.cfg.Crawl.EpisodeBatchSize,
		WaitTimeout:   o.cfg.Browser.WaitTimeout(),
	}
	return engine.Run(ctx, mode)
}

// buildCascade assembles the extraction strategy chain for one show, most
// specific first. The AI fallback joins the chain only when a key is
// configured.
func (o *Orchestrator) buildCascade(src sources.Source) *extract.Cascade {
	strategies := make([]extract.Strategy, 0, 5)
	if src.GuestListSelector != "" {
		strategies = append(strategies, &extract.StructuredDOM{Selector: src.GuestListSelector})
	}
	strategies = append(strategies,
		&extract.EmphasisDOM{ContentRoot: src.ContentRootSelector},
		&extract.ImageAlt{},
		&extract.RegexText{},
	)
	if o.ai != nil {
		strategies = append(strategies, &extract.AIText{
			Client:  o.ai,
			Model:   o.cfg.Anthropic.Model,
			Limiter: o.limiter,
		})
	}
	return extract.NewCascade(strategies...)
}

func (o *Orchestrator) defaultFetcher(src sources.Source) (crawler.Fetcher, error) {
	if src.Static {
		return crawler.NewHTTPFetcher(o.cfg.Browser.NavTimeout()), nil
	}
	session, err := browser.NewSession(browser.Options{
		RemoteURL:   o.cfg.Browser.RemoteURL,
		Headless:    o.cfg.Browser.Headless,
		NavTimeout:  o.cfg.Browser.NavTimeout(),
		WaitTimeout: o.cfg.Browser.WaitTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return crawler.NewBrowserFetcher(session), nil
}

func selectSources(shows []string) ([]sources.Source, error) {
	if len(shows) == 0 {
		return sources.All(), nil
	}
	srcs := make([]sources.Source, 0, len(shows))
	for _, name := range shows {
		src, err := sources.ByName(name)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

func burst(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
