package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/polittalk/talkwatch/internal/extract"
	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/sources"
	"github.com/polittalk/talkwatch/internal/store"
)

// Extractor pulls guest candidates out of a rendered episode page.
type Extractor interface {
	Extract(ctx context.Context, doc *extract.Document) []model.GuestCandidate
}

// IdentityResolver maps a guest candidate to a registry identity, or nil when
// the name cannot be matched unambiguously.
type IdentityResolver interface {
	Resolve(ctx context.Context, name, roleHint string) (*model.Identity, error)
}

// Engine crawls one show: it walks the archive listing, fetches unseen
// episodes, extracts and resolves their guests, and persists the results.
// Failures on individual episodes degrade the run; storage failures abort it.
type Engine struct {
	Source   sources.Source
	Fetcher  Fetcher
	Cascade  Extractor
	Resolver IdentityResolver
	Store    store.Store

	// PaginationCap bounds how many listing pagination rounds run before the
	// archive walk gives up, regardless of checkpoint coverage.
	PaginationCap int

	// BatchSize bounds how many episode pages are fetched concurrently.
	BatchSize int

	// WaitTimeout bounds waiting for the listing's readiness selector.
	WaitTimeout time.Duration
}

type episodeResult struct {
	episode model.Episode
	doc     *extract.Document
	err     error
}

// Run crawls the show once and returns its summary. The engine owns the
// fetcher and closes it before returning.
func (e *Engine) Run(ctx context.Context, mode model.Mode) model.ShowSummary {
	summary := model.ShowSummary{Show: e.Source.Name}
	defer func() {
		if err := e.Fetcher.Close(); err != nil {
			zap.L().Warn("crawler: closing fetcher",
				zap.String("show", e.Source.Name), zap.Error(err))
		}
	}()

	checkpoint, hasCheckpoint, err := e.Store.LatestEpisodeDate(ctx, e.Source.Name)
	if err != nil {
		summary.Error = eris.Wrap(err, "crawler: read checkpoint").Error()
		return summary
	}

	episodes, err := e.loadListing(ctx, mode, checkpoint, hasCheckpoint)
	if err != nil {
		summary.Error = err.Error()
		return summary
	}
	summary.EpisodesDiscovered = len(episodes)

	fresh := FilterEpisodes(episodes, mode, checkpoint, hasCheckpoint)
	if len(fresh) == 0 {
		zap.L().Info("crawler: no new episodes",
			zap.String("show", e.Source.Name),
			zap.Int("listed", len(episodes)))
		return summary
	}
	zap.L().Info("crawler: processing episodes",
		zap.String("show", e.Source.Name),
		zap.Int("new", len(fresh)),
		zap.Int("listed", len(episodes)))

	for start := 0; start < len(fresh); start += e.batchSize() {
		end := start + e.batchSize()
		if end > len(fresh) {
			end = len(fresh)
		}
		for _, res := range e.fetchBatch(ctx, fresh[start:end]) {
			if err := e.processEpisode(ctx, res, &summary); err != nil {
				summary.Error = err.Error()
				return summary
			}
		}
		if ctx.Err() != nil {
			summary.Error = fmt.Sprintf("crawler: run aborted: %v", ctx.Err())
			return summary
		}
	}
	return summary
}

// loadListing renders the archive and paginates until the checkpoint is
// covered, pagination stops yielding new episodes, or the cap is hit.
func (e *Engine) loadListing(ctx context.Context, mode model.Mode, checkpoint time.Time, hasCheckpoint bool) ([]model.Episode, error) {
	page, err := e.Fetcher.Open(ctx, e.Source.ListingURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: open listing for %s", e.Source.Name)
	}
	defer page.Close()

	page.AcceptConsent(ctx, e.Source.ConsentSelectors...)
	if sel := e.Source.ListingWaitSelector; sel != "" {
		if err := page.WaitForSelector(ctx, sel, e.waitTimeout()); err != nil {
			zap.L().Warn("crawler: listing selector never appeared",
				zap.String("show", e.Source.Name),
				zap.String("selector", sel),
				zap.Error(err))
		}
	}

	var episodes []model.Episode
	for round := 0; ; round++ {
		html, err := page.HTML(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "crawler: read listing for %s", e.Source.Name)
		}
		parsed, err := ParseListing(e.Source, page.URL(), html)
		if err != nil {
			return nil, err
		}
		grew := len(parsed) > len(episodes)
		episodes = parsed

		if mode == model.ModeIncremental && CoversCheckpoint(episodes, checkpoint, hasCheckpoint) {
			break
		}
		if round > 0 && !grew {
			break
		}
		if round+1 >= e.paginationCap() {
			zap.L().Warn("crawler: pagination cap reached",
				zap.String("show", e.Source.Name),
				zap.Int("cap", e.paginationCap()))
			break
		}
		if e.Source.LoadMoreSelector != "" {
			if !page.TriggerMore(ctx, e.Source.LoadMoreSelector) {
				break
			}
		} else if !e.scrollForMore(ctx, page, len(episodes)) {
			break
		}
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "crawler: listing walk for %s", e.Source.Name)
		}
	}
	return episodes, nil
}

// scrollSettleInterval is the poll interval while waiting for a lazy-loading
// archive to append entries after a scroll.
const scrollSettleInterval = 250 * time.Millisecond

// scrollForMore scrolls the listing and polls the DOM until more episode
// links than seen appear. Lazily loaded archives append entries some time
// after the scroll fires, so an immediate re-read would still show the old
// listing. Returns false when the wait timeout passes without growth, which
// ends pagination.
func (e *Engine) scrollForMore(ctx context.Context, page Page, seen int) bool {
	page.ScrollToBottom(ctx)
	deadline := time.Now().Add(e.waitTimeout())
	for {
		html, err := page.HTML(ctx)
		if err != nil {
			return false
		}
		parsed, err := ParseListing(e.Source, page.URL(), html)
		if err != nil {
			return false
		}
		if len(parsed) > seen {
			return true
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(scrollSettleInterval)
	}
}

// fetchBatch renders a batch of episode pages concurrently. Fetch failures
// are carried in the results rather than aborting the batch.
func (e *Engine) fetchBatch(ctx context.Context, episodes []model.Episode) []episodeResult {
	results := make([]episodeResult, len(episodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchSize())
	for i, ep := range episodes {
		g.Go(func() error {
			doc, err := e.fetchEpisode(gctx, ep)
			results[i] = episodeResult{episode: ep, doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) fetchEpisode(ctx context.Context, ep model.Episode) (*extract.Document, error) {
	page, err := e.Fetcher.Open(ctx, ep.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: open episode %s", ep.URL)
	}
	defer page.Close()

	page.AcceptConsent(ctx, e.Source.ConsentSelectors...)
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: read episode %s", ep.URL)
	}
	return extract.NewDocument(ep.URL, html, e.Source.DescriptionSelector)
}

// processEpisode extracts, resolves, and persists one episode. A failed fetch
// or an unresolvable guest list degrades to a log line; only storage errors
// and cancellation are returned.
func (e *Engine) processEpisode(ctx context.Context, res episodeResult, summary *model.ShowSummary) error {
	if res.err != nil {
		zap.L().Warn("crawler: skipping episode",
			zap.String("show", e.Source.Name),
			zap.String("url", res.episode.URL),
			zap.Error(res.err))
		return nil
	}
	summary.EpisodesProcessed++

	candidates := e.Cascade.Extract(ctx, res.doc)
	resolvedAny := false
	for _, cand := range candidates {
		identity, err := e.Resolver.Resolve(ctx, cand.Name, cand.RoleHint)
		if err != nil {
			return eris.Wrapf(err, "crawler: resolve %q", cand.Name)
		}
		if identity == nil {
			continue
		}
		added, err := e.Store.InsertAppearance(ctx, model.Appearance{
			Show:         e.Source.Name,
			EpisodeDate:  res.episode.Date,
			PoliticianID: identity.PoliticianID,
			Name:         identity.Name,
			PartyID:      identity.PartyID,
			Party:        identity.Party,
		})
		if err != nil {
			return eris.Wrapf(err, "crawler: record appearance of %q", identity.Name)
		}
		resolvedAny = true
		if added {
			summary.PoliticiansAdded++
		}
	}

	if !resolvedAny {
		zap.L().Debug("crawler: episode yielded no politicians",
			zap.String("show", e.Source.Name),
			zap.String("url", res.episode.URL),
			zap.Int("candidates", len(candidates)))
		return nil
	}

	added, err := e.Store.InsertEpisodeLink(ctx, model.EpisodeLink{
		Show:        e.Source.Name,
		EpisodeDate: res.episode.Date,
		URL:         res.episode.URL,
	})
	if err != nil {
		return eris.Wrapf(err, "crawler: record episode link %s", res.episode.URL)
	}
	if added {
		summary.LinksAdded++
	}

	if topics := extract.Topics(res.doc.Description()); len(topics) > 0 {
		n, err := e.Store.InsertTopicTags(ctx, e.Source.Name, res.episode.Date, topics)
		if err != nil {
			return eris.Wrapf(err, "crawler: record topics for %s", res.episode.URL)
		}
		summary.TagsAdded += n
	}
	return nil
}

func (e *Engine) batchSize() int {
	if e.BatchSize <= 0 {
		return 4
	}
	return e.BatchSize
}

func (e *Engine) paginationCap() int {
	if e.PaginationCap <= 0 {
		return 40
	}
	return e.PaginationCap
}

func (e *Engine) waitTimeout() time.Duration {
	if e.WaitTimeout <= 0 {
		return 10 * time.Second
	}
	return e.WaitTimeout
}
