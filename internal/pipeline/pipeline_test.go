package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polittalk/talkwatch/internal/config"
	"github.com/polittalk/talkwatch/internal/crawler"
	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/sources"
)

func testConfig() *config.Config {
	return &config.Config{
		Crawl: config.CrawlConfig{
			PaginationCap:    5,
			EpisodeBatchSize: 2,
			FullModeMaxMins:  1,
		},
		Resolve: config.ResolveConfig{
			RequestsPerSec: 1000,
			RequestBurst:   10,
		},
		Registry: config.RegistryConfig{MaxRetries: 1},
	}
}

type fakePage struct {
	url  string
	html string
}

func (p *fakePage) URL() string                              { return p.url }
func (p *fakePage) AcceptConsent(context.Context, ...string) {}
func (p *fakePage) TriggerMore(context.Context, string) bool { return false }
func (p *fakePage) ScrollToBottom(context.Context)           {}
func (p *fakePage) HTML(context.Context) (string, error)     { return p.html, nil }
func (p *fakePage) Close() error                             { return nil }
func (p *fakePage) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Open(_ context.Context, url string) (crawler.Page, error) {
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("no such page")
	}
	return &fakePage{url: url, html: html}, nil
}

func (f *fakeFetcher) Close() error { return nil }

type fakeResolver struct {
	identities map[string]*model.Identity
}

func (r *fakeResolver) Resolve(_ context.Context, name, _ string) (*model.Identity, error) {
	return r.identities[name], nil
}

type fakeStore struct {
	mu           sync.Mutex
	appearances  map[string]model.Appearance
	links        map[string]model.EpisodeLink
	runs         []model.RunRecord
	recordCtxErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appearances: make(map[string]model.Appearance),
		links:       make(map[string]model.EpisodeLink),
	}
}

func (s *fakeStore) InsertAppearance(_ context.Context, a model.Appearance) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%s", a.Show, a.EpisodeDate.Format("2006-01-02"), a.PoliticianID)
	if _, ok := s.appearances[key]; ok {
		return false, nil
	}
	s.appearances[key] = a
	return true, nil
}

func (s *fakeStore) InsertEpisodeLink(_ context.Context, l model.EpisodeLink) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s|%s", l.Show, l.EpisodeDate.Format("2006-01-02"))
	if _, ok := s.links[key]; ok {
		return false, nil
	}
	s.links[key] = l
	return true, nil
}

func (s *fakeStore) InsertTopicTags(context.Context, string, time.Time, []model.Topic) (int, error) {
	return 0, nil
}

func (s *fakeStore) LatestEpisodeDate(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (s *fakeStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordCtxErr = ctx.Err()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.runs = append(s.runs, rec)
	return nil
}

func (s *fakeStore) ListRuns(context.Context, int) ([]model.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

func TestRunCrawlsShowAndRecordsRun(t *testing.T) {
	src, err := sources.ByName("maischberger")
	require.NoError(t, err)

	episodeURL := "https://www.daserste.de/information/talk/maischberger/sendung/folge-vom-14-januar-2025-100.html"
	listingHTML := fmt.Sprintf(`<html><body>
<div class="teaser"><a class="teaser__link" href="%s">Folge</a></div>
</body></html>`, episodeURL)
	episodeHTML := `<html><body><div class="sendungsseite">
<ul class="gaesteliste"><li>Jane Example (Politikerin)</li></ul>
<div class="text"><p>Die Runde diskutiert den Bundeshaushalt und die Schuldenbremse.</p></div>
</div></body></html>`

	st := newFakeStore()
	o, err := New(testConfig(), st)
	require.NoError(t, err)
	o.resolver = &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example", Party: "Beispielpartei"},
	}}
	o.newFetcher = func(sources.Source) (crawler.Fetcher, error) {
		return &fakeFetcher{pages: map[string]string{
			src.ListingURL: listingHTML,
			episodeURL:     episodeHTML,
		}}, nil
	}

	summary, err := o.Run(context.Background(), model.ModeIncremental, []string{"maischberger"})
	require.NoError(t, err)
	require.Len(t, summary.Shows, 1)

	show := summary.Shows[0]
	require.False(t, show.Failed(), show.Error)
	assert.Equal(t, "maischberger", show.Show)
	assert.Equal(t, 1, show.EpisodesProcessed)
	assert.Equal(t, 1, show.PoliticiansAdded)
	assert.Equal(t, 1, show.LinksAdded)

	require.Len(t, st.runs, 1)
	rec := st.runs[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.ModeIncremental, rec.Mode)
	assert.Len(t, rec.Summary.Shows, 1)
}

func TestRunUnknownShow(t *testing.T) {
	st := newFakeStore()
	o, err := New(testConfig(), st)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), model.ModeIncremental, []string{"panorama"})
	require.Error(t, err)
	assert.Empty(t, st.runs, "nothing recorded for a bad show list")
}

func TestRunFetcherFailureIsPerShow(t *testing.T) {
	st := newFakeStore()
	o, err := New(testConfig(), st)
	require.NoError(t, err)
	o.newFetcher = func(sources.Source) (crawler.Fetcher, error) {
		return nil, errors.New("chrome not found")
	}

	summary, err := o.Run(context.Background(), model.ModeIncremental, []string{"maischberger", "markus-lanz"})
	require.NoError(t, err, "per-show failures do not fail the run")
	require.Len(t, summary.Shows, 2)
	for _, show := range summary.Shows {
		assert.True(t, show.Failed())
		assert.Contains(t, show.Error, "chrome not found")
	}
	require.Len(t, st.runs, 1, "failed runs are still recorded")
}

type blockingFetcher struct{}

func (f *blockingFetcher) Open(ctx context.Context, _ string) (crawler.Page, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *blockingFetcher) Close() error { return nil }

func TestRunRecordedAfterContextExpires(t *testing.T) {
	st := newFakeStore()
	o, err := New(testConfig(), st)
	require.NoError(t, err)
	o.newFetcher = func(sources.Source) (crawler.Fetcher, error) {
		return &blockingFetcher{}, nil
	}

	// The crawl burns through the whole run budget; the record must still
	// land instead of inheriting the dead context.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, err := o.Run(ctx, model.ModeFull, []string{"maischberger"})
	require.NoError(t, err, "a timed-out crawl is partial success, not a run failure")
	require.Len(t, summary.Shows, 1)
	assert.True(t, summary.Shows[0].Failed())

	require.Len(t, st.runs, 1)
	assert.NoError(t, st.recordCtxErr, "run record must not be written under the expired crawl context")
	assert.Len(t, st.runs[0].Summary.Shows, 1)
}

func TestSelectSources(t *testing.T) {
	all, err := selectSources(nil)
	require.NoError(t, err)
	assert.Equal(t, len(sources.All()), len(all))

	one, err := selectSources([]string{"markus-lanz"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "markus-lanz", one[0].Name)

	_, err = selectSources([]string{"nope"})
	assert.Error(t, err)
}
