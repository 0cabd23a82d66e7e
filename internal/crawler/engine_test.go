package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polittalk/talkwatch/internal/extract"
	"github.com/polittalk/talkwatch/internal/model"
)

type fakePage struct {
	url    string
	htmls  []string
	idx    int
	closed bool

	// Scroll support: a scroll arms the next listing state, but it only
	// becomes visible on the second HTML read afterwards, mimicking an
	// archive that appends entries a moment after the scroll.
	scrolled         bool
	readsSinceScroll int
}

func (p *fakePage) URL() string                              { return p.url }
func (p *fakePage) AcceptConsent(context.Context, ...string) {}
func (p *fakePage) Close() error                             { p.closed = true; return nil }

func (p *fakePage) ScrollToBottom(context.Context) {
	if p.idx+1 < len(p.htmls) {
		p.scrolled = true
		p.readsSinceScroll = 0
	}
}

func (p *fakePage) TriggerMore(context.Context, string) bool {
	if p.idx+1 >= len(p.htmls) {
		return false
	}
	p.idx++
	return true
}

func (p *fakePage) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	if p.scrolled {
		p.readsSinceScroll++
		if p.readsSinceScroll >= 2 {
			p.idx++
			p.scrolled = false
		}
	}
	return p.htmls[p.idx], nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]*fakePage
	opened []string
	closed bool
}

func (f *fakeFetcher) Open(_ context.Context, url string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("no such page")
	}
	return p, nil
}

func (f *fakeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeResolver struct {
	identities map[string]*model.Identity
	calls      []string
}

func (r *fakeResolver) Resolve(_ context.Context, name, _ string) (*model.Identity, error) {
	r.calls = append(r.calls, name)
	return r.identities[name], nil
}

// memStore is an in-memory Store for engine tests.
type memStore struct {
	appearances map[string]model.Appearance
	links       map[string]model.EpisodeLink
	tags        map[string]bool
	runs        []model.RunRecord

	failAppearance error
}

func newMemStore() *memStore {
	return &memStore{
		appearances: make(map[string]model.Appearance),
		links:       make(map[string]model.EpisodeLink),
		tags:        make(map[string]bool),
	}
}

func (s *memStore) InsertAppearance(_ context.Context, a model.Appearance) (bool, error) {
	if s.failAppearance != nil {
		return false, s.failAppearance
	}
	key := fmt.Sprintf("%s|%s|%s", a.Show, a.EpisodeDate.Format("2006-01-02"), a.PoliticianID)
	if _, ok := s.appearances[key]; ok {
		return false, nil
	}
	s.appearances[key] = a
	return true, nil
}

func (s *memStore) InsertEpisodeLink(_ context.Context, l model.EpisodeLink) (bool, error) {
	key := fmt.Sprintf("%s|%s", l.Show, l.EpisodeDate.Format("2006-01-02"))
	if _, ok := s.links[key]; ok {
		return false, nil
	}
	s.links[key] = l
	return true, nil
}

func (s *memStore) InsertTopicTags(_ context.Context, show string, date time.Time, topics []model.Topic) (int, error) {
	added := 0
	for _, topic := range topics {
		key := fmt.Sprintf("%s|%s|%s", show, date.Format("2006-01-02"), topic)
		if !s.tags[key] {
			s.tags[key] = true
			added++
		}
	}
	return added, nil
}

func (s *memStore) LatestEpisodeDate(_ context.Context, show string) (time.Time, bool, error) {
	var latest time.Time
	found := false
	for _, a := range s.appearances {
		if a.Show == show && a.EpisodeDate.After(latest) {
			latest = a.EpisodeDate
			found = true
		}
	}
	return latest, found, nil
}

func (s *memStore) RecordRun(_ context.Context, rec model.RunRecord) error {
	s.runs = append(s.runs, rec)
	return nil
}

func (s *memStore) ListRuns(context.Context, int) ([]model.RunRecord, error) {
	return s.runs, nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

func episodePage(url, guestList string) *fakePage {
	html := fmt.Sprintf(`<html><body><main>
<ul class="gaeste">%s</ul>
<div class="text"><p>Eine Diskussion über die Wirtschaft, Inflation und die Konjunktur in Deutschland.</p></div>
</main></body></html>`, guestList)
	return &fakePage{url: url, htmls: []string{html}}
}

func testEngine(fetcher *fakeFetcher, st *memStore, res *fakeResolver) *Engine {
	src := testSource()
	src.DescriptionSelector = ".text p"
	return &Engine{
		Source:      src,
		Fetcher:     fetcher,
		Cascade:     extract.NewCascade(&extract.StructuredDOM{Selector: ".gaeste li"}),
		Resolver:    res,
		Store:       st,
		WaitTimeout: 50 * time.Millisecond,
	}
}

func TestRunFirstCrawl(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-01-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-01-100.html",
			`<li>Jane Example (Politikerin)</li><li>Karl Kommentar (Journalist)</li>`),
		"https://example.com/folgen/talk-2025-02-08-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-08-100.html", ``),
	}}
	st := newMemStore()
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {
			PoliticianID: "4711",
			Name:         "Jane Example",
			PartyID:      "9",
			Party:        "Beispielpartei",
			Source:       model.SourceRegistry,
		},
	}}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 2, summary.EpisodesDiscovered)
	assert.Equal(t, 2, summary.EpisodesProcessed)
	assert.Equal(t, 1, summary.PoliticiansAdded)
	assert.Equal(t, 1, summary.LinksAdded)

	require.Len(t, st.appearances, 1)
	a := st.appearances["testshow|2025-02-01|4711"]
	assert.Equal(t, "Jane Example", a.Name)
	assert.Equal(t, "Beispielpartei", a.Party)

	// Only the episode with a resolved politician gets a link.
	require.Len(t, st.links, 1)
	assert.Contains(t, st.links, "testshow|2025-02-01")

	latest, ok, err := st.LatestEpisodeDate(context.Background(), "testshow")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2025-02-01"), latest)

	assert.True(t, fetcher.closed)
}

func TestRunIncrementalSkipsRecorded(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-08-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-08-100.html",
			`<li>Jane Example</li>`),
	}}
	st := newMemStore()
	_, err := st.InsertAppearance(context.Background(), model.Appearance{
		Show: "testshow", EpisodeDate: day("2025-02-01"), PoliticianID: "4711",
	})
	require.NoError(t, err)
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 1, summary.EpisodesProcessed)
	assert.NotContains(t, fetcher.opened, "https://example.com/folgen/talk-2025-02-01-100.html")
}

func TestRunNoNewEpisodes(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{listing.url: listing}}
	st := newMemStore()
	_, err := st.InsertAppearance(context.Background(), model.Appearance{
		Show: "testshow", EpisodeDate: day("2025-02-01"), PoliticianID: "4711",
	})
	require.NoError(t, err)
	res := &fakeResolver{}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 0, summary.EpisodesProcessed)
	assert.Empty(t, res.calls)
	assert.Equal(t, []string{listing.url}, fetcher.opened, "listing only, no episode fetches")
	assert.True(t, fetcher.closed)
}

func TestRunPaginatesUntilCheckpointCovered(t *testing.T) {
	pageOne := `<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
</body></html>`
	pageTwo := `<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-01-15-100.html">Folge</a></div>
</body></html>`
	listing := &fakePage{
		url:   "https://example.com/archiv/index.html",
		htmls: []string{pageOne, pageTwo},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-08-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-08-100.html", `<li>Jane Example</li>`),
	}}
	st := newMemStore()
	_, err := st.InsertAppearance(context.Background(), model.Appearance{
		Show: "testshow", EpisodeDate: day("2025-01-15"), PoliticianID: "1",
	})
	require.NoError(t, err)
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	eng := testEngine(fetcher, st, res)
	eng.Source.LoadMoreSelector = ".mehr button"

	summary := eng.Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 1, listing.idx, "paginated once to reach the checkpoint")
	assert.Equal(t, 2, summary.EpisodesDiscovered)
	assert.Equal(t, 1, summary.EpisodesProcessed)
}

func TestRunScrollPaginationWaitsForLazyContent(t *testing.T) {
	pageOne := `<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
</body></html>`
	pageTwo := `<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`
	listing := &fakePage{
		url:   "https://example.com/archiv/index.html",
		htmls: []string{pageOne, pageTwo},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-08-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-08-100.html", `<li>Jane Example</li>`),
		"https://example.com/folgen/talk-2025-02-01-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-01-100.html", `<li>Jane Example</li>`),
	}}
	st := newMemStore()
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	// No LoadMoreSelector on the source, so the engine paginates by
	// scrolling; entries appear only after the listing has settled.
	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 2, summary.EpisodesDiscovered, "scrolling must surface the lazily appended episode")
	assert.Equal(t, 2, summary.EpisodesProcessed)
	assert.Equal(t, 1, listing.idx)
}

func TestRunEpisodeFetchFailureDegrades(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		// 2025-02-08 is deliberately absent: its fetch fails.
		"https://example.com/folgen/talk-2025-02-01-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-01-100.html", `<li>Jane Example</li>`),
	}}
	st := newMemStore()
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.False(t, summary.Failed(), "one bad episode must not abort the run")
	assert.Equal(t, 1, summary.EpisodesProcessed)
	assert.Equal(t, 1, summary.PoliticiansAdded)
}

func TestRunStorageErrorAborts(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-01-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-01-100.html", `<li>Jane Example</li>`),
	}}
	st := newMemStore()
	st.failAppearance = errors.New("connection refused")
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeIncremental)

	require.True(t, summary.Failed())
	assert.Contains(t, summary.Error, "connection refused")
	assert.True(t, fetcher.closed)
}

func TestRunFullModeIgnoresCheckpoint(t *testing.T) {
	listing := &fakePage{
		url: "https://example.com/archiv/index.html",
		htmls: []string{`<html><body>
<div class="teaser"><a href="/folgen/talk-2025-02-08-100.html">Folge</a></div>
<div class="teaser"><a href="/folgen/talk-2025-02-01-100.html">Folge</a></div>
</body></html>`},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		listing.url: listing,
		"https://example.com/folgen/talk-2025-02-01-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-01-100.html", `<li>Jane Example</li>`),
		"https://example.com/folgen/talk-2025-02-08-100.html": episodePage(
			"https://example.com/folgen/talk-2025-02-08-100.html", `<li>Jane Example</li>`),
	}}
	st := newMemStore()
	_, err := st.InsertAppearance(context.Background(), model.Appearance{
		Show: "testshow", EpisodeDate: day("2025-02-08"), PoliticianID: "4711", Name: "Jane Example",
	})
	require.NoError(t, err)
	res := &fakeResolver{identities: map[string]*model.Identity{
		"Jane Example": {PoliticianID: "4711", Name: "Jane Example"},
	}}

	summary := testEngine(fetcher, st, res).Run(context.Background(), model.ModeFull)

	require.False(t, summary.Failed(), summary.Error)
	assert.Equal(t, 2, summary.EpisodesProcessed)
	// Re-processing the recorded episode adds nothing.
	assert.Equal(t, 1, summary.PoliticiansAdded)
	assert.Len(t, st.appearances, 2)
}
