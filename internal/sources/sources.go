// Package sources describes the per-show adapters the generic crawler engine
// is parameterized with: where the archive lives, how to paginate it, and
// which selectors locate episodes and guests.
package sources

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Source configures one show for the crawler engine. The engine supplies all
// control flow; a source only names URLs, selectors, and the date rule.
type Source struct {
	// Name is the stable show identifier used in persisted rows.
	Name string

	// ListingURL is the show's episode archive.
	ListingURL string

	// Static marks archives that are plain HTML; the engine then uses the
	// HTTP fetcher instead of the headless browser.
	Static bool

	// ConsentSelectors are tried in order to dismiss cookie/consent dialogs.
	ConsentSelectors []string

	// LoadMoreSelector is the pagination control on the listing. Empty means
	// the listing paginates by scrolling.
	LoadMoreSelector string

	// ListingWaitSelector, when set, must appear before the listing is read.
	ListingWaitSelector string

	// EpisodeLinkSelector matches episode anchors on the listing page.
	EpisodeLinkSelector string

	// DateRule parses the episode air date from an episode URL.
	DateRule DateRule

	// GuestListSelector locates the structured guest list on a detail page,
	// when the source has one.
	GuestListSelector string

	// ContentRootSelector bounds the loose emphasized-text strategy.
	ContentRootSelector string

	// DescriptionSelector locates the episode's descriptive text.
	DescriptionSelector string
}

// Validate checks that a source carries the minimum the engine needs.
func (s Source) Validate() error {
	if s.Name == "" {
		return eris.New("sources: missing name")
	}
	if s.ListingURL == "" {
		return eris.Errorf("sources: %s: missing listing url", s.Name)
	}
	if s.EpisodeLinkSelector == "" {
		return eris.Errorf("sources: %s: missing episode link selector", s.Name)
	}
	if s.DateRule == nil {
		return eris.Errorf("sources: %s: missing date rule", s.Name)
	}
	return nil
}

// DateRule extracts an episode's air date from its URL.
type DateRule func(url string) (time.Time, bool)

// All returns every configured source, sorted by name.
func All() []Source {
	out := make([]Source, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByName returns the named source.
func ByName(name string) (Source, error) {
	for _, s := range registry {
		if s.Name == name {
			return s, nil
		}
	}
	return Source{}, eris.Errorf("sources: unknown show %q", name)
}

// Names returns the names of all configured sources.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}
