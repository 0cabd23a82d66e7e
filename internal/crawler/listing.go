package crawler

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/sources"
)

// ParseListing extracts episodes from a rendered archive page. Links whose
// URL yields no air date are skipped with a debug log; duplicates collapse to
// one episode. The result is sorted newest first.
func ParseListing(src sources.Source, pageURL, html string) ([]model.Episode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse listing for %s", src.Name)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: listing url for %s", src.Name)
	}

	seen := make(map[string]bool)
	var episodes []model.Episode
	doc.Find(src.EpisodeLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		date, ok := src.DateRule(abs)
		if !ok {
			zap.L().Debug("crawler: no air date in episode url",
				zap.String("show", src.Name),
				zap.String("url", abs))
			return
		}
		episodes = append(episodes, model.Episode{
			Show: src.Name,
			Date: model.Day(date),
			URL:  abs,
		})
	})

	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].Date.After(episodes[j].Date)
	})
	return episodes, nil
}

// FilterEpisodes keeps the episodes the run still has to process. Incremental
// runs keep only episodes strictly newer than the checkpoint; full runs and
// runs without a checkpoint keep everything. Order is preserved.
func FilterEpisodes(episodes []model.Episode, mode model.Mode, checkpoint time.Time, hasCheckpoint bool) []model.Episode {
	if mode == model.ModeFull || !hasCheckpoint {
		return episodes
	}
	out := episodes[:0:0]
	for _, ep := range episodes {
		if ep.Date.After(checkpoint) {
			out = append(out, ep)
		}
	}
	return out
}

// CoversCheckpoint reports whether the listing already reaches back to the
// checkpoint, meaning further pagination cannot surface unseen episodes.
func CoversCheckpoint(episodes []model.Episode, checkpoint time.Time, hasCheckpoint bool) bool {
	if !hasCheckpoint {
		return false
	}
	for _, ep := range episodes {
		if !ep.Date.After(checkpoint) {
			return true
		}
	}
	return false
}
