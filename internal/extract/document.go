// Package extract pulls guest-name candidates out of rendered episode pages
// via an ordered cascade of strategies.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Document is a rendered episode page ready for extraction: the parsed DOM
// plus the descriptive text used by the regex and AI strategies.
type Document struct {
	URL string
	Doc *goquery.Document

	descriptionSelector string
}

// NewDocument parses rendered HTML into a Document.
func NewDocument(url, html, descriptionSelector string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s", url)
	}
	return &Document{
		URL:                 url,
		Doc:                 doc,
		descriptionSelector: descriptionSelector,
	}, nil
}

// Description returns the episode's descriptive text. When the source
// configured a selector it is used; otherwise the first substantial
// paragraphs of the page serve as fallback.
func (d *Document) Description() string {
	if d.descriptionSelector != "" {
		var parts []string
		d.Doc.Find(d.descriptionSelector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	var parts []string
	d.Doc.Find("article p, main p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) >= 60 {
			parts = append(parts, text)
		}
		return len(parts) < 5
	})
	return strings.Join(parts, "\n")
}

// ImageAlts returns all non-empty image alt texts on the page.
func (d *Document) ImageAlts() []string {
	var alts []string
	d.Doc.Find("img[alt]").Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok {
			if alt = strings.TrimSpace(alt); alt != "" {
				alts = append(alts, alt)
			}
		}
	})
	return alts
}
