package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/polittalk/talkwatch/internal/model"
)

// StructuredDOM queries a source-configured guest-list region of the page.
// Highest-priority strategy: when a source exposes a real guest list this is
// the only one that runs.
type StructuredDOM struct {
	Selector string
}

func (s *StructuredDOM) Name() string { return "structured_dom" }

func (s *StructuredDOM) Extract(_ context.Context, doc *Document) ([]model.GuestCandidate, error) {
	if s.Selector == "" {
		return nil, nil
	}
	var out []model.GuestCandidate
	doc.Doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		out = append(out, SplitCandidate(text))
	})
	return out, nil
}

// EmphasisDOM collects bold and emphasized text within the main content area.
// Guest names on loosely structured pages are usually the only emphasized
// runs in the episode text.
type EmphasisDOM struct {
	ContentRoot string
}

func (s *EmphasisDOM) Name() string { return "emphasis_dom" }

func (s *EmphasisDOM) Extract(_ context.Context, doc *Document) ([]model.GuestCandidate, error) {
	root := s.ContentRoot
	if root == "" {
		root = "main, article, body"
	}
	var out []model.GuestCandidate
	doc.Doc.Find(root).First().Find("b, strong, em").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		out = append(out, SplitCandidate(text))
	})
	return out, nil
}

// guestListPattern matches "Gäste: A, B und C" style enumerations in alt
// texts and free text.
var guestListPattern = regexp.MustCompile(`(?i)(?:gäste|zu gast|mit)\s*:?\s+(.+)`)

// ImageAlt parses image alt texts; many sources caption the hero image with
// the guest list.
type ImageAlt struct{}

func (s *ImageAlt) Name() string { return "image_alt" }

func (s *ImageAlt) Extract(_ context.Context, doc *Document) ([]model.GuestCandidate, error) {
	var out []model.GuestCandidate
	for _, alt := range doc.ImageAlts() {
		m := guestListPattern.FindStringSubmatch(alt)
		if m == nil {
			continue
		}
		out = append(out, splitEnumeration(m[1])...)
	}
	return out, nil
}

// RegexText extracts guests from the episode's descriptive text. The default
// pattern finds "Gäste:"-style enumerations; sources can override it.
type RegexText struct {
	Pattern *regexp.Regexp
}

func (s *RegexText) Name() string { return "regex_text" }

func (s *RegexText) Extract(_ context.Context, doc *Document) ([]model.GuestCandidate, error) {
	pattern := s.Pattern
	if pattern == nil {
		pattern = guestListPattern
	}
	var out []model.GuestCandidate
	for _, line := range strings.Split(doc.Description(), "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, splitEnumeration(m[len(m)-1])...)
	}
	return out, nil
}

// splitEnumeration breaks "Anna Beispiel (SPD), Bernd Muster und Clara Drei"
// into individual candidates.
func splitEnumeration(s string) []model.GuestCandidate {
	s = strings.ReplaceAll(s, " und ", ", ")
	s = strings.ReplaceAll(s, " sowie ", ", ")
	s = strings.ReplaceAll(s, ";", ",")

	var out []model.GuestCandidate
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			// Commas inside parentheses belong to the role hint.
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, SplitCandidate(part))
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, SplitCandidate(part))
	}
	return out
}
