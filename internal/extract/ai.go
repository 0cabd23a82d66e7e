package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/resilience"
	"github.com/polittalk/talkwatch/pkg/anthropic"
)

const aiExtractPrompt = `The following text describes one episode of a German television talk show.

List the full names of all invited guests mentioned in the text.

Respond with ONLY a JSON array of name strings, nothing else. Example:
["Anna Beispiel", "Bernd Muster"]

If no guests are mentioned, respond with [].

Text:
%s`

// AIText is the last-resort strategy: it asks a language model for a JSON
// array of person names from the episode's descriptive text. Any response
// that does not parse as a JSON array counts as an empty extraction, never
// as an error that would abort the episode.
type AIText struct {
	Client  anthropic.Client
	Model   string
	Limiter *rate.Limiter
	Retry   resilience.RetryConfig
}

func (s *AIText) Name() string { return "ai_text" }

func (s *AIText) Extract(ctx context.Context, doc *Document) ([]model.GuestCandidate, error) {
	if s.Client == nil {
		return nil, nil
	}

	text := doc.Description()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	text = truncateRunes(text, maxDescriptionBytes)

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := resilience.DoVal(ctx, s.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.Client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.Model,
			MaxTokens: 512,
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(aiExtractPrompt, text)},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Text())), &names); err != nil {
		// Model ignored the format instruction; treat as no guests found.
		return nil, nil
	}

	out := make([]model.GuestCandidate, 0, len(names))
	for _, n := range names {
		out = append(out, model.GuestCandidate{Name: strings.TrimSpace(n)})
	}
	return out, nil
}

// maxDescriptionBytes caps the episode text sent to the model.
const maxDescriptionBytes = 6000

// truncateRunes cuts s to at most max bytes without splitting a UTF-8 rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extractJSONArray trims prose and code fences around the first top-level
// JSON array in a model response.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
