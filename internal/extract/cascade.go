package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/polittalk/talkwatch/internal/model"
)

// Strategy is one way of pulling guest candidates out of an episode page.
// Strategies return their raw findings; the cascade applies the person-name
// filter afterwards.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc *Document) ([]model.GuestCandidate, error)
}

// Cascade tries strategies in priority order. The first strategy that yields
// at least one candidate surviving the person-name filter wins; later
// strategies are never invoked for that episode.
type Cascade struct {
	strategies []Strategy
}

// NewCascade creates a Cascade over the given strategies, tried in order.
func NewCascade(strategies ...Strategy) *Cascade {
	return &Cascade{strategies: strategies}
}

// Extract runs the cascade for one episode page. A fully empty result is not
// an error: the episode simply has no extractable guests.
func (c *Cascade) Extract(ctx context.Context, doc *Document) []model.GuestCandidate {
	for _, s := range c.strategies {
		raw, err := s.Extract(ctx, doc)
		if err != nil {
			zap.L().Debug("extract: strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.String("url", doc.URL),
				zap.Error(err),
			)
			continue
		}

		candidates := FilterCandidates(raw)
		if len(candidates) > 0 {
			zap.L().Debug("extract: strategy matched",
				zap.String("strategy", s.Name()),
				zap.String("url", doc.URL),
				zap.Int("candidates", len(candidates)),
			)
			return candidates
		}
	}
	return nil
}
