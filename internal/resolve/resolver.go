package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/polittalk/talkwatch/internal/model"
	"github.com/polittalk/talkwatch/internal/resilience"
	"github.com/polittalk/talkwatch/pkg/registry"
)

// Resolver turns guest names into identities. Overrides always win; registry
// lookups require exactly one candidate — ambiguous matches are never
// guessed.
type Resolver struct {
	overrides *Overrides
	client    registry.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewResolver creates a Resolver. The limiter is shared with every other
// component making registry or AI calls so that concurrent show crawlers
// respect one global throttle.
func NewResolver(overrides *Overrides, client registry.Client, limiter *rate.Limiter, retry resilience.RetryConfig) *Resolver {
	if overrides == nil {
		overrides = NewOverrides(nil)
	}
	return &Resolver{
		overrides: overrides,
		client:    client,
		limiter:   limiter,
		retry:     retry,
	}
}

// Resolve maps a guest name to an identity, or nil when the guest cannot be
// attributed to exactly one politician. Registry failures degrade to an
// unresolved guest; only context cancellation is propagated.
func (r *Resolver) Resolve(ctx context.Context, name, roleHint string) (*model.Identity, error) {
	if id, ok := r.overrides.Lookup(name); ok {
		return &id, nil
	}

	firstName, lastName, ok := splitName(name)
	if !ok {
		return nil, nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	retry := r.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("registry", "find_politicians")
	}

	candidates, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]registry.Politician, error) {
		return r.client.FindPoliticians(ctx, firstName, lastName)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Warn("resolve: registry lookup failed, guest stays unresolved",
			zap.String("name", name),
			zap.String("role_hint", roleHint),
			zap.Error(err),
		)
		return nil, nil
	}

	if len(candidates) != 1 {
		if len(candidates) > 1 {
			zap.L().Debug("resolve: ambiguous registry match",
				zap.String("name", name),
				zap.Int("candidates", len(candidates)),
			)
		}
		return nil, nil
	}

	p := candidates[0]
	id := model.Identity{
		PoliticianID: p.PoliticianID(),
		Name:         p.Label,
		Source:       model.SourceRegistry,
	}
	if p.Party != nil {
		id.PartyID = p.Party.PartyID()
		id.Party = p.Party.Label
	}
	return &id, nil
}

// splitName divides a guest name into the first-name and last-name query
// tokens. Linking particles stay with the last name ("Ursula von der Leyen"
// queries last_name "von der Leyen").
func splitName(name string) (first, last string, ok bool) {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}
