// Package registry provides a client for the abgeordnetenwatch.de politician
// directory API.
package registry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"

	"github.com/polittalk/talkwatch/internal/resilience"
)

// Client defines the politician-directory operations used by the resolver.
type Client interface {
	// FindPoliticians looks up politicians by exact first and last name.
	// Returns all matching candidates; the caller decides what to do with
	// zero or multiple matches.
	FindPoliticians(ctx context.Context, firstName, lastName string) ([]Politician, error)
}

// Politician is one candidate returned by the directory.
type Politician struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Party     *Party `json:"party"`
}

// Party is the party reference attached to a politician.
type Party struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// PoliticianID returns the politician's id as the string form used in
// appearance rows.
func (p Politician) PoliticianID() string {
	return strconv.Itoa(p.ID)
}

// PartyID returns the party's id in string form.
func (p Party) PartyID() string {
	return strconv.Itoa(p.ID)
}

type listResponse struct {
	Meta struct {
		Result struct {
			Count int `json:"count"`
			Total int `json:"total"`
		} `json:"result"`
	} `json:"meta"`
	Data []Politician `json:"data"`
}

// Options configures the HTTP client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HTTPClient implements Client against the abgeordnetenwatch v2 API.
type HTTPClient struct {
	http *resty.Client
}

// New creates an HTTPClient with the given options.
func New(opts Options) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.abgeordnetenwatch.de/api/v2"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "talkwatch/1.0"
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")

	return &HTTPClient{http: client}
}

// FindPoliticians queries /politicians filtered by exact first and last name.
func (c *HTTPClient) FindPoliticians(ctx context.Context, firstName, lastName string) ([]Politician, error) {
	var out listResponse

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("first_name[eq]", firstName).
		SetQueryParam("last_name[eq]", lastName).
		SetResult(&out).
		Get("/politicians")
	if err != nil {
		return nil, eris.Wrapf(err, "registry: lookup %s %s", firstName, lastName)
	}

	if res.IsError() {
		err := eris.Errorf("registry: lookup %s %s: status %d", firstName, lastName, res.StatusCode())
		if resilience.IsTransientHTTPStatus(res.StatusCode()) {
			return nil, resilience.NewTransientError(err, res.StatusCode())
		}
		return nil, err
	}

	return out.Data, nil
}

var _ Client = (*HTTPClient)(nil)

// String renders a politician for log output.
func (p Politician) String() string {
	if p.Party != nil {
		return fmt.Sprintf("%s (%s)", p.Label, p.Party.Label)
	}
	return p.Label
}
