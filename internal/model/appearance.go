// Package model defines the domain types shared across the crawl pipeline.
package model

import "time"

// Appearance records one politician's presence in one episode of a show.
// The tuple (Show, EpisodeDate, PoliticianID) is unique; the store enforces it.
type Appearance struct {
	Show         string    `json:"show"`
	EpisodeDate  time.Time `json:"episode_date"`
	PoliticianID string    `json:"politician_id"`
	Name         string    `json:"name"`
	PartyID      string    `json:"party_id,omitempty"`
	Party        string    `json:"party,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// EpisodeLink maps (show, episode date) to the canonical source URL of that
// episode. Only written for episodes that yielded at least one resolved
// politician.
type EpisodeLink struct {
	Show        string    `json:"show"`
	EpisodeDate time.Time `json:"episode_date"`
	URL         string    `json:"url"`
}

// Day truncates t to a calendar date at UTC midnight. All episode dates are
// stored and compared this way.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
