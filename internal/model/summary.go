package model

import "time"

// ShowSummary is one show crawler's result for a single run.
type ShowSummary struct {
	Show               string `json:"show"`
	EpisodesDiscovered int    `json:"episodes_discovered"`
	EpisodesProcessed  int    `json:"episodes_processed"`
	PoliticiansAdded   int    `json:"politicians_added"`
	LinksAdded         int    `json:"links_added"`
	TagsAdded          int    `json:"tags_added"`
	Error              string `json:"error,omitempty"`
}

// Failed reports whether the show's crawl aborted with a fatal error.
func (s ShowSummary) Failed() bool {
	return s.Error != ""
}

// RunSummary aggregates all show summaries of one pipeline run.
type RunSummary struct {
	Mode       Mode          `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Shows      []ShowSummary `json:"shows"`
}

// Totals sums the per-show counters, skipping nothing: failed shows contribute
// whatever they inserted before aborting.
func (r RunSummary) Totals() ShowSummary {
	var t ShowSummary
	for _, s := range r.Shows {
		t.EpisodesDiscovered += s.EpisodesDiscovered
		t.EpisodesProcessed += s.EpisodesProcessed
		t.PoliticiansAdded += s.PoliticiansAdded
		t.LinksAdded += s.LinksAdded
		t.TagsAdded += s.TagsAdded
	}
	return t
}

// RunRecord is the persisted form of a RunSummary, kept for operational
// history behind the status command.
type RunRecord struct {
	ID         string     `json:"id"`
	Mode       Mode       `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Summary    RunSummary `json:"summary"`
}
