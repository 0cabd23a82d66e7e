package model

import "time"

// Episode is an entry discovered on a show's archive listing: the detail-page
// URL plus the parsed air date. Owned by the show crawler for the duration of
// one run.
type Episode struct {
	Show string    `json:"show"`
	Date time.Time `json:"date"`
	URL  string    `json:"url"`
}

// Mode selects how a crawl bounds its traversal.
type Mode string

const (
	// ModeIncremental processes only episodes newer than the checkpoint.
	ModeIncremental Mode = "incremental"
	// ModeFull ignores the checkpoint, bounded by the pagination cap and the
	// orchestrator's wall-clock limit.
	ModeFull Mode = "full"
)

// ParseMode validates a mode string, defaulting empty to incremental.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeIncremental:
		return ModeIncremental, true
	case ModeFull:
		return ModeFull, true
	default:
		return "", false
	}
}
