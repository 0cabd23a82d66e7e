package sources

import (
	"regexp"
	"strconv"
	"time"
)

var (
	// e.g. .../sendung-vom-14-januar-2025-100.html
	germanDatePattern = regexp.MustCompile(`(?i)vom-(\d{1,2})-([a-zä]+)-(\d{4})`)
	// e.g. .../markus-lanz-vom-14-januar-2025-100.html uses the pattern
	// above; numeric slugs look like .../talk-2025-01-14-102.html
	numericDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	// e.g. .../folge-1234.html
	episodeNumberPattern = regexp.MustCompile(`(?i)(?:folge|sendung|episode)-(\d{2,5})`)
)

var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"maerz":     time.March,
	"märz":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

// DateFromSlug reads the air date out of an episode URL, handling both
// numeric (2025-01-14) and spelled-out German (14-januar-2025) slugs.
func DateFromSlug(url string) (time.Time, bool) {
	if m := numericDatePattern.FindStringSubmatch(url); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
	}
	if m := germanDatePattern.FindStringSubmatch(url); m != nil {
		month, ok := germanMonths[toLowerASCII(m[2])]
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// EpisodeNumberRule approximates air dates for archives whose URLs carry only
// a running episode number. The date is extrapolated from a known anchor
// episode and the show's broadcast interval, so it can drift around breaks in
// the schedule; it is only suitable for ordering and checkpointing.
func EpisodeNumberRule(anchorEpisode int, anchorDate time.Time, interval time.Duration) DateRule {
	return func(url string) (time.Time, bool) {
		m := episodeNumberPattern.FindStringSubmatch(url)
		if m == nil {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		d := anchorDate.Add(time.Duration(n-anchorEpisode) * interval)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	}
}

func toLowerASCII(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
