package extract

import (
	"strings"
	"unicode"

	"github.com/polittalk/talkwatch/internal/model"
)

// linking particles allowed in lowercase inside a person name.
var nameParticles = map[string]bool{
	"von": true,
	"van": true,
	"de":  true,
	"der": true,
	"den": true,
	"zu":  true,
	"zur": true,
	"ten": true,
}

// LooksLikePersonName reports whether a raw string plausibly names a person:
// at least two capitalized words, with lowercase linking particles allowed
// in between.
func LooksLikePersonName(s string) bool {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 || len(fields) > 6 {
		return false
	}

	capitalized := 0
	for _, f := range fields {
		f = strings.Trim(f, ".,;")
		if f == "" {
			return false
		}
		runes := []rune(f)
		switch {
		case unicode.IsUpper(runes[0]):
			// Reject SHOUTING tokens and things with digits.
			for _, r := range runes {
				if unicode.IsDigit(r) {
					return false
				}
			}
			if len(runes) > 1 && strings.ToUpper(f) == f && len(f) > 3 {
				return false
			}
			capitalized++
		case nameParticles[strings.ToLower(f)]:
			// fine in between
		default:
			return false
		}
	}

	// The first and last tokens must both be capitalized words.
	first := []rune(strings.Trim(fields[0], ".,;"))
	last := []rune(strings.Trim(fields[len(fields)-1], ".,;"))
	return capitalized >= 2 && unicode.IsUpper(first[0]) && unicode.IsUpper(last[0])
}

// SplitCandidate separates a raw guest string into name and role hint. Role
// hints arrive after a comma ("Lars Klingbeil, SPD-Vorsitzender") or in
// parentheses ("Manfred Weber (CSU)").
func SplitCandidate(raw string) model.GuestCandidate {
	raw = strings.TrimSpace(raw)

	if open := strings.Index(raw, "("); open > 0 {
		name := strings.TrimSpace(raw[:open])
		hint := strings.TrimSpace(strings.TrimSuffix(raw[open+1:], ")"))
		if clo := strings.Index(hint, ")"); clo >= 0 {
			hint = strings.TrimSpace(hint[:clo])
		}
		return model.GuestCandidate{Name: name, RoleHint: hint}
	}

	if comma := strings.Index(raw, ","); comma > 0 {
		return model.GuestCandidate{
			Name:     strings.TrimSpace(raw[:comma]),
			RoleHint: strings.TrimSpace(raw[comma+1:]),
		}
	}

	return model.GuestCandidate{Name: raw}
}

// FilterCandidates applies the person-name heuristic and removes duplicate
// names within one episode, preserving order.
func FilterCandidates(raw []model.GuestCandidate) []model.GuestCandidate {
	seen := make(map[string]bool, len(raw))
	var out []model.GuestCandidate
	for _, c := range raw {
		c.Name = strings.TrimSpace(c.Name)
		if !LooksLikePersonName(c.Name) {
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
