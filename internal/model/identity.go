package model

// IdentitySource says where a resolved identity came from.
type IdentitySource string

const (
	// SourceOverride marks identities taken from the manual override table.
	SourceOverride IdentitySource = "override"
	// SourceRegistry marks identities resolved via the politician registry.
	SourceRegistry IdentitySource = "registry"
)

// Identity is the result of resolving a guest name against the override table
// or the politician registry. It is a value object, never persisted directly.
type Identity struct {
	PoliticianID string         `json:"politician_id"`
	Name         string         `json:"name"`
	PartyID      string         `json:"party_id,omitempty"`
	Party        string         `json:"party,omitempty"`
	Source       IdentitySource `json:"source"`
}

// GuestCandidate is a raw guest name extracted from an episode page before
// resolution. RoleHint carries party or title text found next to the name,
// when any.
type GuestCandidate struct {
	Name     string `json:"name"`
	RoleHint string `json:"role_hint,omitempty"`
}
