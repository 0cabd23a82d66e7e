package model

import "time"

// Topic identifies a political subject area discussed in an episode.
type Topic string

const (
	TopicEnergy         Topic = "energy_climate"
	TopicEconomy        Topic = "economy"
	TopicSecurity       Topic = "security"
	TopicMigration      Topic = "migration"
	TopicBudget         Topic = "budget"
	TopicDigitalization Topic = "digitalization"
	TopicHealth         Topic = "health"
	TopicCulture        Topic = "culture"
)

// AllTopics returns every defined topic.
func AllTopics() []Topic {
	return []Topic{
		TopicEnergy,
		TopicEconomy,
		TopicSecurity,
		TopicMigration,
		TopicBudget,
		TopicDigitalization,
		TopicHealth,
		TopicCulture,
	}
}

// TopicTag records that an episode of a show touched a topic.
type TopicTag struct {
	Show        string    `json:"show"`
	EpisodeDate time.Time `json:"episode_date"`
	Topic       Topic     `json:"topic"`
}
