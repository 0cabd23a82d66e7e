package extract

import (
	"strings"

	"github.com/polittalk/talkwatch/internal/model"
)

// topicKeywords maps topics to the German keywords that signal them in an
// episode description. Keyword matching is deliberately simple; descriptions
// are short editorial texts and the topic set is a small fixed enumeration.
var topicKeywords = map[model.Topic][]string{
	model.TopicEnergy:         {"klima", "energie", "heizung", "strompreis", "erneuerbare", "kohle", "atomkraft", "co2"},
	model.TopicEconomy:        {"wirtschaft", "inflation", "konjunktur", "industrie", "arbeitsmarkt", "rezession", "standort"},
	model.TopicSecurity:       {"sicherheit", "bundeswehr", "verteidigung", "krieg", "nato", "ukraine", "terror"},
	model.TopicMigration:      {"migration", "flüchtling", "asyl", "abschiebung", "zuwanderung", "integration"},
	model.TopicBudget:         {"haushalt", "schuldenbremse", "steuer", "finanzen", "sparpaket", "etat"},
	model.TopicDigitalization: {"digital", "künstliche intelligenz", "datenschutz", "cyber", "internet"},
	model.TopicHealth:         {"gesundheit", "pflege", "krankenhaus", "krankenkasse", "pandemie"},
	model.TopicCulture:        {"kultur", "bildung", "schule", "universität", "medien"},
}

// Topics scans the episode description for topic keywords and returns the
// matching topics in a stable order.
func Topics(description string) []model.Topic {
	text := strings.ToLower(description)
	if text == "" {
		return nil
	}

	var out []model.Topic
	for _, topic := range model.AllTopics() {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(text, kw) {
				out = append(out, topic)
				break
			}
		}
	}
	return out
}
