package simulation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// SnakeToTitle renders a snake_case theme identifier as display text,
// e.g. "second_chance" -> "Second Chance".
func SnakeToTitle(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

// CombineNarrativeAction folds a scene-master narrative and an agent's
// chosen action into the single text block both agents memorize.
func CombineNarrativeAction(narrative, agentName, action string) string {
	return narrative + "\n" + agentName + ": " + action
}
