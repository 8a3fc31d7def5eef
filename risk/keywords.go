package risk

import "haven-chat/domain/chat"

// Phrase tiers ordered by severity. Matching is plain lowercase substring
// containment, deliberately without word boundaries: a phrase hidden inside
// a longer word still counts. Over-detection is the safe direction here.
var (
	criticalPhrases = []string{
		"kill myself",
		"want to die",
		"end my life",
		"suicide",
		"better off dead",
		"end it all",
		"take my own life",
	}

	highPhrases = []string{
		"self harm",
		"self-harm",
		"hurt myself",
		"cutting myself",
		"no reason to live",
		"can't go on",
		"cant go on",
		"hopeless",
	}

	mediumPhrases = []string{
		"worthless",
		"hate myself",
		"want to give up",
		"no one cares",
		"nobody cares",
		"so alone",
		"can't take it anymore",
		"cant take it anymore",
	}

	lowPhrases = []string{
		"depressed",
		"anxious",
		"overwhelmed",
		"exhausted",
		"struggling",
		"burned out",
	}
)

type phraseTier struct {
	level   chat.RiskLevel
	phrases []string
}

// tiers lists the phrase lists from most to least severe; the scanner keeps
// the first tier with a match as the keyword-derived level.
func tiers() []phraseTier {
	return []phraseTier{
		{level: chat.RiskCritical, phrases: criticalPhrases},
		{level: chat.RiskHigh, phrases: highPhrases},
		{level: chat.RiskMedium, phrases: mediumPhrases},
		{level: chat.RiskLow, phrases: lowPhrases},
	}
}
