package risk

import "haven-chat/domain/chat"

// Resource messages sent privately with a crisis alert. Two tiers: urgent
// for critical/high verdicts, supportive for anything lower that still
// flagged as a crisis.
const (
	urgentResources = "We're concerned about you. If you are in immediate danger, " +
		"please call your local emergency services (911 in the US, 112 in the EU). " +
		"You can also reach the 988 Suicide & Crisis Lifeline by calling or texting 988, " +
		"or text HOME to 741741 to talk with a Crisis Text Line counselor. " +
		"You don't have to face this alone."

	supportiveResources = "It sounds like you're going through a hard time. " +
		"Talking to someone can help: the 988 Suicide & Crisis Lifeline (call or text 988) " +
		"and the Crisis Text Line (text HOME to 741741) are free and available 24/7. " +
		"Reaching out is a sign of strength."
)

// ResourceMessage selects the advisory text for a verdict level.
func ResourceMessage(level chat.RiskLevel) string {
	switch level {
	case chat.RiskCritical, chat.RiskHigh:
		return urgentResources
	default:
		return supportiveResources
	}
}
