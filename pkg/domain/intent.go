package domain

import "strings"

// Intent is the topical category of a user message.
type Intent string

const (
	IntentLogin        Intent = "login"
	IntentSubscription Intent = "subscription"
	IntentReservation  Intent = "reservation"
	IntentKnowledge    Intent = "knowledge"
	IntentUnknown      Intent = "unknown"
)

// KnownIntents lists the labels a classifier may produce, excluding the sentinel.
var KnownIntents = []Intent{IntentLogin, IntentSubscription, IntentReservation, IntentKnowledge}

// ParseIntent maps a raw label to a known intent.
// The match is case-insensitive and ignores surrounding whitespace.
func ParseIntent(raw string) (Intent, bool) {
	label := Intent(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range KnownIntents {
		if label == known {
			return known, true
		}
	}
	if label == IntentUnknown {
		return IntentUnknown, true
	}
	return IntentUnknown, false
}
