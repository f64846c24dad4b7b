package runtime

// Defaults fill identifiers the caller did not supply.
type Defaults struct {
	AccountID     string  `yaml:"account_id"`
	UserID        string  `yaml:"user_id"`
	TicketID      string  `yaml:"ticket_id"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultDefaults returns the built-in identifiers and threshold.
func DefaultDefaults() Defaults {
	return Defaults{
		AccountID:     "cultpass",
		UserID:        "a4ab87",
		TicketID:      "unknown",
		MinConfidence: 0.6,
	}
}
