package domain

// Role attributes a conversation entry to a participant.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Message is a single conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HumanMessage is a shorthand for a message authored by the user.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage is a shorthand for a message authored by the assistant.
func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// LastHumanContent returns the content of the most recent human message.
func LastHumanContent(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleHuman {
			return msgs[i].Content, true
		}
	}
	return "", false
}

// LatestReplies returns the assistant messages after the most recent human message.
func LatestReplies(msgs []Message) []string {
	out := []string{}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == RoleHuman {
			break
		}
		if m.Role == RoleAI {
			out = append([]string{m.Content}, out...)
		}
	}
	return out
}
