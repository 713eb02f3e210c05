package conversation

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxTurns bounds the remembered history (4 turns = 8 raw messages).
const DefaultMaxTurns = 4

// Turn is one question/answer pair.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the bounded conversation of a single session.
type History struct {
	SessionID string
	TenantID  string
	Turns     []Turn
	CreatedAt time.Time
}

// IsEmpty reports whether the session has no prior turns.
func (h History) IsEmpty() bool { return len(h.Turns) == 0 }

// Transcript renders turns as "Human:/Assistant:" lines for condensation prompts.
func Transcript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Human: %s\nAssistant: %s", t.Question, t.Answer)
	}
	return b.String()
}

// Tagged renders turns as "<Question>q <Answer>a" lines, one per turn.
func Tagged(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "<Question>%s <Answer>%s", t.Question, t.Answer)
	}
	return b.String()
}
