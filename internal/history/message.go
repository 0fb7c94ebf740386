package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// UnmarshalText rejects anything but the two known senders so that a corrupt
// history is treated as unparsable.
func (s *Sender) UnmarshalText(b []byte) error {
	switch v := Sender(b); v {
	case SenderUser, SenderAssistant:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown sender %q", string(b))
	}
}

// Message represents a single conversational message.
// Committed messages are never mutated; Streaming is only set on the live view.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	AgentType AgentType `json:"agentType"`
	Streaming bool      `json:"-"`
}

// NewMessage stamps a message with a time-ordered id and the current time.
func NewMessage(sender Sender, content string, agent AgentType) Message {
	return Message{
		ID:        newID(),
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now(),
		AgentType: agent.OrDefault(),
	}
}

// WelcomeText greets the user on a fresh or reset session.
const WelcomeText = "Welcome to OfficeLifeline! 🏢 Where we solve workplace problems with a healthy dose of sarcasm and questionable life choices! I'm your AI support specialist, and fair warning: I come with a built-in dad joke dispenser and zero corporate filter! How can I help you navigate the beautiful chaos of office life today?"

// Welcome returns a new welcome message with a fresh timestamp.
func Welcome() Message {
	return NewMessage(SenderAssistant, WelcomeText, AgentSupport)
}

// newID returns a UUIDv7, which sorts by creation time.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Session is the persisted conversation: ordered history plus the remote thread id.
// An empty ThreadID means no conversation has been started with the chat service.
type Session struct {
	ThreadID string
	History  []Message
}

func (s Session) clone() Session {
	out := Session{ThreadID: s.ThreadID, History: make([]Message, len(s.History))}
	copy(out.History, s.History)
	return out
}

// NewThreadID returns an opaque id for a new remote conversation.
func NewThreadID() string {
	return "thread_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
