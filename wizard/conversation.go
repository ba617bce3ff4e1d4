package wizard

import (
	"time"

	"github.com/c360studio/briefwizard/trigger"
)

// Role identifies who authored a conversation message.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one turn of the wizard conversation.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Confidence carries the analysis confidence for assistant messages.
	Confidence float64 `json:"confidence,omitempty"`

	// Stage records the wizard phase when the message was produced.
	Stage string `json:"stage,omitempty"`
}

// AIResponse is an unsolicited comment the engine produced in reaction to a
// direct brief edit.
type AIResponse struct {
	ID        string          `json:"id"`
	Trigger   trigger.Trigger `json:"trigger"`
	Message   string          `json:"message"`
	Dismissed bool            `json:"dismissed"`
	CreatedAt time.Time       `json:"created_at"`
}
