// Package state defines the workflow context that flows through the agent
// pipeline, plus the classification enums agents write into it.
package state

// TicketCategory classifies what a support ticket is about.
type TicketCategory string

const (
	CategoryAccountAccess TicketCategory = "account_access"
	CategoryBilling       TicketCategory = "billing"
	CategoryTechnical     TicketCategory = "technical"
	CategoryProduct       TicketCategory = "product"
	CategoryShipping      TicketCategory = "shipping"
	CategoryRefund        TicketCategory = "refund"
	CategoryGeneral       TicketCategory = "general"
	CategoryOther         TicketCategory = "other"
)

// TicketPriority is the urgency assigned during intake.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Sentiment is the detected customer sentiment for the current message.
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

// MessageRole identifies who sent a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ConversationMessage is one prior turn in the ticket's conversation.
// Insertion order is significant.
type ConversationMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// RetrievedDocument is one knowledge-base hit recorded by the knowledge agent.
type RetrievedDocument struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"` // relevance in [0,1]
	Metadata map[string]any `json:"metadata"`
}

// SimilarTicket references a previously resolved ticket judged similar to the
// current one.
type SimilarTicket struct {
	TicketID   string  `json:"ticket_id"`
	Summary    string  `json:"summary"`
	Resolution string  `json:"resolution"`
	Similarity float64 `json:"similarity"` // in [0,1]
}

// Action is a pending side effect the action agent should execute.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}
