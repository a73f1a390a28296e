package state

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StepIntake is the workflow step every new context starts in.
const StepIntake = "intake"

// WorkflowContext is the mutable record for one in-flight conversation turn.
// It is created once per turn by the orchestrator and handed through the
// agent pipeline; agents read and write it in sequence. It is never shared
// across concurrent turns, so it carries no locking.
//
//nolint:govet // logical field grouping preferred over alignment
type WorkflowContext struct {
	// Identity.
	TicketID   uuid.UUID
	CustomerID uuid.UUID

	// Input.
	Messages       []ConversationMessage
	CurrentMessage string

	// Classification (intake agent).
	Category  *TicketCategory
	Priority  *TicketPriority
	Sentiment *Sentiment
	Intent    *string
	Entities  map[string]any

	// Knowledge retrieval (knowledge agent).
	RetrievedDocuments  []RetrievedDocument
	KnowledgeConfidence *float64
	SimilarTickets      []SimilarTicket

	// Resolution (resolution agent).
	ProposedResponse   *string
	ResponseConfidence *float64
	RequiresAction     bool

	// Actions (action agent).
	ActionsToExecute []Action
	ActionsExecuted  []string
	ActionResults    map[string]any

	// Escalation (escalation agent).
	ShouldEscalate    bool
	EscalationReason  *string
	EscalationContext map[string]any

	// Bookkeeping.
	WorkflowStep string
	AgentHistory []string
	Metadata     map[string]any
	Error        *string
}

// New validates inputs and builds a fresh workflow context positioned at the
// intake step. This is the only error class the harness does not contain:
// a context that fails validation never enters the pipeline.
func New(ticketID, customerID uuid.UUID, currentMessage string, messages []ConversationMessage) (*WorkflowContext, error) {
	trimmed := strings.TrimSpace(currentMessage)
	if trimmed == "" {
		return nil, fmt.Errorf("current message cannot be empty or whitespace")
	}
	if ticketID == uuid.Nil {
		return nil, fmt.Errorf("ticket id cannot be nil")
	}
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id cannot be nil")
	}

	wc := &WorkflowContext{
		TicketID:          ticketID,
		CustomerID:        customerID,
		Messages:          append([]ConversationMessage(nil), messages...),
		CurrentMessage:    trimmed,
		Entities:          make(map[string]any),
		ActionResults:     make(map[string]any),
		EscalationContext: make(map[string]any),
		Metadata:          make(map[string]any),
		WorkflowStep:      StepIntake,
	}
	return wc, nil
}

func validScore(score float64) error {
	if score < 0.0 || score > 1.0 {
		return fmt.Errorf("score %v out of range [0,1]", score)
	}
	return nil
}

// HasError reports whether any agent recorded a processing error.
func (wc *WorkflowContext) HasError() bool {
	return wc.Error != nil
}

// IsHighPriority reports whether the ticket was classified high or urgent.
func (wc *WorkflowContext) IsHighPriority() bool {
	return wc.Priority != nil && (*wc.Priority == PriorityHigh || *wc.Priority == PriorityUrgent)
}

// HasNegativeSentiment reports whether the detected sentiment is negative.
func (wc *WorkflowContext) HasNegativeSentiment() bool {
	return wc.Sentiment != nil && (*wc.Sentiment == SentimentNegative || *wc.Sentiment == SentimentVeryNegative)
}

// HasSufficientKnowledge reports whether retrieval produced enough material
// to draft a response (confidence at least 0.7 with documents present).
func (wc *WorkflowContext) HasSufficientKnowledge() bool {
	return wc.KnowledgeConfidence != nil && *wc.KnowledgeConfidence >= 0.7 && len(wc.RetrievedDocuments) > 0
}

// HasHighConfidenceResponse reports whether the drafted response is confident
// enough (at least 0.8) to send without escalation.
func (wc *WorkflowContext) HasHighConfidenceResponse() bool {
	return wc.ResponseConfidence != nil && *wc.ResponseConfidence >= 0.8
}

// AddAgentToHistory records that an agent touched this context. Plain names
// are suppressed on repeat visits; decorated entries ("x (failed)",
// "x (skipped)") follow the same rule per decorated form, so a plain entry
// and a failed entry for the same agent may coexist.
func (wc *WorkflowContext) AddAgentToHistory(agentName string) {
	for _, existing := range wc.AgentHistory {
		if existing == agentName {
			return
		}
	}
	wc.AgentHistory = append(wc.AgentHistory, agentName)
}

// SetWorkflowStep updates the current step name.
func (wc *WorkflowContext) SetWorkflowStep(step string) {
	wc.WorkflowStep = step
}

// SetKnowledgeConfidence records the aggregate retrieval confidence.
func (wc *WorkflowContext) SetKnowledgeConfidence(score float64) error {
	if err := validScore(score); err != nil {
		return fmt.Errorf("knowledge confidence: %w", err)
	}
	wc.KnowledgeConfidence = &score
	return nil
}

// AddRetrievedDocument appends a knowledge-base hit. The relevance score must
// lie in [0,1].
func (wc *WorkflowContext) AddRetrievedDocument(content string, score float64, metadata map[string]any) error {
	if err := validScore(score); err != nil {
		return fmt.Errorf("retrieved document: %w", err)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	wc.RetrievedDocuments = append(wc.RetrievedDocuments, RetrievedDocument{
		Content:  content,
		Score:    score,
		Metadata: metadata,
	})
	return nil
}

// AddSimilarTicket appends a similar-ticket record. Similarity must lie in [0,1].
func (wc *WorkflowContext) AddSimilarTicket(ticket SimilarTicket) error {
	if err := validScore(ticket.Similarity); err != nil {
		return fmt.Errorf("similar ticket: %w", err)
	}
	wc.SimilarTickets = append(wc.SimilarTickets, ticket)
	return nil
}

// SetProposedResponse records the drafted customer response with its
// confidence. Confidence must lie in [0,1].
func (wc *WorkflowContext) SetProposedResponse(text string, confidence float64) error {
	if err := validScore(confidence); err != nil {
		return fmt.Errorf("response confidence: %w", err)
	}
	wc.ProposedResponse = &text
	wc.ResponseConfidence = &confidence
	return nil
}

// AddAction queues an action for the action agent to execute.
func (wc *WorkflowContext) AddAction(actionType string, params map[string]any) {
	if params == nil {
		params = make(map[string]any)
	}
	wc.ActionsToExecute = append(wc.ActionsToExecute, Action{Type: actionType, Params: params})
	wc.RequiresAction = true
}

// MarkActionExecuted records a completed action and its result payload.
func (wc *WorkflowContext) MarkActionExecuted(actionType string, result any) {
	wc.ActionsExecuted = append(wc.ActionsExecuted, actionType)
	wc.ActionResults[actionType] = result
}

// TriggerEscalation routes the ticket to a human handler.
func (wc *WorkflowContext) TriggerEscalation(reason string, extra map[string]any) {
	wc.ShouldEscalate = true
	wc.EscalationReason = &reason
	for k, v := range extra {
		wc.EscalationContext[k] = v
	}
}

// SetError records a processing error message.
func (wc *WorkflowContext) SetError(msg string) {
	wc.Error = &msg
}

// Clone returns a deep copy of the context. The harness hands clones to
// processors so that a failing step cannot leave partial mutations behind.
func (wc *WorkflowContext) Clone() *WorkflowContext {
	cp := *wc

	cp.Messages = append([]ConversationMessage(nil), wc.Messages...)
	cp.RetrievedDocuments = make([]RetrievedDocument, len(wc.RetrievedDocuments))
	for i, doc := range wc.RetrievedDocuments {
		doc.Metadata = copyMap(doc.Metadata)
		cp.RetrievedDocuments[i] = doc
	}
	cp.SimilarTickets = append([]SimilarTicket(nil), wc.SimilarTickets...)
	cp.ActionsToExecute = make([]Action, len(wc.ActionsToExecute))
	for i, action := range wc.ActionsToExecute {
		action.Params = copyMap(action.Params)
		cp.ActionsToExecute[i] = action
	}
	cp.ActionsExecuted = append([]string(nil), wc.ActionsExecuted...)
	cp.AgentHistory = append([]string(nil), wc.AgentHistory...)

	cp.Entities = copyMap(wc.Entities)
	cp.ActionResults = copyMap(wc.ActionResults)
	cp.EscalationContext = copyMap(wc.EscalationContext)
	cp.Metadata = copyMap(wc.Metadata)

	cp.Category = copyPtr(wc.Category)
	cp.Priority = copyPtr(wc.Priority)
	cp.Sentiment = copyPtr(wc.Sentiment)
	cp.Intent = copyPtr(wc.Intent)
	cp.KnowledgeConfidence = copyPtr(wc.KnowledgeConfidence)
	cp.ProposedResponse = copyPtr(wc.ProposedResponse)
	cp.ResponseConfidence = copyPtr(wc.ResponseConfidence)
	cp.EscalationReason = copyPtr(wc.EscalationReason)
	cp.Error = copyPtr(wc.Error)

	return &cp
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ConversationForLLM returns the conversation history plus the current
// message as the final user turn, in the shape the LLM client expects.
func (wc *WorkflowContext) ConversationForLLM() []ConversationMessage {
	history := append([]ConversationMessage(nil), wc.Messages...)
	return append(history, ConversationMessage{Role: RoleUser, Content: wc.CurrentMessage})
}

// Summary produces a compact view of the context for logging.
func (wc *WorkflowContext) Summary() map[string]any {
	return map[string]any{
		"ticket_id":           wc.TicketID.String(),
		"workflow_step":       wc.WorkflowStep,
		"category":            derefOr(wc.Category, ""),
		"priority":            derefOr(wc.Priority, ""),
		"sentiment":           derefOr(wc.Sentiment, ""),
		"has_response":        wc.ProposedResponse != nil,
		"response_confidence": wc.ResponseConfidence,
		"requires_action":     wc.RequiresAction,
		"should_escalate":     wc.ShouldEscalate,
		"escalation_reason":   derefOr(wc.EscalationReason, ""),
		"agents_processed":    wc.AgentHistory,
		"error":               derefOr(wc.Error, ""),
	}
}

func derefOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func (wc *WorkflowContext) String() string {
	return fmt.Sprintf("WorkflowContext(ticket=%s, step=%s, escalate=%v)",
		wc.TicketID, wc.WorkflowStep, wc.ShouldEscalate)
}
