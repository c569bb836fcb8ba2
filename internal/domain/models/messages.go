package models

import "time"

// Message types moved across the trigger bus and the local job queue.
const (
	MessageTypeCollection = "market-log-collection"
	MessageTypeAnalysis   = "profitable-logs-analysis"
)

// DefaultMessageTTL is how long a dispatched trigger stays valid. Consumers
// must drop anything older without processing it.
const DefaultMessageTTL = 2 * time.Minute

// TriggerMessage is the envelope every dispatched payload carries.
type TriggerMessage struct {
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewTriggerMessage stamps a fresh envelope with the default TTL.
func NewTriggerMessage(msgType string) TriggerMessage {
	now := time.Now().UTC()
	return TriggerMessage{
		MessageType: msgType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultMessageTTL),
	}
}

// Expired reports whether the message is past its expiry.
func (m TriggerMessage) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// CollectionTrigger asks for one collection cycle on one exchange.
type CollectionTrigger struct {
	TriggerMessage
	Exchange string `json:"exchange" validate:"required"`
}

// NewCollectionTrigger builds a collection trigger for an exchange.
func NewCollectionTrigger(exchange string) *CollectionTrigger {
	return &CollectionTrigger{
		TriggerMessage: NewTriggerMessage(MessageTypeCollection),
		Exchange:       exchange,
	}
}

// AnalysisTrigger asks for one labeling run. Dates are optional RFC3339
// bounds honored by on-demand runs.
type AnalysisTrigger struct {
	TriggerMessage
	AnalysisType string `json:"analysisType" validate:"required,oneof=daily on-demand"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
}

// NewAnalysisTrigger builds an analysis trigger.
func NewAnalysisTrigger(analysisType, startDate, endDate string) *AnalysisTrigger {
	return &AnalysisTrigger{
		TriggerMessage: NewTriggerMessage(MessageTypeAnalysis),
		AnalysisType:   analysisType,
		StartDate:      startDate,
		EndDate:        endDate,
	}
}
