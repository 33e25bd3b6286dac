package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "recommendation.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain Event implementation used both for publishing typed
// events and for reconstructing events on the consuming side.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// RecommendationCompletedType is emitted after every finished pipeline run.
const RecommendationCompletedType = "recommendation.completed"

// NewRecommendationCompleted builds the activity event published to the bus
// once a recommendation reply has been composed.
func NewRecommendationCompleted(sessionID, source, intentType string, titles []string) Event {
	return BaseEvent{
		Type: RecommendationCompletedType,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"source":     source,
			"intent":     intentType,
			"songs":      titles,
			"song_count": len(titles),
		},
		OccurredAt: time.Now(),
	}
}
