package dto

// RelayMessageRequest is the inbound webhook body from the relay server.
type RelayMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Message     string `json:"message" validate:"required"`
	MessageType string `json:"message_type,omitempty"`
}

// RelayMessagePayload is the event carried on the internal relay topic. The
// webhook handler publishes it and returns immediately; the consumer runs
// the full pipeline.
type RelayMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}
