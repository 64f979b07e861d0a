package outbox

import (
	"encoding/json"
	"time"
)

const envelopeVersion = 1

// Envelope is the stable payload structure stored in outbox_events.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	RequestID  string          `json:"requestId,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload. Rows that fail to decode are
// not worth retrying.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, NewNonRetryableError(err)
	}
	if env.EventID == "" {
		return Envelope{}, NewNonRetryableError(errMissingEventID)
	}
	return env, nil
}
