package outbox

import (
	"encoding/json"
	"time"
)

// ChangeEnvelope is the stable wire shape published to the realtime channel.
// Subscribed storefront clients key off Collection to refetch the affected
// dataset.
type ChangeEnvelope struct {
	EventID     string          `json:"eventId"`
	Collection  string          `json:"collection"`
	Operation   string          `json:"operation"`
	DocumentKey string          `json:"documentKey"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Data        json.RawMessage `json:"data,omitempty"`
}
