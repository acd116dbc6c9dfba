package transport

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope is the wire struct every request/reply and pub/sub message
// on the transport carries: a tag naming what kind of message this is
// (dispatched to the matching Handler), an opaque JSON payload, and a
// correlation id threaded through request/reply pairs and log lines.
type Envelope struct {
	Tag           string          `json:"tag"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
}

// NewEnvelope marshals value into an Envelope's payload under tag, with
// a freshly minted correlation id.
func NewEnvelope(tag string, value any) (Envelope, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Tag: tag, Payload: payload, CorrelationID: uuid.New()}, nil
}

// Decode unmarshals e's payload into dst.
func (e Envelope) Decode(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}
