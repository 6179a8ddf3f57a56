package apimodel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidEnvelope = errors.New("invalid response envelope")

// Envelope is the backend's response wrapper. Code is a logical status: only the
// client's success sentinel means Data is valid, even when the transport said 200.
type Envelope struct {
	Code    int             `json:"code"`              // Absent codes decode as 0
	Message string          `json:"message,omitempty"` // Human readable outcome
	Data    json.RawMessage `json:"data,omitempty"`    // Arbitrary payload
}

// DecodeEnvelope parses a response body; the body must be a JSON object.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidEnvelope
	}
	var e Envelope
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &e, nil
}

// DecodeData unmarshals Data into v.
func (e *Envelope) DecodeData(v any) error {
	if e == nil || len(e.Data) == 0 {
		return fmt.Errorf("%w: no data", ErrInvalidEnvelope)
	}
	return json.Unmarshal(e.Data, v)
}

// HasData returns false for absent or null data
func (e *Envelope) HasData() bool {
	if e == nil {
		return false
	}
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// ErrorBody is the body of a non-2xx response: either a FastAPI style
// {"detail": "..."} or an envelope carrying a message.
type ErrorBody struct {
	Detail  any    `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorMessage picks the most specific message of body: a string detail, then
// message, then fallback. Validation details (lists) are not shown to users.
func ErrorMessage(body []byte, fallback string) string {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if s, ok := eb.Detail.(string); ok && s != "" {
		return s
	}
	if eb.Message != "" {
		return eb.Message
	}
	return fallback
}
