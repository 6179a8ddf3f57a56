package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
)

// Profile is the user (or admin) record returned by the backend. Its schema differs
// between the user and admin endpoints and across backend versions, so it is kept as
// a JSON object with accessors for the fields the clients actually read.
type Profile map[string]any

// ParseProfile decodes a JSON object. JSON null decodes to a nil Profile.
// Numbers are kept as json.Number so 64-bit ids survive a round trip.
func ParseProfile(raw []byte) (Profile, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("[ParseProfile] profile is not a JSON object: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("[ParseProfile] trailing data after profile")
	}
	return p, nil
}

// Encode returns the JSON form stored on the device.
func (p Profile) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Clone returns a shallow copy so callers can't mutate the session's profile.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// ID returns the numeric id, or 0 when absent.
func (p Profile) ID() int64 {
	switch v := p["id"].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Name returns the first display name the record carries: name, nickname or username.
func (p Profile) Name() string {
	for _, key := range []string{"name", "nickname", "username"} {
		if s, ok := p[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (p Profile) Phone() string {
	s, _ := p["phone"].(string)
	return s
}

// Role is only populated on admin records
func (p Profile) Role() string {
	s, _ := p["role"].(string)
	return s
}
