package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the canonical on-disk timestamp format (UTC, second resolution)
const TimestampLayout = "2006-01-02T15:04:05Z"

// layouts accepted when reading; older documents carry a "+0000" offset
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// Timestamp is a UTC instant serialized in TimestampLayout
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to seconds and converts it to UTC
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// String formats the timestamp in TimestampLayout. The zero time, read
// from an empty legacy field, formats as the empty string.
func (t Timestamp) String() string {
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the canonical layout as well as legacy offset forms
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// ParseTimestamp parses any accepted timestamp layout
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(parsed), nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid ISO 8601 timestamp %q", s)
}
