package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Base contains common fields for all models
type Base struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ID is a numeric identifier that also accepts its decimal string form on the wire.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}

	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric identifier %q", string(raw))
	}
	*id = ID(v)
	return nil
}

// ParseID parses a path or query identifier.
func ParseID(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid identifier %q", s)
	}
	return v, nil
}

// FlexInt accepts a JSON number or a numeric string. Settings forms post numbers as strings.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("invalid integer %q", string(raw))
	}
	*n = FlexInt(v)
	return nil
}

// FlexFloat is the decimal counterpart of FlexInt.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", string(raw))
	}
	*f = FlexFloat(v)
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
