package events

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// snapshotProbe mirrors the required snapshot fields with pointer types
// so that an absent field is distinguishable from a zero value. A type
// mismatch on any field fails the probe's unmarshal, which invalidates
// that single record.
type snapshotProbe struct {
	EventID         *string `json:"eventId"`
	EventCustomerID *string `json:"eventCustomerId"`
	EventType       *string `json:"eventType"`
	SessionID       *string `json:"sessionId"`
	EventTimestamp  *int64  `json:"eventTimestamp"`
}

func (p snapshotProbe) complete() bool {
	return p.EventID != nil && p.EventCustomerID != nil && p.EventType != nil &&
		p.SessionID != nil && p.EventTimestamp != nil
}

// EncodeSnapshot serializes records into the persisted snapshot format:
// a JSON array of record objects.
func EncodeSnapshot(records []*Record) ([]byte, error) {
	if len(records) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return data, nil
}

// DecodeSnapshot parses a persisted snapshot, validating each record
// against the required-field schema and the freshness window at now.
// Malformed or stale records are dropped individually and counted;
// only an unreadable container aborts the whole decode.
func DecodeSnapshot(data []byte, now time.Time) (records []*Record, dropped int, err error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	records = make([]*Record, 0, len(raw))
	for _, item := range raw {
		var probe snapshotProbe
		if err := json.Unmarshal(item, &probe); err != nil || !probe.complete() {
			dropped++
			continue
		}

		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			dropped++
			continue
		}
		if !rec.FreshAt(now) {
			dropped++
			continue
		}
		records = append(records, &rec)
	}
	return records, dropped, nil
}
