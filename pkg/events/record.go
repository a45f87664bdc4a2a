package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the supported event categories. Only TRACK events
// flow through the pipeline today; the wire field is kept extensible.
type EventType string

// EventTypeTrack identifies host-application tracking events.
const EventTypeTrack EventType = "TRACK"

// Freshness window applied when records are reloaded from a persisted
// snapshot. Records older than MaxRecordAge are assumed abandoned;
// records further than MaxClockSkew in the future are assumed corrupt.
const (
	MaxRecordAge = 30 * 24 * time.Hour
	MaxClockSkew = time.Hour
)

// criticalKeywords classifies events whose durability matters more than
// write coalescing: their snapshot is persisted immediately instead of
// waiting for the debounce window.
var criticalKeywords = []string{"purchase", "error", "crash", "session_end", "app_terminate"}

// Record is one immutable analytics event. SubjectID is the
// customer-assigned event identifier (the name passed to Track); the
// JSON field names follow the collector wire format.
type Record struct {
	ID          uuid.UUID  `json:"eventId"`
	SubjectID   string     `json:"eventCustomerId"`
	Type        EventType  `json:"eventType"`
	Properties  Properties `json:"properties"`
	SessionID   string     `json:"sessionId"`
	TimestampMs int64      `json:"eventTimestamp"`
}

// NewRecord builds a track record stamped with the current time and a
// fresh unique id.
func NewRecord(subjectID, sessionID string, props Properties) *Record {
	return &Record{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		Type:        EventTypeTrack,
		Properties:  props,
		SessionID:   sessionID,
		TimestampMs: time.Now().UnixMilli(),
	}
}

// Timestamp returns the event time as a time.Time.
func (r *Record) Timestamp() time.Time {
	return time.UnixMilli(r.TimestampMs)
}

// FreshAt reports whether the record's timestamp falls inside the
// reload freshness window relative to now.
func (r *Record) FreshAt(now time.Time) bool {
	ts := r.Timestamp()
	return !ts.Before(now.Add(-MaxRecordAge)) && !ts.After(now.Add(MaxClockSkew))
}

// Critical reports whether the record requires immediate persistence.
// Classification matches the event type or subject id against the fixed
// critical-keyword set, case-insensitively.
func (r *Record) Critical() bool {
	subject := strings.ToLower(r.SubjectID)
	typ := strings.ToLower(string(r.Type))
	for _, kw := range criticalKeywords {
		if strings.Contains(subject, kw) || typ == kw {
			return true
		}
	}
	return false
}

// reset clears the record for reuse by a pool.
func (r *Record) reset() {
	*r = Record{}
}
