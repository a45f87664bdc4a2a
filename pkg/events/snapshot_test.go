package events_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customfit-ai/customfit-go/pkg/events"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	var props events.Properties
	props.Set("amount", events.Number(9.99))
	props.Set("currency", events.String("USD"))

	original := []*events.Record{
		events.NewRecord("purchase", "sess-1", props),
		events.NewRecord("page_view", "sess-1", nil),
	}

	data, err := events.EncodeSnapshot(original)
	require.NoError(t, err)

	decoded, dropped, err := events.DecodeSnapshot(data, time.Now())
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, decoded, 2)

	for i, rec := range decoded {
		assert.Equal(t, original[i].ID, rec.ID)
		assert.Equal(t, original[i].SubjectID, rec.SubjectID)
		assert.Equal(t, original[i].Type, rec.Type)
		assert.Equal(t, original[i].SessionID, rec.SessionID)
		assert.Equal(t, original[i].TimestampMs, rec.TimestampMs)
	}
}

func TestSnapshot_EmptyInput(t *testing.T) {
	t.Parallel()

	data, err := events.EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	decoded, dropped, err := events.DecodeSnapshot(nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, decoded)
	assert.Zero(t, dropped)
}

func TestSnapshot_MalformedRecordsDroppedIndividually(t *testing.T) {
	t.Parallel()

	now := time.Now()
	valid := fmt.Sprintf(
		`{"eventId":"8b7f3f60-1111-4222-8333-444455556666","eventCustomerId":"ok","eventType":"TRACK","properties":{},"sessionId":"s","eventTimestamp":%d}`,
		now.UnixMilli())

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		missing := `{"eventId":"8b7f3f60-1111-4222-8333-444455556667","eventType":"TRACK","sessionId":"s","eventTimestamp":1}`
		data := "[" + valid + "," + missing + "]"

		decoded, dropped, err := events.DecodeSnapshot([]byte(data), now)
		require.NoError(t, err)
		assert.Len(t, decoded, 1)
		assert.Equal(t, 1, dropped)
	})

	t.Run("type mismatch on timestamp", func(t *testing.T) {
		t.Parallel()

		mismatched := `{"eventId":"8b7f3f60-1111-4222-8333-444455556668","eventCustomerId":"x","eventType":"TRACK","sessionId":"s","eventTimestamp":"not-a-number"}`
		data := "[" + valid + "," + mismatched + "]"

		decoded, dropped, err := events.DecodeSnapshot([]byte(data), now)
		require.NoError(t, err)
		assert.Len(t, decoded, 1)
		assert.Equal(t, 1, dropped)
	})

	t.Run("stale record", func(t *testing.T) {
		t.Parallel()

		stale := fmt.Sprintf(
			`{"eventId":"8b7f3f60-1111-4222-8333-444455556669","eventCustomerId":"old","eventType":"TRACK","sessionId":"s","eventTimestamp":%d}`,
			now.Add(-40*24*time.Hour).UnixMilli())
		data := "[" + valid + "," + stale + "]"

		decoded, dropped, err := events.DecodeSnapshot([]byte(data), now)
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		assert.Equal(t, "ok", decoded[0].SubjectID)
		assert.Equal(t, 1, dropped)
	})
}

func TestSnapshot_CorruptContainer(t *testing.T) {
	t.Parallel()

	_, _, err := events.DecodeSnapshot([]byte(`{"not":"an array"`), time.Now())
	assert.ErrorIs(t, err, events.ErrCorruptSnapshot)
}
