package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestLog(t *testing.T) {
	buf := captureLog(t)

	Log(context.Background(), Event{
		Type:      EventSessionStart,
		SessionID: "s1",
		InviteID:  "i1",
		Details:   map[string]interface{}{"turnIdx": 1, "late": false},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "interview", entry["audit"])
	assert.Equal(t, "session_start", entry["event_type"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "i1", entry["invite_id"])
	assert.Equal(t, float64(1), entry["turnIdx"])
	assert.Equal(t, false, entry["late"])
	assert.NotContains(t, entry, "actor")
}

func TestLogFromRequestUsesFirstForwardedHop(t *testing.T) {
	buf := captureLog(t)

	r := httptest.NewRequest("POST", "/admin/sessions/s1/abandon", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.Header.Set("User-Agent", "curl/8")

	LogFromRequest(r, Event{Type: EventSessionAbandon, Actor: "admin"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "203.0.113.7", entry["ip"])
	assert.Equal(t, "curl/8", entry["user_agent"])
	assert.Equal(t, "admin", entry["actor"])
}
