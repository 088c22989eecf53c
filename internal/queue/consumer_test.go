package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = ReservationEvent{
	Type:          "reservation.approved",
	ReservationID: "7f1c",
	Status:        "Approved",
	GuestEmail:    "g@x.com",
	ArrivalTime:   "2030-05-11T12:00:00.000Z",
	TableSize:     4,
	Actor:         "staff:s-1",
	OccurredAt:    "2030-05-10T09:00:00.000Z",
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t,
		"[2030-05-10T09:00:00.000Z] reservation.approved | reservation_id=7f1c | status=Approved | guest=g@x.com | arrival=2030-05-11T12:00:00.000Z | table_size=4 | actor=staff:s-1\n",
		FormatLine(sample))
}

func TestHandleMessage_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.log")
	body, err := json.Marshal(sample)
	require.NoError(t, err)

	require.NoError(t, HandleMessage(body, path))
	require.NoError(t, HandleMessage(body, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reservation_id=7f1c")
}

func TestHandleMessage_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	assert.Error(t, HandleMessage([]byte("{not json"), path))
	assert.Error(t, HandleMessage([]byte(`{"status":"Approved"}`), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
