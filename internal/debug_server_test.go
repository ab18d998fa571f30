package internal

import (
	"encoding/json"
	"event-bridge/domain"
	"event-bridge/projection"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newFilterWithHistory(t *testing.T) *projection.SequenceFilter {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	filter := projection.NewSequenceFilter(log, clock.NewMock(), func() string { return "me" }, nil, 10)
	for _, seq := range []uint64{1, 2, 4} {
		env, err := domain.NewEventEnvelope("", seq, time.UnixMilli(0), domain.NoteRefresh{})
		require.NoError(t, err)
		filter.Admit(env)
	}
	return filter
}

func TestDebugHandler_History_JSON(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(NewDebugHandler(newFilterWithHistory(t), func() map[string]any {
		return map[string]any{"accepted": 3}
	}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/history.json")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var data PageData
	req.NoError(json.NewDecoder(resp.Body).Decode(&data))

	// Then the newest envelope comes first and the gap is listed
	req.Len(data.Items, 3)
	req.Equal(uint64(4), data.Items[0].Sequence)
	req.Equal("agent", data.Items[0].Sender)
	req.Equal([]projection.Gap{{Expected: 3, Got: 4}}, data.Gaps)
	req.Equal(float64(3), data.Stats["accepted"])
}

func TestDebugHandler_Inspect_HTML(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(NewDebugHandler(newFilterWithHistory(t), nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/inspect")
	req.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Contains(resp.Header.Get("Content-Type"), "text/html")
	req.Contains(string(body), "note.refresh")
}

func TestDefaultMapper_Truncates_Payload(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	row := DefaultMapper(domain.Envelope{Sequence: 1, SenderID: "tab", Payload: long})

	require.Equal(t, "tab", row.Sender)
	require.Len(t, []rune(row.Detail), 121)
}
