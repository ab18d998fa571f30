package internal

import (
	"embed"
	"encoding/json"
	"event-bridge/domain"
	"event-bridge/projection"
	"html/template"
	"net/http"
	"time"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Sequence  uint64 `json:"sequence"`
	Kind      string `json:"kind"`
	Topic     string `json:"topic"`
	Sender    string `json:"sender"`
	Target    string `json:"target,omitempty"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail"`
}

type StatsProvider func() map[string]any

// HistorySource exposes the filter diagnostics the server renders.
type HistorySource interface {
	History() []domain.Envelope
	Gaps() []projection.Gap
}

type PageData struct {
	Items []InspectRow     `json:"items"`
	Gaps  []projection.Gap `json:"gaps"`
	Stats map[string]any   `json:"stats"`
}

// NewDebugHandler serves /inspect as HTML and /history.json as JSON.
func NewDebugHandler(source HistorySource, statsProvider StatsProvider) http.Handler {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, pageData(source, statsProvider))
	})

	mux.HandleFunc("/history.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pageData(source, statsProvider))
	})
	return mux
}

func pageData(source HistorySource, statsProvider StatsProvider) PageData {
	data := PageData{
		Gaps:  source.Gaps(),
		Stats: make(map[string]any),
	}
	if statsProvider != nil {
		data.Stats = statsProvider()
	}
	history := source.History()
	// Most recent first
	for i := len(history) - 1; i >= 0; i-- {
		data.Items = append(data.Items, DefaultMapper(history[i]))
	}
	return data
}

func DefaultMapper(env domain.Envelope) InspectRow {
	row := InspectRow{
		Sequence:  env.Sequence,
		Kind:      string(env.Kind),
		Topic:     string(env.Topic),
		Sender:    env.SenderID,
		Target:    env.TargetParticipantID,
		Timestamp: time.UnixMilli(env.Timestamp).UTC().Format("15:04:05.000"),
		Detail:    string(env.Payload),
	}
	if row.Sender == "" {
		row.Sender = "agent"
	}
	if len(row.Detail) > 120 {
		row.Detail = row.Detail[:120] + "…"
	}
	return row
}
