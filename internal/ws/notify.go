package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
)

const (
	EventPendingCreated   = "pending_created"
	EventOntologyReloaded = "ontology_reloaded"
	EventUpdateReviewed   = "update_reviewed"
)

type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type pendingSummary struct {
	ID      string       `json:"id"`
	Kind    pending.Kind `json:"type"`
	Subject string       `json:"subject"`
	Reason  string       `json:"discovery_reason,omitempty"`
}

type reviewedData struct {
	pendingSummary
	Status     pending.Status `json:"status"`
	ReviewedBy string         `json:"reviewed_by"`
}

type reloadedData struct {
	Version int64 `json:"version"`
}

// Notifier turns workflow callbacks into hub broadcasts.
type Notifier struct {
	hub *Hub
	now func() time.Time
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub, now: time.Now}
}

func (n *Notifier) PendingCreated(_ context.Context, updates []pending.Update) {
	if len(updates) == 0 {
		return
	}
	items := make([]pendingSummary, 0, len(updates))
	for _, u := range updates {
		items = append(items, summarize(u))
	}
	n.emit(EventPendingCreated, items)
}

func (n *Notifier) OntologyChanged(_ context.Context, version int64) {
	n.emit(EventOntologyReloaded, reloadedData{Version: version})
}

func (n *Notifier) Reviewed(_ context.Context, u pending.Update) {
	n.emit(EventUpdateReviewed, reviewedData{
		pendingSummary: summarize(u),
		Status:         u.Status,
		ReviewedBy:     u.ReviewedBy,
	})
}

func (n *Notifier) emit(kind string, data any) {
	if n == nil || n.hub == nil {
		return
	}
	b, err := json.Marshal(Event{
		Type:      kind,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		n.hub.logger.Warn("event encode failed")
		return
	}
	n.hub.Broadcast(b)
}

func summarize(u pending.Update) pendingSummary {
	s := pendingSummary{ID: u.ID.String(), Reason: u.DiscoveryReason}
	if u.Payload != nil {
		s.Kind = u.Payload.Kind()
		s.Subject = u.Payload.Subject()
	}
	return s
}
