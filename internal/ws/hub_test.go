package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Hub, *jwt.HMACService, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	tokens := jwt.NewHMACService("secret", time.Hour, "nextstep")
	srv := httptest.NewServer(NewServer("", NewHandler(hub, tokens, nil)).Handler)
	t.Cleanup(srv.Close)

	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http") + Path
}

func TestHandler_RejectsMissingOrBadToken(t *testing.T) {
	_, _, url := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotifier_BroadcastsToAdmins(t *testing.T) {
	hub, tokens, url := startServer(t)
	tok, _, err := tokens.GenerateAdminToken("Dana")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	n := NewNotifier(hub)
	u := pending.New(pending.SkillProposal{Name: "GraphQL"}, "trending", nil, time.Now())
	n.PendingCreated(context.Background(), []pending.Update{u})
	n.OntologyChanged(context.Background(), 7)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string           `json:"type"`
		Data []pendingSummary `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, EventPendingCreated, first.Type)
	require.Len(t, first.Data, 1)
	assert.Equal(t, "GraphQL", first.Data[0].Subject)
	assert.Equal(t, pending.KindSkill, first.Data[0].Kind)

	var second struct {
		Type string       `json:"type"`
		Data reloadedData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, EventOntologyReloaded, second.Type)
	assert.Equal(t, int64(7), second.Data.Version)
}

func TestNotifier_ReviewedPayload(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.clients[c] = true
	go hub.Run(t.Context())

	u := pending.Update{
		ID:         uuid.New(),
		Payload:    pending.ObsoleteFlag{Name: "Angular"},
		Status:     pending.StatusRejected,
		ReviewedBy: "Admin",
	}
	NewNotifier(hub).Reviewed(context.Background(), u)

	select {
	case msg := <-c.send:
		var evt map[string]any
		require.NoError(t, json.Unmarshal(msg, &evt))
		assert.Equal(t, EventUpdateReviewed, evt["type"])
		data := evt["data"].(map[string]any)
		assert.Equal(t, "Angular", data["subject"])
		assert.Equal(t, "rejected", data["status"])
		assert.Equal(t, "Admin", data["reviewed_by"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestNotifier_NilHubIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.OntologyChanged(context.Background(), 1) })
	assert.NotPanics(t, func() { NewNotifier(nil).OntologyChanged(context.Background(), 1) })
}
