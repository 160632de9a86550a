package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

func TestWatchSessionReportsStatuses(t *testing.T) {
	examID := uuid.New()
	other := uuid.New()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/sessions", r.URL.Path)
		assert.Equal(t, "tkn", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req ws.Message
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, ws.TypeRequestState, req.Type)

		send := func(typ string, payload interface{}) {
			msg, err := ws.NewMessage(typ, payload)
			require.NoError(t, err)
			require.NoError(t, conn.WriteJSON(msg))
		}
		send(ws.TypeSessionState, ws.SessionStatePayload{ExamID: examID.String(), Status: "active"})
		send(ws.TypeSessionShutdown, ws.SessionCommandPayload{ExamID: other.String(), Status: "shutdown"})
		send(ws.TypeSessionShutdown, ws.SessionCommandPayload{ExamID: examID.String(), Status: "shutdown"})
		send(ws.TypeSessionPowerOn, ws.SessionCommandPayload{ExamID: examID.String(), Status: "active"})

		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Token: "tkn"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- c.WatchSession(ctx, examID, func(status string) {
			mu.Lock()
			got = append(got, status)
			if len(got) == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"active", "shutdown", "active"}, got)
}

func TestWatchSessionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Token: "tkn"}, zerolog.Nop())
	err := c.WatchSession(context.Background(), uuid.New(), func(string) {})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestSocketURL(t *testing.T) {
	c := New("https://proctor.example.com/", Options{Token: "a b"}, zerolog.Nop())
	u, err := c.socketURL("/ws/sessions")
	require.NoError(t, err)
	assert.Equal(t, "wss://proctor.example.com/ws/sessions?token=a+b", u)
}
