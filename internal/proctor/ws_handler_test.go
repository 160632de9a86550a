package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/auth/jwt"
	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

type tokenTable map[string]*jwt.Claims

func (t tokenTable) ValidateToken(token string) (*jwt.Claims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, jwt.ErrInvalidToken
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions?token=" + token
}

func TestWSHandler_RejectsBadTokensAndInstructors(t *testing.T) {
	tokens := tokenTable{"instructor": {UserID: uuid.New(), Role: auth.RoleInstructor}}
	h := NewWSHandler(tokens, ws.NewHub(zerolog.Nop()), newServiceFixture().svc, nil, nil, zerolog.Nop())
	server := httptest.NewServer(h)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server, "bogus"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server, "instructor"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWSHandler_PushesCommandsAndAnswersState(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newServiceFixture()
	hub := ws.NewHub(zerolog.Nop())
	relay := NewRelay(nil, hub, "", zerolog.Nop())
	tokens := tokenTable{"student": {UserID: f.student, Role: auth.RoleStudent}}

	server := httptest.NewServer(NewWSHandler(tokens, hub, f.svc, nil, nil, zerolog.Nop()))
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial(wsURL(server, "student"), nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return hub.Connected(f.student) }, time.Second, 5*time.Millisecond)

	_, err = f.svc.Shutdown(context.Background(), f.input())
	require.NoError(t, err)
	require.Len(t, f.publisher.cmds, 1)
	data, err := json.Marshal(f.publisher.cmds[0])
	require.NoError(t, err)
	relay.forward(string(data))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed ws.Message
	require.NoError(t, client.ReadJSON(&pushed))
	assert.Equal(t, ws.TypeSessionShutdown, pushed.Type)

	req, err := ws.NewMessage(ws.TypeRequestState, ws.RequestStatePayload{ExamID: f.exam.String()})
	require.NoError(t, err)
	req.RequestID = "r1"
	require.NoError(t, client.WriteJSON(req))

	var state ws.Message
	require.NoError(t, client.ReadJSON(&state))
	assert.Equal(t, ws.TypeSessionState, state.Type)
	assert.Equal(t, "r1", state.RequestID)
	var payload ws.SessionStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &payload))
	assert.Equal(t, StatusShutdown, payload.Status)

	require.NoError(t, client.WriteJSON(ws.Message{Type: "dance"}))
	var unknown ws.Message
	require.NoError(t, client.ReadJSON(&unknown))
	assert.Equal(t, ws.TypeError, unknown.Type)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return !hub.Connected(f.student) }, time.Second, 5*time.Millisecond)
	server.Close()
}

func TestWSHandler_StateLookupFailure(t *testing.T) {
	h := NewWSHandler(tokenTable{}, ws.NewHub(zerolog.Nop()), failingSessions{}, nil, nil, zerolog.Nop())
	req, err := ws.NewMessage(ws.TypeRequestState, ws.RequestStatePayload{ExamID: uuid.NewString()})
	require.NoError(t, err)

	reply := h.handleMessage(context.Background(), uuid.New(), req)
	assert.Equal(t, ws.TypeError, reply.Type)
	assert.Contains(t, string(reply.Payload), "session_fetch_failed")

	reply = h.handleMessage(context.Background(), uuid.New(), ws.Message{Type: ws.TypePing})
	assert.Equal(t, ws.TypePong, reply.Type)
}

type failingSessions struct{}

func (failingSessions) State(context.Context, uuid.UUID, uuid.UUID) (Session, error) {
	return Session{}, errors.New("redis down")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000/"})

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(r))
}
