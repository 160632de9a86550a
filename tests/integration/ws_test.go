//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

func TestSessionSocketPingAndState(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	student := newAccount(t, baseURL)

	conn := dialSessionWS(t, baseURL, student.AccessToken)
	defer conn.Close()

	send(t, conn, wsmsg.Message{Type: wsmsg.TypePing, RequestID: "p1"})
	pong := readMessage(t, conn)
	if pong.Type != wsmsg.TypePong || pong.RequestID != "p1" {
		t.Fatalf("unexpected reply to ping: %+v", pong)
	}

	examID := "00000000-0000-0000-0000-0000000000aa"
	payload, _ := json.Marshal(wsmsg.RequestStatePayload{ExamID: examID})
	send(t, conn, wsmsg.Message{Type: wsmsg.TypeRequestState, Payload: payload})

	state := readMessage(t, conn)
	if state.Type != wsmsg.TypeSessionState {
		t.Fatalf("expected session_state, got %s", state.Type)
	}
	var p wsmsg.SessionStatePayload
	if err := json.Unmarshal(state.Payload, &p); err != nil {
		t.Fatalf("decode session_state: %v", err)
	}
	if p.ExamID != examID || p.Status != "active" {
		t.Fatalf("unexpected state payload: %+v", p)
	}
}

func TestSessionSocketRejectsInstructors(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	instructor := newInstructor(t, baseURL, connectDB(t))

	u, _ := url.Parse(baseURL)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws/sessions"
	u.RawQuery = url.Values{"token": {instructor.AccessToken}}.Encode()

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatal("expected dial to fail for an instructor token")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg wsmsg.Message) {
	t.Helper()

	_ = conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write websocket: %v", err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsmsg.Message {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsmsg.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return msg
}
