package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

// WatchSession connects to the student session socket and calls onStatus
// with every status reported for examID, starting with the current one.
// It blocks until ctx is done or the connection drops.
func (c *Client) WatchSession(ctx context.Context, examID uuid.UUID, onStatus func(status string)) error {
	endpoint, err := c.socketURL("/ws/sessions")
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Code: "ws_rejected", Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("dial session socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req, err := ws.NewMessage(ws.TypeRequestState, ws.RequestStatePayload{ExamID: examID.String()})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("request session state: %w", err)
	}

	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read session socket: %w", err)
		}

		switch msg.Type {
		case ws.TypeSessionShutdown, ws.TypeSessionPowerOn:
			var p ws.SessionCommandPayload
			if json.Unmarshal(msg.Payload, &p) == nil && p.ExamID == examID.String() {
				onStatus(p.Status)
			}
		case ws.TypeSessionState:
			var p ws.SessionStatePayload
			if json.Unmarshal(msg.Payload, &p) == nil && p.ExamID == examID.String() {
				onStatus(p.Status)
			}
		case ws.TypeError:
			var p ws.ErrorPayload
			_ = json.Unmarshal(msg.Payload, &p)
			c.logger.Warn().Str("code", p.Code).Str("message", p.Message).Msg("session socket error")
		}
	}
}

func (c *Client) socketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
