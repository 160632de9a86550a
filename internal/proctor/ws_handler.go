package proctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/logging"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
	httperrors "github.com/gokatarajesh/exam-proctor/pkg/http/errors"
	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

type sessionReader interface {
	State(ctx context.Context, examID, studentID uuid.UUID) (Session, error)
}

// WSHandler upgrades authenticated students onto the session socket.
type WSHandler struct {
	tokens   auth.TokenValidator
	hub      *ws.Hub
	sessions sessionReader
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewWSHandler creates the student WebSocket endpoint. allowedOrigins empty allows any origin.
func NewWSHandler(tokens auth.TokenValidator, hub *ws.Hub, sessions sessionReader, allowedOrigins []string, m *metrics.Metrics, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		tokens:   tokens,
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		metrics: m,
		logger:  logger.With().Str("component", "proctor_ws").Logger(),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients such as the terminal exam client
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP handles GET /ws/sessions?token=...
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}
	if claims.Role != auth.RoleStudent {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Session socket is for students")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.handleConnection(r.Context(), conn, claims.UserID)
}

func (h *WSHandler) handleConnection(ctx context.Context, conn *websocket.Conn, studentID uuid.UUID) {
	logger := logging.ForRequest(ctx, h.logger).With().Str("student_id", studentID.String()).Logger()
	wsConn := ws.NewConnection(conn, logger)
	h.hub.RegisterConnection(studentID, wsConn)
	h.metrics.WSConnected(1)
	defer func() {
		h.hub.UnregisterConnection(studentID, wsConn)
		h.metrics.WSConnected(-1)
	}()

	go wsConn.WritePump()

	// the request context ends with the hijacked connection, so reads use a detached one
	ctx = context.WithoutCancel(ctx)
	wsConn.ReadPump(func(msg ws.Message) error {
		reply := h.handleMessage(ctx, studentID, msg)
		reply.RequestID = msg.RequestID
		return wsConn.Send(reply)
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, studentID uuid.UUID, msg ws.Message) ws.Message {
	switch msg.Type {
	case ws.TypePing:
		return ws.Message{Type: ws.TypePong}
	case ws.TypeRequestState:
		var req ws.RequestStatePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return errorMessage(httperrors.ErrCodeInvalidPayload, "Invalid request_state payload")
		}
		examID, err := uuid.Parse(req.ExamID)
		if err != nil {
			return errorMessage(httperrors.ErrCodeInvalidID, "Invalid exam id")
		}

		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		sess, err := h.sessions.State(lookupCtx, examID, studentID)
		if err != nil {
			reqLog := logging.ForRequest(ctx, h.logger)
			reqLog.Error().Err(err).Msg("session state lookup failed")
			return errorMessage(httperrors.ErrCodeSessionFetchFailed, "Could not load session state")
		}

		out, err := ws.NewMessage(ws.TypeSessionState, ws.SessionStatePayload{
			ExamID:    sess.ExamID.String(),
			Status:    sess.Status,
			UpdatedAt: formatTime(sess.UpdatedAt),
		})
		if err != nil {
			return errorMessage(httperrors.ErrCodeInternalError, "Could not encode session state")
		}
		return out
	default:
		return errorMessage(httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func errorMessage(code, message string) ws.Message {
	msg, _ := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	return msg
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
