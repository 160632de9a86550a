package ws

import "encoding/json"

// MessageType constants for the session WebSocket protocol.
const (
	// Client -> Server
	TypePing         = "ping"
	TypeRequestState = "request_state"

	// Server -> Client
	TypePong            = "pong"
	TypeSessionShutdown = "session_shutdown"
	TypeSessionPowerOn  = "session_poweron"
	TypeSessionState    = "session_state"
	TypeError           = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client messages (incoming)

type RequestStatePayload struct {
	ExamID string `json:"exam_id"`
}

// Server messages (outgoing)

type SessionCommandPayload struct {
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	IssuedBy  string `json:"issued_by,omitempty"`
	IssuedAt  string `json:"issued_at"`
}

type SessionStatePayload struct {
	ExamID    string `json:"exam_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
