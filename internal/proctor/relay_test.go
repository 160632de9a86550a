package proctor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]ws.Message
	err  error
}

func (f *fakeSender) SendToUser(userID uuid.UUID, msg ws.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[uuid.UUID][]ws.Message{}
	}
	f.sent[userID] = append(f.sent[userID], msg)
	return nil
}

func (f *fakeSender) messages(userID uuid.UUID) []ws.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ws.Message(nil), f.sent[userID]...)
}

func encode(t *testing.T, cmd Command) string {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return string(data)
}

func TestRelay_ConsumeForwardsCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sender := &fakeSender{}
	relay := NewRelay(nil, sender, "", zerolog.Nop())
	student := uuid.New()

	payloads := make(chan string, 4)
	payloads <- encode(t, Command{Action: ActionShutdown, ExamID: uuid.New(), StudentID: student, IssuedAt: time.Now()})
	payloads <- "{not json"
	payloads <- encode(t, Command{Action: "reboot", StudentID: student})
	payloads <- encode(t, Command{Action: ActionPowerOn, ExamID: uuid.New(), StudentID: student, IssuedAt: time.Now()})
	close(payloads)

	require.NoError(t, relay.consume(context.Background(), payloads))

	got := sender.messages(student)
	require.Len(t, got, 2)
	assert.Equal(t, ws.TypeSessionShutdown, got[0].Type)
	assert.Equal(t, ws.TypeSessionPowerOn, got[1].Type)

	var payload ws.SessionCommandPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.Equal(t, StatusShutdown, payload.Status)
	assert.Equal(t, student.String(), payload.StudentID)
}

func TestRelay_ConsumeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	relay := NewRelay(nil, &fakeSender{}, "", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.consume(ctx, make(chan string)) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after cancel")
	}
}

func TestRelay_OfflineStudentIsNotAnError(t *testing.T) {
	sender := &fakeSender{err: ws.ErrConnectionNotFound}
	relay := NewRelay(nil, sender, "", zerolog.Nop())

	assert.NotPanics(t, func() {
		relay.forward(encode(t, Command{Action: ActionShutdown, StudentID: uuid.New()}))
	})
}

func TestRelay_RunWithoutRedisReturns(t *testing.T) {
	relay := NewRelay(nil, &fakeSender{}, "", zerolog.Nop())
	assert.NoError(t, relay.Run(context.Background()))
}
