package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

type userSender interface {
	SendToUser(userID uuid.UUID, msg ws.Message) error
}

// Relay publishes session commands on Redis Pub/Sub and forwards the ones it
// receives to students connected to this instance.
type Relay struct {
	redis   *redis.Client
	hub     userSender
	channel string
	logger  zerolog.Logger
}

// NewRelay creates a Pub/Sub powered command relay.
func NewRelay(redis *redis.Client, hub userSender, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = "proctor:commands"
	}
	return &Relay{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "proctor_relay").Logger(),
	}
}

// Publish sends cmd to every API instance.
func (r *Relay) Publish(ctx context.Context, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if err := r.redis.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// Run subscribes to the command channel and blocks until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.redis == nil || r.hub == nil {
		return nil
	}

	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := make(chan string)
	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			select {
			case ch <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return r.consume(ctx, ch)
}

func (r *Relay) consume(ctx context.Context, payloads <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-payloads:
			if !ok {
				return nil
			}
			r.forward(payload)
		}
	}
}

func (r *Relay) forward(payload string) {
	var cmd Command
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode session command")
		return
	}

	msg, err := commandMessage(cmd)
	if err != nil {
		r.logger.Warn().Err(err).Str("action", cmd.Action).Msg("dropping session command")
		return
	}

	err = r.hub.SendToUser(cmd.StudentID, msg)
	switch {
	case err == nil:
		r.logger.Debug().Str("student_id", cmd.StudentID.String()).Str("type", msg.Type).Msg("session command delivered")
	case errors.Is(err, ws.ErrConnectionNotFound):
		// student is offline or connected to another instance
	default:
		r.logger.Warn().Err(err).Str("student_id", cmd.StudentID.String()).Msg("failed to deliver session command")
	}
}

func commandMessage(cmd Command) (ws.Message, error) {
	var msgType string
	switch cmd.Action {
	case ActionShutdown:
		msgType = ws.TypeSessionShutdown
	case ActionPowerOn:
		msgType = ws.TypeSessionPowerOn
	default:
		return ws.Message{}, ErrUnknownAction
	}

	status, _ := statusFor(cmd.Action)
	return ws.NewMessage(msgType, ws.SessionCommandPayload{
		ExamID:    cmd.ExamID.String(),
		StudentID: cmd.StudentID.String(),
		Status:    status,
		IssuedBy:  cmd.IssuedBy.String(),
		IssuedAt:  cmd.IssuedAt.UTC().Format(time.RFC3339),
	})
}
