package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/database"
	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	redisclient "github.com/openclaw/interview-server-go/internal/redis"
	"github.com/openclaw/interview-server-go/internal/sse"
	"github.com/openclaw/interview-server-go/internal/storage"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// AudioStorage is satisfied by *storage.AudioStore.
type AudioStorage interface {
	Save(sessionID string, turnIdx int, data []byte) (storage.StoredAudio, error)
	Remove(filename string) error
}

// EventPublisher is satisfied by *sse.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID string, event sse.Event) error
}

// SessionLocker serializes state-changing requests for one session.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

type redisLocker struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redisclient.Client, ttl time.Duration) SessionLocker {
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	lock, err := l.client.AcquireSessionLock(ctx, sessionID, l.ttl)
	if errors.Is(err, redisclient.ErrLockHeld) {
		return nil, apperrors.SubmissionInProgress()
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to release session lock")
		}
	}, nil
}

func publish(ctx context.Context, events EventPublisher, sessionID, eventType string, payload any) {
	if events == nil {
		return
	}
	event, err := sse.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to encode monitor event")
		return
	}
	if err := events.Publish(ctx, sessionID, event); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Str("type", eventType).Msg("failed to publish monitor event")
	}
}
