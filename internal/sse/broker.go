package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/interview-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types published while an interview runs.
const (
	EventTurnAnswered     = "turn_answered"
	EventTurnTimeout      = "turn_timeout"
	EventSessionCompleted = "session_completed"
	EventSessionAbandoned = "session_abandoned"
	EventProctor          = "proctor_event"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}

type Client struct {
	SessionID string
	Events    chan Event
	Done      chan struct{}
}

type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // sessionID -> set of monitors
	stops   map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		stops:   make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe registers a monitor for one session. The redis subscription is
// confirmed before returning, so events published afterwards are delivered.
func (b *Broker) Subscribe(ctx context.Context, sessionID string) (*Client, error) {
	client := &Client{
		SessionID: sessionID,
		Events:    make(chan Event, 100),
		Done:      make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clients[sessionID] == nil {
		channel := redisclient.SessionEventChannel(sessionID)
		pubsub := b.redis.Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return nil, err
		}

		subCtx, stop := context.WithCancel(b.ctx)
		b.clients[sessionID] = make(map[*Client]bool)
		b.stops[sessionID] = stop
		go b.forward(subCtx, sessionID, pubsub)
	}
	b.clients[sessionID][client] = true

	log.Info().
		Str("sessionId", sessionID).
		Int("clientCount", len(b.clients[sessionID])).
		Msg("session monitor subscribed")

	return client, nil
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.SessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Done)

	if len(clients) == 0 {
		delete(b.clients, client.SessionID)
		if stop, ok := b.stops[client.SessionID]; ok {
			stop()
			delete(b.stops, client.SessionID)
		}
	}

	log.Info().
		Str("sessionId", client.SessionID).
		Int("clientCount", len(clients)).
		Msg("session monitor unsubscribed")
}

// Publish fans an event out to every monitor of the session, on any instance.
func (b *Broker) Publish(ctx context.Context, sessionID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.SessionEventChannel(sessionID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) forward(ctx context.Context, sessionID string, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(sessionID, event)
		}
	}
}

func (b *Broker) broadcast(sessionID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[sessionID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("sessionId", sessionID).
				Msg("monitor event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.stops = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[sessionID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
