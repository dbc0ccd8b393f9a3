package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const BroadcastChannel = "broadcast"

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func encode(eventType string, payload any) ([]byte, error) {
	return json.Marshal(envelope{Type: eventType, Payload: payload})
}

// Broadcaster publishes events to every surface. With Redis configured the
// event goes through the broadcast channel so every replica's hub sees it;
// without Redis it goes straight to the local hub.
type Broadcaster struct {
	hub *Hub
	rdb *redis.Client
}

func NewBroadcaster(hub *Hub, rdb *redis.Client) *Broadcaster {
	return &Broadcaster{hub: hub, rdb: rdb}
}

func (b *Broadcaster) Publish(ctx context.Context, eventType string, payload any) {
	data, err := encode(eventType, payload)
	if err != nil {
		log.WithField("type", eventType).Errorf("realtime: encode event: %v", err)
		return
	}

	if b.rdb == nil {
		b.hub.Broadcast(data)
		return
	}
	if err := b.rdb.Publish(ctx, BroadcastChannel, string(data)).Err(); err != nil {
		log.WithField("type", eventType).Errorf("realtime: publish error: %v", err)
	}
}

// RunRedisSubscriber relays the broadcast channel into the hub until ctx is
// cancelled. It returns immediately when Redis is not configured.
func (b *Broadcaster) RunRedisSubscriber(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, BroadcastChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
