package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fleet-alerts-service/internal/model"
)

const alertChannel = "alerts:events"

// Event is one change on the alert ledger, fanned out to every connected
// client. Unread rides along so bells update without an extra round trip.
type Event struct {
	Action string      `json:"action"` // "insert" or "ack"
	Alert  model.Alert `json:"alert"`
	Unread int64       `json:"unread"`
}

// Publisher pushes alert change events onto the Redis bus that every running
// instance's hub subscribes to.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) PublishAlertEvent(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	if err := p.rdb.Publish(ctx, alertChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}
