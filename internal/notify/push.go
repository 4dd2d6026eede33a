package notify

import (
    "context"
    "encoding/json"

    "github.com/redis/go-redis/v9"
)

// Push broadcasts real-time events to connected clients through a Redis
// pub/sub channel.  A socket gateway subscribed to the channel fans the
// envelope out to its websocket room; this process only ever publishes.
type Push struct {
    rdb     *redis.Client
    channel string
}

// NewPush returns a Push bound to the given channel (room) name.  A nil
// client is allowed and turns every publish into a no-op, mirroring how
// the rest of the application degrades when Redis is unavailable.
func NewPush(rdb *redis.Client, channel string) *Push {
    return &Push{rdb: rdb, channel: channel}
}

// envelope is the wire format consumed by the socket gateway: the event
// name routes the payload to the right client-side handler.
type envelope struct {
    Event string      `json:"event"`
    Data  interface{} `json:"data"`
}

// Publish sends one event to the room.  Returns nil without doing
// anything when no Redis client is configured.
func (p *Push) Publish(ctx context.Context, event string, data interface{}) error {
    if p == nil || p.rdb == nil {
        return nil
    }
    body, err := json.Marshal(envelope{Event: event, Data: data})
    if err != nil {
        return err
    }
    return p.rdb.Publish(ctx, p.channel, body).Err()
}
