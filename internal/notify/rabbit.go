// Package notify implements the outbound side of the dispatch service:
// topic publishes on RabbitMQ, room-scoped real-time pushes on Redis
// pub/sub, and the Telegram relay used by the notification worker.
// Everything here is best-effort by contract; a failed delivery must
// never undo a committed state change.
package notify

import (
    "context"
    "encoding/json"
    "log"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "golang.org/x/sync/singleflight"
)

// dialTimeout bounds the TCP connect and the AMQP handshake of each
// lazy (re)connection attempt.  Publishers run on request goroutines,
// so an unresponsive broker must fail within the delivery budget
// instead of hanging on the library's default dial.
const dialTimeout = 5 * time.Second

// Bus owns the shared RabbitMQ connection and channel.  The connection
// is established lazily on first publish and cached; when the broker
// closes it, the handle is discarded and the next publish dials again.
// A singleflight group collapses concurrent (re)connection attempts so
// racing publishers never create duplicate connections.
type Bus struct {
    url      string
    exchange string

    mu   sync.Mutex
    sf   singleflight.Group
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewBus returns a Bus that will publish to the given topic exchange.
// No connection is opened until the first publish.
func NewBus(url, exchange string) *Bus {
    return &Bus{url: url, exchange: exchange}
}

// Channel returns the cached channel, dialing the broker and declaring
// the topic exchange on first use.  Safe for concurrent callers.
func (b *Bus) Channel() (*amqp.Channel, error) {
    b.mu.Lock()
    ch := b.ch
    b.mu.Unlock()
    if ch != nil && !ch.IsClosed() {
        return ch, nil
    }

    v, err, _ := b.sf.Do("connect", func() (interface{}, error) {
        // Re-check under the lock: another caller may have finished
        // connecting between our fast-path check and entering the group.
        b.mu.Lock()
        if b.ch != nil && !b.ch.IsClosed() {
            ch := b.ch
            b.mu.Unlock()
            return ch, nil
        }
        b.mu.Unlock()

        log.Printf("rabbit: connecting to %s", b.url)
        conn, err := amqp.DialConfig(b.url, amqp.Config{
            Dial: amqp.DefaultDial(dialTimeout),
        })
        if err != nil {
            return nil, err
        }
        ch, err := conn.Channel()
        if err != nil {
            _ = conn.Close()
            return nil, err
        }
        if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
            _ = conn.Close()
            return nil, err
        }

        closes := make(chan *amqp.Error, 1)
        conn.NotifyClose(closes)
        go func() {
            if e := <-closes; e != nil {
                log.Printf("rabbit: connection closed: %v", e)
            }
            b.mu.Lock()
            b.conn, b.ch = nil, nil
            b.mu.Unlock()
        }()

        b.mu.Lock()
        b.conn, b.ch = conn, ch
        b.mu.Unlock()
        log.Printf("rabbit: channel ready, exchange=%q", b.exchange)
        return ch, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(*amqp.Channel), nil
}

// Publish sends a JSON payload to the topic exchange under the given
// routing key.  Messages are marked persistent so they survive broker
// restarts.
func (b *Bus) Publish(ctx context.Context, routingKey string, payload interface{}) error {
    ch, err := b.Channel()
    if err != nil {
        return err
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }
    return ch.PublishWithContext(ctx,
        b.exchange, // exchange
        routingKey, // routing key
        false,      // mandatory
        false,      // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
}

// Enqueue publishes a JSON payload directly to a named durable queue
// through the default exchange, declaring the queue first so the call
// is safe before any consumer exists.  Used to feed the per-type
// request queues that back the out-of-band assignment path.
func (b *Bus) Enqueue(ctx context.Context, queue string, payload interface{}) error {
    ch, err := b.Channel()
    if err != nil {
        return err
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return err
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }
    return ch.PublishWithContext(ctx,
        "",    // default exchange
        queue, // routing key = queue name
        false, // mandatory
        false, // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
}

// Get pops one message from a durable queue without auto-ack.  The
// returned delivery stays unacknowledged until the caller acks or
// nacks it.  ok is false when the queue is empty.
func (b *Bus) Get(queue string) (amqp.Delivery, bool, error) {
    ch, err := b.Channel()
    if err != nil {
        return amqp.Delivery{}, false, err
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return amqp.Delivery{}, false, err
    }
    return ch.Get(queue, false)
}

// Close tears down the cached channel and connection.  Used on
// shutdown; subsequent publishes would lazily reconnect.
func (b *Bus) Close() {
    b.mu.Lock()
    conn, ch := b.conn, b.ch
    b.conn, b.ch = nil, nil
    b.mu.Unlock()
    if ch != nil {
        _ = ch.Close()
    }
    if conn != nil {
        _ = conn.Close()
    }
}
