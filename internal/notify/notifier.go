package notify

import (
    "context"
    "log"
    "strings"
    "time"
)

// publishTimeout bounds each best-effort delivery attempt.  Publishes
// are not tied to the caller's request context on purpose: the state
// change has already committed by the time a notification goes out, so
// a cancelled request must not abort the fan-out midway.
const publishTimeout = 5 * time.Second

// Fanout drives both notification sinks for every lifecycle event: a
// topic publish on the bus and a room broadcast on the push channel.
// The two sinks are independent; partial delivery is an accepted
// outcome.  All failures are logged and swallowed.
type Fanout struct {
    Bus  *Bus
    Push *Push
}

// NewFanout builds a Fanout.  Either sink may be nil, in which case it
// is skipped.
func NewFanout(bus *Bus, push *Push) *Fanout {
    return &Fanout{Bus: bus, Push: push}
}

// Notify publishes one lifecycle event to both sinks, fire-and-forget.
// The bus routing key follows the turno.* scheme; the push event name
// is the same key under the ticket.* prefix (turno.status.SERVED
// becomes ticket.status.SERVED).
func (f *Fanout) Notify(topic string, payload interface{}) {
    ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
    defer cancel()

    if f.Bus != nil {
        if err := f.Bus.Publish(ctx, topic, payload); err != nil {
            log.Printf("notify: bus publish %q failed: %v", topic, err)
        }
    }
    if f.Push != nil {
        event := "ticket" + strings.TrimPrefix(topic, "turno")
        if err := f.Push.Publish(ctx, event, payload); err != nil {
            log.Printf("notify: push %q failed: %v", event, err)
        }
    }
}

// Broadcast sends an event to the push channel only.  Used for
// informational payloads, like the current waiting list, that have no
// downstream bus consumers.
func (f *Fanout) Broadcast(event string, payload interface{}) {
    if f.Push == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
    defer cancel()
    if err := f.Push.Publish(ctx, event, payload); err != nil {
        log.Printf("notify: push %q failed: %v", event, err)
    }
}

// Enqueue places a payload on a named durable queue, fire-and-forget.
// The dispatch engine uses this to feed the per-type request queues; a
// failure here only degrades the out-of-band assignment path, so it is
// logged and swallowed like every other notification error.
func (f *Fanout) Enqueue(queue string, payload interface{}) {
    if f.Bus == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
    defer cancel()
    if err := f.Bus.Enqueue(ctx, queue, payload); err != nil {
        log.Printf("notify: enqueue to %q failed: %v", queue, err)
    }
}
