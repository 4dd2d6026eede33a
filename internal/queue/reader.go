package queue

import (
    "context"
    "encoding/json"
    "errors"
    "log"

    "github.com/iliyamo/turnos/internal/dispatch"
    "github.com/iliyamo/turnos/internal/model"
    "github.com/iliyamo/turnos/internal/notify"
    "github.com/iliyamo/turnos/internal/repository"
)

// ErrMalformedMessage is returned when a request queue entry cannot be
// parsed.  The entry is discarded permanently before this is returned.
var ErrMalformedMessage = errors.New("malformed queue message")

// Reader implements the type-partitioned out-of-band assignment path.
// Each created ticket leaves one entry on its type's durable request
// queue, so popping the queue yields tickets in strict per-type arrival
// order — the FIFO-within-type guarantee that AssignNext alone does not
// provide.
type Reader struct {
    bus    *notify.Bus
    engine *dispatch.Engine
}

// NewReader returns a Reader that pops from the shared bus connection
// and assigns through the given engine.
func NewReader(bus *notify.Bus, engine *dispatch.Engine) *Reader {
    return &Reader{bus: bus, engine: engine}
}

// PullAndAssign pops one pending entry from the type's request queue
// and assigns the referenced ticket to the window.  Returns (nil, nil)
// when the queue is empty.  The message is acknowledged only after the
// store update and notification attempt complete; any failure in
// between nacks without requeue — a deliberate poison-message policy
// that drops malformed or stale entries instead of retrying them
// forever.
func (r *Reader) PullAndAssign(ctx context.Context, windowID uint64, typ model.TicketType) (*model.Ticket, error) {
    queue := dispatch.RequestQueue(typ)
    d, ok, err := r.bus.Get(queue)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, nil
    }

    var msg requestMessage
    if err := json.Unmarshal(d.Body, &msg); err != nil || msg.ID == 0 {
        log.Printf("queue: discarding malformed message on %s: %s", queue, d.Body)
        _ = d.Nack(false, false)
        return nil, ErrMalformedMessage
    }

    t, err := r.engine.AssignTicket(ctx, msg.ID, windowID)
    if err != nil {
        // Stale entries (ticket already claimed, finished or gone) and
        // store failures alike drop the message for good.
        if errors.Is(err, repository.ErrTicketNotWaiting) || errors.Is(err, repository.ErrTicketNotFound) {
            log.Printf("queue: discarding stale entry for ticket %d on %s: %v", msg.ID, queue, err)
        } else {
            log.Printf("queue: assign from %s failed for ticket %d: %v", queue, msg.ID, err)
        }
        _ = d.Nack(false, false)
        return nil, err
    }

    if err := d.Ack(false); err != nil {
        // The assignment is committed; a failed ack only risks a
        // duplicate delivery, which ClaimByID will reject as stale.
        log.Printf("queue: ack failed for ticket %d on %s: %v", msg.ID, queue, err)
    }
    return t, nil
}
