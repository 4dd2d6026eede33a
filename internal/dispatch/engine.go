// Package dispatch implements the ticket dispatch and lifecycle engine:
// ticket creation with generated codes, next-ticket assignment to
// service windows, state transitions with an audit trail, and
// best-effort fan-out of every transition to the message bus and the
// real-time push channel.
package dispatch

import (
    "context"
    "errors"
    "time"

    "github.com/iliyamo/turnos/internal/model"
)

// Store is the transactional persistence abstraction the engine drives.
// Implementations must guarantee that the two Claim operations are
// atomic with respect to concurrent claims: no two callers may ever
// receive the same WAITING ticket.  Every mutation writes its audit
// event in the same transaction as the ticket update.
type Store interface {
    CountCreatedBetween(ctx context.Context, typ model.TicketType, start, end time.Time) (int, error)
    Create(ctx context.Context, typ model.TicketType, code, note string) (*model.Ticket, error)
    GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
    ClaimOldestWaiting(ctx context.Context, windowID uint64, note string) (*model.Ticket, error)
    ClaimByID(ctx context.Context, ticketID, windowID uint64, note string) (*model.Ticket, error)
    UpdateStatus(ctx context.Context, id uint64, target model.TicketStatus, byUser *uint64, note string) (*model.Ticket, model.TicketStatus, error)
    ListWaiting(ctx context.Context) ([]model.Ticket, error)
}

// Notifier receives lifecycle events after the store has committed.
// All three methods are fire-and-forget: implementations log and
// swallow their own failures and must never block the caller on retry.
type Notifier interface {
    // Notify publishes to the bus (routing key = topic) and mirrors
    // the event onto the push channel.
    Notify(topic string, payload interface{})
    // Broadcast sends to the push channel only.
    Broadcast(event string, payload interface{})
    // Enqueue places a payload on a named durable work queue.
    Enqueue(queue string, payload interface{})
}

// ErrInvalidTransition is returned by ChangeState for target states
// outside {SERVED, DONE, CANCELLED}.
var ErrInvalidTransition = errors.New("invalid target state")

// RequestQueue names the durable per-type queue that feeds the
// out-of-band assignment path.
func RequestQueue(typ model.TicketType) string {
    return "tickets.requests." + string(typ)
}

// Engine orchestrates the code generator, the store and the notifier.
// It is safe for concurrent use: all cross-request mutual exclusion
// lives in the store's claim operations.
type Engine struct {
    store    Store
    notifier Notifier
    now      func() time.Time
}

// New returns an Engine bound to the given store and notifier.
func New(store Store, notifier Notifier) *Engine {
    return &Engine{store: store, notifier: notifier, now: time.Now}
}

// CreateTicket generates a code for the type, persists a WAITING ticket
// with its creation audit event, enqueues the ticket on its per-type
// request queue and announces turno.created plus turno.status.WAITING.
// Creation only fails when the store does.
func (e *Engine) CreateTicket(ctx context.Context, typ model.TicketType) (*model.Ticket, error) {
    code, err := e.generateCode(ctx, typ)
    if err != nil {
        return nil, err
    }
    t, err := e.store.Create(ctx, typ, code, "ticket creado")
    if err != nil {
        return nil, err
    }

    ts := e.now().UTC().Format(time.RFC3339)
    e.notifier.Notify("turno.created", map[string]interface{}{
        "id":     t.ID,
        "tipo":   t.Type,
        "codigo": t.Code,
        "estado": t.Status,
        "ts":     ts,
    })
    e.notifier.Notify("turno.status.WAITING", map[string]interface{}{
        "id":     t.ID,
        "tipo":   t.Type,
        "codigo": t.Code,
        "status": model.StatusWaiting,
        "ts":     ts,
    })
    e.notifier.Enqueue(RequestQueue(typ), map[string]interface{}{"id": t.ID})
    return t, nil
}

// AssignNext claims the oldest WAITING ticket across all types for the
// given window and moves it to CALLING.  Returns (nil, nil) when the
// queue is empty; that is an ordinary outcome, not an error.  FIFO
// within a type is only guaranteed by the queue-backed path
// (PullAndAssign); this operation orders by id over the whole set.
func (e *Engine) AssignNext(ctx context.Context, windowID uint64) (*model.Ticket, error) {
    t, err := e.store.ClaimOldestWaiting(ctx, windowID, "asignado a ventanilla")
    if err != nil {
        return nil, err
    }
    if t == nil {
        return nil, nil
    }
    e.notifyCalling(t)
    return t, nil
}

// AssignTicket applies the WAITING -> CALLING claim to one specific
// ticket.  The queue reader calls this with ids recovered from the
// per-type request queues; the store rejects tickets that are no
// longer WAITING so stale queue entries cannot double-assign.
func (e *Engine) AssignTicket(ctx context.Context, ticketID, windowID uint64) (*model.Ticket, error) {
    t, err := e.store.ClaimByID(ctx, ticketID, windowID, "asignado a ventanilla")
    if err != nil {
        return nil, err
    }
    e.notifyCalling(t)
    return t, nil
}

func (e *Engine) notifyCalling(t *model.Ticket) {
    e.notifier.Notify("turno.calling", map[string]interface{}{
        "id":         t.ID,
        "codigo":     t.Code,
        "ventanilla": t.Window,
        "llamado_el": t.CalledAt,
    })
    e.notifier.Notify("turno.status.CALLING", map[string]interface{}{
        "id":     t.ID,
        "codigo": t.Code,
        "status": model.StatusCalling,
        "ts":     e.now().UTC().Format(time.RFC3339),
    })
}

// ChangeState moves a ticket to SERVED, DONE or CANCELLED, stamping the
// matching timestamp and the acting operator.  Any other target yields
// ErrInvalidTransition before touching the store.  The ticket's current
// state is deliberately not checked: an operator may force-finish a
// ticket that never reached CALLING.  Callers wanting strict edges can
// pre-check with model.CanTransition.
func (e *Engine) ChangeState(ctx context.Context, id uint64, target model.TicketStatus, operatorID *uint64) (*model.Ticket, error) {
    switch target {
    case model.StatusServed, model.StatusDone, model.StatusCancelled:
    default:
        return nil, ErrInvalidTransition
    }
    t, from, err := e.store.UpdateStatus(ctx, id, target, operatorID, "cambio de estado")
    if err != nil {
        return nil, err
    }

    e.notifier.Notify("turno.status.changed", map[string]interface{}{
        "id":             t.ID,
        "codigo":         t.Code,
        "de":             from,
        "a":              target,
        "actualizado_el": t.UpdatedAt,
    })
    e.notifier.Notify("turno.status."+string(target), map[string]interface{}{
        "id":     t.ID,
        "codigo": t.Code,
        "status": target,
        "ts":     e.now().UTC().Format(time.RFC3339),
    })
    return t, nil
}

// ListWaiting returns the WAITING tickets in creation order and
// broadcasts the current list to the push channel so wall displays
// refresh without polling.
func (e *Engine) ListWaiting(ctx context.Context) ([]model.Ticket, error) {
    tickets, err := e.store.ListWaiting(ctx)
    if err != nil {
        return nil, err
    }

    summary := make([]map[string]interface{}, 0, len(tickets))
    for _, t := range tickets {
        summary = append(summary, map[string]interface{}{
            "id":        t.ID,
            "tipo":      t.Type,
            "codigo":    t.Code,
            "creado_el": t.CreatedAt,
        })
    }
    e.notifier.Broadcast("tickets.waiting.list", summary)
    return tickets, nil
}
