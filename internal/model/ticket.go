package model

import "time"

// TicketType partitions tickets into independent queues.  Each type has
// its own per-minute code sequence and its own durable request queue on
// the broker, so a window pulling type "C" never competes with type "V"
// traffic.
type TicketType string

const (
    TypeC TicketType = "C" // turnos.tipo = 'C' (default walk-in queue)
    TypeV TicketType = "V" // turnos.tipo = 'V' (priority/alternate queue)
)

// ParseTicketType validates a raw type value.  Unknown values return
// false rather than an error so callers can choose their own fallback.
func ParseTicketType(s string) (TicketType, bool) {
    switch TicketType(s) {
    case TypeC, TypeV:
        return TicketType(s), true
    }
    return "", false
}

// TicketStatus is the closed set of lifecycle states a ticket moves
// through.  WAITING is the sole initial state; SERVED, DONE and
// CANCELLED are terminal.
type TicketStatus string

const (
    StatusWaiting   TicketStatus = "WAITING"   // in queue, not yet assigned
    StatusCalling   TicketStatus = "CALLING"   // assigned to a window, being called
    StatusServed    TicketStatus = "SERVED"    // attended at the window
    StatusDone      TicketStatus = "DONE"      // fully completed
    StatusCancelled TicketStatus = "CANCELLED" // abandoned or voided
)

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(s string) (TicketStatus, bool) {
    switch TicketStatus(s) {
    case StatusWaiting, StatusCalling, StatusServed, StatusDone, StatusCancelled:
        return TicketStatus(s), true
    }
    return "", false
}

// Terminal reports whether no further transition may leave this status.
func (s TicketStatus) Terminal() bool {
    switch s {
    case StatusServed, StatusDone, StatusCancelled:
        return true
    }
    return false
}

// transitions is the canonical edge set of the ticket state machine.
// Note that the dispatch engine does not consult this table when an
// operator finishes a ticket: a WAITING ticket may be moved straight to
// SERVED.  The table is exposed through CanTransition for callers that
// want to layer strict validation on top.
var transitions = map[TicketStatus][]TicketStatus{
    StatusWaiting: {StatusCalling, StatusCancelled},
    StatusCalling: {StatusServed, StatusDone, StatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the state
// machine.  Terminal states have no outgoing edges.
func CanTransition(from, to TicketStatus) bool {
    for _, t := range transitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// Ticket represents one customer's place in a queue as stored in the
// `turnos` table.  The human-readable code is generated once at
// creation and never changes; the numeric ID doubles as the FIFO
// tie-break for assignment.
//
// Fields:
//  ID        – primary key, monotonically increasing.
//  Type      – queue partition ('C' or 'V').
//  Code      – short code {TYPE}-{YYMMDD}-{HHMM}-{NN}.
//  Status    – current lifecycle state.
//  Window    – serving window once assigned (nil while WAITING).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last modification timestamp.
//  CalledAt  – set once on WAITING -> CALLING.
//  ServedAt  – set once on transition to SERVED or DONE.
//  CancelledAt – set once on transition to CANCELLED.
//  UpdatedBy – operator who drove the last transition (nil for system).
type Ticket struct {
    ID          uint64       // turnos.id
    Type        TicketType   // turnos.tipo
    Code        string       // turnos.codigo
    Status      TicketStatus // turnos.status
    Window      *uint64      // turnos.ventanilla (nullable)
    CreatedAt   time.Time    // turnos.creado_el
    UpdatedAt   time.Time    // turnos.actualizado_el
    CalledAt    *time.Time   // turnos.llamado_el (nullable)
    ServedAt    *time.Time   // turnos.atendido_el (nullable)
    CancelledAt *time.Time   // turnos.cancelado_el (nullable)
    UpdatedBy   *uint64      // turnos.actualizado_por_usuario (nullable)
}
