package model

import "time"

// TicketEvent is one immutable row of a ticket's audit trail, stored in
// the `eventos_turno` table.  Exactly one event is written per state
// change, inside the same transaction as the ticket update it
// documents.  Events are never updated or deleted; replaying them in ID
// order reconstructs the ticket's final status.
//
// Fields:
//  ID        – primary key identifier.
//  TicketID  – ticket this event belongs to.
//  From      – state before the transition (nil for creation).
//  To        – state after the transition.
//  Note      – optional free-form annotation.
//  ByUserID  – operator who drove the transition (nil for system).
//  CreatedAt – when the transition happened.
type TicketEvent struct {
    ID        uint64        // eventos_turno.id
    TicketID  uint64        // eventos_turno.id_ticket
    From      *TicketStatus // eventos_turno.del_estado (nullable)
    To        TicketStatus  // eventos_turno.a_estado
    Note      string        // eventos_turno.notas
    ByUserID  *uint64       // eventos_turno.por_id_usuario (nullable)
    CreatedAt time.Time     // eventos_turno.creado_el
}
