package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/turnos/internal/model"
)

// EventRepo reads the eventos_turno audit trail.  Events are only ever
// written through TicketRepo transactions; this repository exposes the
// read side for operators reconstructing a ticket's history.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// ListByTicket returns a ticket's audit events in insertion order.
// Replaying the a_estado column of the result reconstructs the ticket's
// status history.
func (r *EventRepo) ListByTicket(ctx context.Context, ticketID uint64) ([]model.TicketEvent, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, id_ticket, del_estado, a_estado, notas, por_id_usuario, creado_el
         FROM eventos_turno WHERE id_ticket = ? ORDER BY id ASC`, ticketID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    events := []model.TicketEvent{}
    for rows.Next() {
        var (
            ev   model.TicketEvent
            from sql.NullString
            note sql.NullString
            by   sql.NullInt64
        )
        if err := rows.Scan(&ev.ID, &ev.TicketID, &from, &ev.To, &note, &by, &ev.CreatedAt); err != nil {
            return nil, err
        }
        if from.Valid {
            s := model.TicketStatus(from.String)
            ev.From = &s
        }
        if note.Valid {
            ev.Note = note.String
        }
        if by.Valid {
            u := uint64(by.Int64)
            ev.ByUserID = &u
        }
        events = append(events, ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return events, nil
}
