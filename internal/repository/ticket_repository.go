package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/turnos/internal/model"
)

// TicketRepo provides data access to the turnos and eventos_turno
// tables.  Every mutation writes its audit event inside the same
// transaction as the ticket row update, so a committed ticket state is
// always accompanied by exactly one matching event.  All timestamp
// fields are stored and compared in UTC.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the provided database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying handle for callers that need to open their
// own transactions.
func (r *TicketRepo) DB() *sql.DB { return r.db }

// ticketCols is the column list shared by every ticket SELECT so scans
// stay in one place.
const ticketCols = `id, tipo, codigo, status, ventanilla, creado_el, actualizado_el,
                    llamado_el, atendido_el, cancelado_el, actualizado_por_usuario`

// rowScanner abstracts *sql.Row and *sql.Rows for scanTicket.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

// scanTicket maps one turnos row onto a model.Ticket, converting the
// nullable columns to pointers.
func scanTicket(row rowScanner) (*model.Ticket, error) {
    var (
        t         model.Ticket
        window    sql.NullInt64
        calledAt  sql.NullTime
        servedAt  sql.NullTime
        cancelled sql.NullTime
        updatedBy sql.NullInt64
    )
    err := row.Scan(&t.ID, &t.Type, &t.Code, &t.Status, &window,
        &t.CreatedAt, &t.UpdatedAt, &calledAt, &servedAt, &cancelled, &updatedBy)
    if err != nil {
        return nil, err
    }
    if window.Valid {
        w := uint64(window.Int64)
        t.Window = &w
    }
    if calledAt.Valid {
        v := calledAt.Time
        t.CalledAt = &v
    }
    if servedAt.Valid {
        v := servedAt.Time
        t.ServedAt = &v
    }
    if cancelled.Valid {
        v := cancelled.Time
        t.CancelledAt = &v
    }
    if updatedBy.Valid {
        u := uint64(updatedBy.Int64)
        t.UpdatedBy = &u
    }
    return &t, nil
}

// insertEventTx appends one audit event for a ticket within the given
// transaction.  from is nil for the creation event.
func insertEventTx(ctx context.Context, tx *sql.Tx, ticketID uint64, from *model.TicketStatus, to model.TicketStatus, note string, byUser *uint64) error {
    var fromVal interface{}
    if from != nil {
        fromVal = string(*from)
    }
    var byVal interface{}
    if byUser != nil {
        byVal = *byUser
    }
    _, err := tx.ExecContext(ctx,
        `INSERT INTO eventos_turno (id_ticket, del_estado, a_estado, notas, por_id_usuario) VALUES (?, ?, ?, ?, ?)`,
        ticketID, fromVal, string(to), note, byVal)
    return err
}

// CountCreatedBetween counts tickets of the given type created inside
// the half-open interval [start, end).  The code generator uses this to
// compute the per-minute sequence number.
func (r *TicketRepo) CountCreatedBetween(ctx context.Context, typ model.TicketType, start, end time.Time) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM turnos WHERE tipo = ? AND creado_el >= ? AND creado_el < ?`,
        string(typ), start.UTC(), end.UTC()).Scan(&n)
    return n, err
}

// Create inserts a new WAITING ticket with the given code and appends
// its creation audit event (from = NULL) in the same transaction.  The
// persisted row is selected back so database-assigned defaults
// (id, creado_el, actualizado_el) are populated on the returned ticket.
func (r *TicketRepo) Create(ctx context.Context, typ model.TicketType, code, note string) (*model.Ticket, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        `INSERT INTO turnos (tipo, codigo, status) VALUES (?, ?, ?)`,
        string(typ), code, string(model.StatusWaiting))
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }

    t, err := scanTicket(tx.QueryRowContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE id = ?`, id))
    if err != nil {
        return nil, err
    }

    if err := insertEventTx(ctx, tx, t.ID, nil, model.StatusWaiting, note, nil); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return t, nil
}

// GetByID loads a single ticket.  ErrTicketNotFound is returned when no
// row matches.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
    t, err := scanTicket(r.db.QueryRowContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE id = ?`, id))
    if err == sql.ErrNoRows {
        return nil, ErrTicketNotFound
    }
    if err != nil {
        return nil, err
    }
    return t, nil
}

// ClaimOldestWaiting atomically selects the WAITING ticket with the
// lowest id, assigns it to the given window and moves it to CALLING.
// The SELECT ... FOR UPDATE row lock guarantees that two concurrent
// claims can never pick the same row: the second transaction blocks on
// the lock and, once it acquires it, no longer sees the row as WAITING.
// Returns (nil, nil) when no ticket is waiting.
func (r *TicketRepo) ClaimOldestWaiting(ctx context.Context, windowID uint64, note string) (*model.Ticket, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := scanTicket(tx.QueryRowContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE status = ? ORDER BY id ASC LIMIT 1 FOR UPDATE`,
        string(model.StatusWaiting)))
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }

    if err := r.markCallingTx(ctx, tx, t, windowID, note); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return t, nil
}

// ClaimByID applies the same WAITING -> CALLING claim to one specific
// ticket, identified by a message popped from the per-type request
// queue.  ErrTicketNotFound is returned when the ticket does not exist
// and ErrTicketNotWaiting when it was already claimed or finished; both
// mark the queue entry as stale.
func (r *TicketRepo) ClaimByID(ctx context.Context, ticketID, windowID uint64, note string) (*model.Ticket, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := scanTicket(tx.QueryRowContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE id = ? FOR UPDATE`, ticketID))
    if err == sql.ErrNoRows {
        return nil, ErrTicketNotFound
    }
    if err != nil {
        return nil, err
    }
    if t.Status != model.StatusWaiting {
        return nil, ErrTicketNotWaiting
    }

    if err := r.markCallingTx(ctx, tx, t, windowID, note); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return t, nil
}

// markCallingTx updates a locked WAITING row to CALLING, stamps
// llamado_el, and writes the audit event.  The passed ticket is
// mutated in place so callers return the post-transition view.
func (r *TicketRepo) markCallingTx(ctx context.Context, tx *sql.Tx, t *model.Ticket, windowID uint64, note string) error {
    now := time.Now().UTC()
    if _, err := tx.ExecContext(ctx,
        `UPDATE turnos SET status = ?, ventanilla = ?, llamado_el = ?, actualizado_el = ? WHERE id = ?`,
        string(model.StatusCalling), windowID, now, now, t.ID); err != nil {
        return err
    }
    from := t.Status
    if err := insertEventTx(ctx, tx, t.ID, &from, model.StatusCalling, note, nil); err != nil {
        return err
    }
    t.Status = model.StatusCalling
    t.Window = &windowID
    t.CalledAt = &now
    t.UpdatedAt = now
    return nil
}

// UpdateStatus moves a ticket to the given target state, stamping the
// timestamp that corresponds to the target (atendido_el for SERVED and
// DONE, cancelado_el for CANCELLED) and recording the acting operator
// when provided.  The source state is not validated here; see the
// dispatch engine for the transition policy.  The state the ticket held
// before the update is returned alongside the updated row and recorded
// on the audit event.
func (r *TicketRepo) UpdateStatus(ctx context.Context, id uint64, target model.TicketStatus, byUser *uint64, note string) (*model.Ticket, model.TicketStatus, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, "", err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := scanTicket(tx.QueryRowContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE id = ? FOR UPDATE`, id))
    if err == sql.ErrNoRows {
        return nil, "", ErrTicketNotFound
    }
    if err != nil {
        return nil, "", err
    }

    now := time.Now().UTC()
    query := `UPDATE turnos SET status = ?, actualizado_el = ?`
    args := []interface{}{string(target), now}
    switch target {
    case model.StatusServed, model.StatusDone:
        query += `, atendido_el = ?`
        args = append(args, now)
    case model.StatusCancelled:
        query += `, cancelado_el = ?`
        args = append(args, now)
    }
    if byUser != nil {
        query += `, actualizado_por_usuario = ?`
        args = append(args, *byUser)
    }
    query += ` WHERE id = ?`
    args = append(args, id)
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        return nil, "", err
    }

    from := t.Status
    if err := insertEventTx(ctx, tx, id, &from, target, note, byUser); err != nil {
        return nil, "", err
    }
    if err := tx.Commit(); err != nil {
        return nil, "", err
    }
    committed = true

    t.Status = target
    t.UpdatedAt = now
    switch target {
    case model.StatusServed, model.StatusDone:
        t.ServedAt = &now
    case model.StatusCancelled:
        t.CancelledAt = &now
    }
    t.UpdatedBy = byUser
    return t, from, nil
}

// ListWaiting returns all WAITING tickets in creation (id) order.
func (r *TicketRepo) ListWaiting(ctx context.Context) ([]model.Ticket, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+ticketCols+` FROM turnos WHERE status = ? ORDER BY id ASC`,
        string(model.StatusWaiting))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectTickets(rows)
}

// ListRecent returns the most recently created tickets, newest first.
func (r *TicketRepo) ListRecent(ctx context.Context, limit int) ([]model.Ticket, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+ticketCols+` FROM turnos ORDER BY id DESC LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectTickets(rows)
}

func collectTickets(rows *sql.Rows) ([]model.Ticket, error) {
    tickets := []model.Ticket{}
    for rows.Next() {
        t, err := scanTicket(rows)
        if err != nil {
            return nil, err
        }
        tickets = append(tickets, *t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return tickets, nil
}
