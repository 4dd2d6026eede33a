package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/turnos/internal/model"
)

// WindowRepo provides CRUD operations over the ventanillas table.
// Window administration is independent of the dispatch engine, which
// only references windows by id.
type WindowRepo struct {
    db *sql.DB
}

// NewWindowRepo returns a new WindowRepo bound to the given database.
func NewWindowRepo(db *sql.DB) *WindowRepo { return &WindowRepo{db: db} }

const windowCols = `id, numero, etiqueta, activo, creado_el, actualizado_el`

func scanWindow(row rowScanner) (*model.Window, error) {
    var w model.Window
    if err := row.Scan(&w.ID, &w.Number, &w.Label, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
        return nil, err
    }
    return &w, nil
}

// List returns all windows ordered by their display number.
func (r *WindowRepo) List(ctx context.Context) ([]model.Window, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+windowCols+` FROM ventanillas ORDER BY numero ASC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    windows := []model.Window{}
    for rows.Next() {
        w, err := scanWindow(rows)
        if err != nil {
            return nil, err
        }
        windows = append(windows, *w)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return windows, nil
}

// GetByID loads one window.  ErrWindowNotFound is returned when no row
// matches.
func (r *WindowRepo) GetByID(ctx context.Context, id uint64) (*model.Window, error) {
    w, err := scanWindow(r.db.QueryRowContext(ctx,
        `SELECT `+windowCols+` FROM ventanillas WHERE id = ?`, id))
    if err == sql.ErrNoRows {
        return nil, ErrWindowNotFound
    }
    if err != nil {
        return nil, err
    }
    return w, nil
}

// Create inserts a window and returns the persisted row.
func (r *WindowRepo) Create(ctx context.Context, number uint32, label string, active bool) (*model.Window, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO ventanillas (numero, etiqueta, activo) VALUES (?, ?, ?)`,
        number, label, active)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.GetByID(ctx, uint64(id))
}

// Update modifies a window's number, label and active flag.
// ErrWindowNotFound is returned when the window does not exist.
func (r *WindowRepo) Update(ctx context.Context, id uint64, number uint32, label string, active bool) (*model.Window, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE ventanillas SET numero = ?, etiqueta = ?, activo = ? WHERE id = ?`,
        number, label, active, id)
    if err != nil {
        return nil, err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // RowsAffected is 0 both for a missing row and for a no-op
        // update; disambiguate with a lookup.
        if _, getErr := r.GetByID(ctx, id); getErr != nil {
            return nil, getErr
        }
    }
    return r.GetByID(ctx, id)
}

// Delete removes a window.  ErrWindowNotFound is returned when the
// window does not exist.
func (r *WindowRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM ventanillas WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrWindowNotFound
    }
    return nil
}
