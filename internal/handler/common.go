package handler

import (
    "errors"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/model"
)

// getUserID extracts the authenticated user id stored by the JWT
// middleware and converts it to uint64.  JWT numeric claims decode as
// float64, so several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// ticketJSON is the wire representation of a ticket.  Field names
// follow the turnos schema so existing display clients keep working.
type ticketJSON struct {
    ID            uint64     `json:"id"`
    Tipo          string     `json:"tipo"`
    Codigo        string     `json:"codigo"`
    Status        string     `json:"status"`
    Ventanilla    *uint64    `json:"ventanilla"`
    CreadoEl      time.Time  `json:"creado_el"`
    ActualizadoEl time.Time  `json:"actualizado_el"`
    LlamadoEl     *time.Time `json:"llamado_el"`
    AtendidoEl    *time.Time `json:"atendido_el"`
    CanceladoEl   *time.Time `json:"cancelado_el"`
    ActualizadoPor *uint64   `json:"actualizado_por_usuario,omitempty"`
}

func toTicketJSON(t *model.Ticket) ticketJSON {
    return ticketJSON{
        ID:             t.ID,
        Tipo:           string(t.Type),
        Codigo:         t.Code,
        Status:         string(t.Status),
        Ventanilla:     t.Window,
        CreadoEl:       t.CreatedAt,
        ActualizadoEl:  t.UpdatedAt,
        LlamadoEl:      t.CalledAt,
        AtendidoEl:     t.ServedAt,
        CanceladoEl:    t.CancelledAt,
        ActualizadoPor: t.UpdatedBy,
    }
}

func toTicketList(tickets []model.Ticket) []ticketJSON {
    out := make([]ticketJSON, 0, len(tickets))
    for i := range tickets {
        out = append(out, toTicketJSON(&tickets[i]))
    }
    return out
}
