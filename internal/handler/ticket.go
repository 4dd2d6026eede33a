package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/dispatch"
    "github.com/iliyamo/turnos/internal/model"
    "github.com/iliyamo/turnos/internal/queue"
    "github.com/iliyamo/turnos/internal/repository"
)

// TicketHandler exposes the ticket lifecycle over HTTP: public creation,
// listing, window assignment and state changes.
type TicketHandler struct {
    Engine   *dispatch.Engine
    Tickets  *repository.TicketRepo
    EventLog *repository.EventRepo
    Reader   *queue.Reader
}

// NewTicketHandler wires the handler with its collaborators.
func NewTicketHandler(engine *dispatch.Engine, tickets *repository.TicketRepo, events *repository.EventRepo, reader *queue.Reader) *TicketHandler {
    return &TicketHandler{Engine: engine, Tickets: tickets, EventLog: events, Reader: reader}
}

type createTicketRequest struct {
    Tipo string `json:"tipo"`
}

// Create handles POST /v1/tickets.  It is the public kiosk endpoint:
// no auth, only rate limiting.  Unknown or missing types fall back to
// the general queue rather than erroring, so a misconfigured kiosk
// still produces a usable ticket.
func (h *TicketHandler) Create(c echo.Context) error {
    var req createTicketRequest
    _ = c.Bind(&req) // empty body is fine, default type applies

    typ, ok := model.ParseTicketType(req.Tipo)
    if !ok {
        typ = model.TypeC
    }

    t, err := h.Engine.CreateTicket(c.Request().Context(), typ)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create ticket"})
    }
    return c.JSON(http.StatusCreated, toTicketJSON(t))
}

// List handles GET /v1/tickets and returns the most recent tickets,
// newest first.
func (h *TicketHandler) List(c echo.Context) error {
    tickets, err := h.Tickets.ListRecent(c.Request().Context(), 50)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list tickets"})
    }
    return c.JSON(http.StatusOK, toTicketList(tickets))
}

// Waiting handles GET /v1/tickets/waiting: the live queue in FIFO
// order, as shown on the lobby display.
func (h *TicketHandler) Waiting(c echo.Context) error {
    tickets, err := h.Engine.ListWaiting(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list waiting tickets"})
    }
    return c.JSON(http.StatusOK, toTicketList(tickets))
}

// Next handles POST /v1/tickets/ventanillas/:ventanillaId/next.  The
// operator at the given window calls the oldest waiting ticket.  An
// empty queue is a normal outcome, not an error.
func (h *TicketHandler) Next(c echo.Context) error {
    windowID, err := strconv.ParseUint(c.Param("ventanillaId"), 10, 64)
    if err != nil || windowID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ventanilla id"})
    }

    t, err := h.Engine.AssignNext(c.Request().Context(), windowID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not assign next ticket"})
    }
    if t == nil {
        return c.JSON(http.StatusOK, echo.Map{"ticket": nil, "message": "no tickets waiting"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ticket": toTicketJSON(t)})
}

// NextFromQueue handles POST /v1/tickets/ventanillas/:ventanillaId/tipo/:tipo/next.
// Instead of scanning the table it pops the per-type request queue, so
// windows dedicated to one ticket type skip the others entirely.
func (h *TicketHandler) NextFromQueue(c echo.Context) error {
    windowID, err := strconv.ParseUint(c.Param("ventanillaId"), 10, 64)
    if err != nil || windowID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ventanilla id"})
    }
    typ, ok := model.ParseTicketType(c.Param("tipo"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type"})
    }

    t, err := h.Reader.PullAndAssign(c.Request().Context(), windowID, typ)
    switch {
    case errors.Is(err, queue.ErrMalformedMessage):
        return c.JSON(http.StatusConflict, echo.Map{"error": "queue entry malformed"})
    case errors.Is(err, repository.ErrTicketNotFound), errors.Is(err, repository.ErrTicketNotWaiting):
        // The queue entry referenced a ticket that was already handled
        // elsewhere; the client should simply retry.
        return c.JSON(http.StatusConflict, echo.Map{"error": "stale queue entry"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not assign next ticket"})
    }
    if t == nil {
        return c.JSON(http.StatusOK, echo.Map{"ticket": nil, "message": "no tickets waiting"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ticket": toTicketJSON(t)})
}

type changeStateRequest struct {
    Estado       string `json:"estado"`
    PorIDUsuario uint64 `json:"porIdUsuario"`
}

// ChangeState handles PATCH /v1/tickets/:id/estado, finishing a ticket
// as SERVED, DONE or CANCELLED.  The acting operator is taken from the
// access token; the body may override it for back-office corrections.
func (h *TicketHandler) ChangeState(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
    }

    var req changeStateRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    target, ok := model.ParseTicketStatus(req.Estado)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid estado"})
    }

    var operator *uint64
    if req.PorIDUsuario != 0 {
        operator = &req.PorIDUsuario
    } else if uid, err := getUserID(c); err == nil {
        operator = &uid
    }

    t, err := h.Engine.ChangeState(c.Request().Context(), id, target, operator)
    switch {
    case errors.Is(err, dispatch.ErrInvalidTransition):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid estado"})
    case errors.Is(err, repository.ErrTicketNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change ticket state"})
    }
    return c.JSON(http.StatusOK, toTicketJSON(t))
}

type eventJSON struct {
    ID       uint64    `json:"id"`
    TicketID uint64    `json:"ticketId"`
    De       *string   `json:"de"`
    A        string    `json:"a"`
    Nota     string    `json:"nota"`
    PorID    *uint64   `json:"porIdUsuario"`
    CreadoEl time.Time `json:"creado_el"`
}

// Events handles GET /v1/tickets/:id/eventos and returns the audit
// trail in chronological order.
func (h *TicketHandler) Events(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
    }

    ctx := c.Request().Context()
    if _, err := h.Tickets.GetByID(ctx, id); err != nil {
        if errors.Is(err, repository.ErrTicketNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load ticket"})
    }

    events, err := h.EventLog.ListByTicket(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list events"})
    }

    out := make([]eventJSON, 0, len(events))
    for _, ev := range events {
        var de *string
        if ev.From != nil {
            s := string(*ev.From)
            de = &s
        }
        out = append(out, eventJSON{
            ID:       ev.ID,
            TicketID: ev.TicketID,
            De:       de,
            A:        string(ev.To),
            Nota:     ev.Note,
            PorID:    ev.ByUserID,
            CreadoEl: ev.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, out)
}
