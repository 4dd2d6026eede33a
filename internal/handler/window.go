package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/model"
    "github.com/iliyamo/turnos/internal/repository"
)

// WindowHandler manages service windows (ventanillas).  Listing is
// available to every operator; mutations are admin only.
type WindowHandler struct {
    Windows *repository.WindowRepo
}

func NewWindowHandler(windows *repository.WindowRepo) *WindowHandler {
    return &WindowHandler{Windows: windows}
}

type windowRequest struct {
    Numero   uint32 `json:"numero"`
    Etiqueta string `json:"etiqueta"`
    Activa   *bool  `json:"activa"`
}

type windowJSON struct {
    ID            uint64    `json:"id"`
    Numero        uint32    `json:"numero"`
    Etiqueta      string    `json:"etiqueta"`
    Activa        bool      `json:"activa"`
    CreadoEl      time.Time `json:"creado_el"`
    ActualizadoEl time.Time `json:"actualizado_el"`
}

func toWindowJSON(w *model.Window) windowJSON {
    return windowJSON{
        ID:            w.ID,
        Numero:        w.Number,
        Etiqueta:      w.Label,
        Activa:        w.Active,
        CreadoEl:      w.CreatedAt,
        ActualizadoEl: w.UpdatedAt,
    }
}

func (req *windowRequest) validate() (string, bool) {
    req.Etiqueta = strings.TrimSpace(req.Etiqueta)
    if req.Numero == 0 {
        return "numero must be positive", false
    }
    if req.Etiqueta == "" || len(req.Etiqueta) > 100 {
        return "etiqueta must be 1-100 characters", false
    }
    return "", true
}

// List handles GET /v1/ventanillas.
func (h *WindowHandler) List(c echo.Context) error {
    windows, err := h.Windows.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list ventanillas"})
    }
    out := make([]windowJSON, 0, len(windows))
    for i := range windows {
        out = append(out, toWindowJSON(&windows[i]))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/ventanillas/:id.
func (h *WindowHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ventanilla id"})
    }
    w, err := h.Windows.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrWindowNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ventanilla not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load ventanilla"})
    }
    return c.JSON(http.StatusOK, toWindowJSON(w))
}

// Create handles POST /v1/ventanillas (admin).
func (h *WindowHandler) Create(c echo.Context) error {
    var req windowRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg, ok := req.validate(); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    active := true
    if req.Activa != nil {
        active = *req.Activa
    }
    w, err := h.Windows.Create(c.Request().Context(), req.Numero, req.Etiqueta, active)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create ventanilla"})
    }
    return c.JSON(http.StatusCreated, toWindowJSON(w))
}

// Update handles PUT /v1/ventanillas/:id (admin).
func (h *WindowHandler) Update(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ventanilla id"})
    }
    var req windowRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg, ok := req.validate(); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    active := true
    if req.Activa != nil {
        active = *req.Activa
    }
    w, err := h.Windows.Update(c.Request().Context(), id, req.Numero, req.Etiqueta, active)
    if err != nil {
        if errors.Is(err, repository.ErrWindowNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ventanilla not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update ventanilla"})
    }
    return c.JSON(http.StatusOK, toWindowJSON(w))
}

// Delete handles DELETE /v1/ventanillas/:id (admin).
func (h *WindowHandler) Delete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ventanilla id"})
    }
    if err := h.Windows.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrWindowNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ventanilla not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete ventanilla"})
    }
    return c.NoContent(http.StatusNoContent)
}
