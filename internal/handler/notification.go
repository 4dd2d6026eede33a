package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/notify"
)

// NotificationHandler relays ad-hoc staff alerts to the Telegram
// channel, e.g. calling a customer who stepped outside.
type NotificationHandler struct {
    Telegram *notify.Telegram
}

func NewNotificationHandler(tg *notify.Telegram) *NotificationHandler {
    return &NotificationHandler{Telegram: tg}
}

type telegramRequest struct {
    Message string `json:"message"`
}

// SendTelegram handles POST /v1/notifications/telegram.
func (h *NotificationHandler) SendTelegram(c echo.Context) error {
    var req telegramRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Message = strings.TrimSpace(req.Message)
    if req.Message == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
    }
    if h.Telegram == nil || !h.Telegram.Enabled() {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "telegram is not configured"})
    }
    if err := h.Telegram.Send(c.Request().Context(), req.Message); err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not deliver message"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "sent"})
}
