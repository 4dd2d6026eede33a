package notify

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"
)

// Telegram sends alert messages through the Telegram Bot API.  The
// notification worker relays turno.* events here and the HTTP API
// exposes a manual send endpoint for operators.
type Telegram struct {
    apiBase  string
    botToken string
    chatID   string
    client   *http.Client
}

// NewTelegram builds a Telegram sender.  When either the bot token or
// the chat id is empty the sender is disabled and Send reports an
// error, letting callers decide whether to fall back to a log line.
func NewTelegram(apiBase, botToken, chatID string) *Telegram {
    if apiBase == "" {
        apiBase = "https://api.telegram.org"
    }
    return &Telegram{
        apiBase:  apiBase,
        botToken: botToken,
        chatID:   chatID,
        client:   &http.Client{Timeout: 10 * time.Second},
    }
}

// Enabled reports whether the sender has credentials configured.
func (t *Telegram) Enabled() bool {
    return t.botToken != "" && t.chatID != ""
}

// Send posts one Markdown message to the configured chat.
func (t *Telegram) Send(ctx context.Context, message string) error {
    if !t.Enabled() {
        return fmt.Errorf("telegram: bot token or chat id not configured")
    }
    body, err := json.Marshal(map[string]string{
        "chat_id":    t.chatID,
        "text":       message,
        "parse_mode": "Markdown",
    })
    if err != nil {
        return err
    }
    url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")

    resp, err := t.client.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()

    var tr struct {
        OK          bool   `json:"ok"`
        Description string `json:"description"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
        return fmt.Errorf("telegram: decode response: %w", err)
    }
    if !tr.OK {
        return fmt.Errorf("telegram: api error: %s", tr.Description)
    }
    return nil
}
