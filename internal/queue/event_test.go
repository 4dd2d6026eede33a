package queue

import (
    "encoding/json"
    "strings"
    "testing"
)

func TestTicketMessageSummaryPrefersStatus(t *testing.T) {
    var m ticketMessage
    payload := `{"id":7,"codigo":"C-250314-1030-01","status":"CALLING","ventanilla":2}`
    if err := json.Unmarshal([]byte(payload), &m); err != nil {
        t.Fatalf("unmarshal: %v", err)
    }
    s := m.summary()
    if !strings.Contains(s, `"CALLING"`) || !strings.Contains(s, "C-250314-1030-01") {
        t.Fatalf("unexpected summary: %s", s)
    }
}

func TestTicketMessageSummaryFallsBackToEstado(t *testing.T) {
    var m ticketMessage
    payload := `{"id":7,"codigo":"C-250314-1030-01","estado":"WAITING"}`
    if err := json.Unmarshal([]byte(payload), &m); err != nil {
        t.Fatalf("unmarshal: %v", err)
    }
    if !strings.Contains(m.summary(), `"WAITING"`) {
        t.Fatalf("unexpected summary: %s", m.summary())
    }
}

func TestRequestMessageDecode(t *testing.T) {
    var m requestMessage
    if err := json.Unmarshal([]byte(`{"id":42}`), &m); err != nil {
        t.Fatalf("unmarshal: %v", err)
    }
    if m.ID != 42 {
        t.Fatalf("got id %d, want 42", m.ID)
    }
}
