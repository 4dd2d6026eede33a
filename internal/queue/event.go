// Package queue contains the out-of-band assignment reader and the
// background worker that consumes the broker queues.
package queue

import "encoding/json"

// requestMessage is the payload of the per-type request queues
// (tickets.requests.C / tickets.requests.V): one entry per created
// ticket, carrying the id the assignment refers to.
type requestMessage struct {
    ID uint64 `json:"id"`
}

// assignRequest is the payload of the ventanillas.requests queue,
// published under the ventanilla.request.next routing key by clients
// that ask for the next ticket asynchronously.
type assignRequest struct {
    VentanillaID uint64 `json:"ventanillaId"`
}

// ticketMessage is the loose shape of the turno.* lifecycle payloads
// the notify.customer consumer relays.  Only the fields used for the
// human-readable summary are declared; unknown fields are ignored.
type ticketMessage struct {
    ID     uint64 `json:"id"`
    Code   string `json:"codigo"`
    Status string `json:"status"`
    State  string `json:"estado"`
}

// summary renders a short line for alerting, preferring status over the
// creation-time estado field.
func (m ticketMessage) summary() string {
    st := m.Status
    if st == "" {
        st = m.State
    }
    b, _ := json.Marshal(map[string]interface{}{"id": m.ID, "codigo": m.Code, "status": st})
    return string(b)
}
