package model

import "testing"

func TestParseTicketType(t *testing.T) {
    if tt, ok := ParseTicketType("C"); !ok || tt != TypeC {
        t.Fatalf("ParseTicketType(C) = %q, %v", tt, ok)
    }
    if tt, ok := ParseTicketType("V"); !ok || tt != TypeV {
        t.Fatalf("ParseTicketType(V) = %q, %v", tt, ok)
    }
    if _, ok := ParseTicketType("X"); ok {
        t.Fatal("ParseTicketType(X) accepted an unknown type")
    }
    if _, ok := ParseTicketType(""); ok {
        t.Fatal("ParseTicketType accepted the empty string")
    }
}

func TestCanTransition(t *testing.T) {
    valid := [][2]TicketStatus{
        {StatusWaiting, StatusCalling},
        {StatusWaiting, StatusCancelled},
        {StatusCalling, StatusServed},
        {StatusCalling, StatusDone},
        {StatusCalling, StatusCancelled},
    }
    for _, e := range valid {
        if !CanTransition(e[0], e[1]) {
            t.Errorf("expected %s -> %s to be a valid edge", e[0], e[1])
        }
    }

    // Terminal states have no outgoing edges, and nothing re-enters WAITING.
    all := []TicketStatus{StatusWaiting, StatusCalling, StatusServed, StatusDone, StatusCancelled}
    for _, term := range []TicketStatus{StatusServed, StatusDone, StatusCancelled} {
        for _, to := range all {
            if CanTransition(term, to) {
                t.Errorf("terminal state %s must not transition to %s", term, to)
            }
        }
    }
    for _, from := range all {
        if CanTransition(from, StatusWaiting) {
            t.Errorf("no state may transition back to WAITING (from %s)", from)
        }
    }
}

func TestTerminal(t *testing.T) {
    for s, want := range map[TicketStatus]bool{
        StatusWaiting:   false,
        StatusCalling:   false,
        StatusServed:    true,
        StatusDone:      true,
        StatusCancelled: true,
    } {
        if got := s.Terminal(); got != want {
            t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
        }
    }
}
