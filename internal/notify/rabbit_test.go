package notify

import (
    "fmt"
    "net"
    "testing"
    "time"
)

// A broker endpoint that accepts TCP connections but never speaks AMQP
// must not hang lazy connection attempts.  Publishes run on request
// goroutines, so Channel has to give up within the dial budget instead
// of blocking on the handshake indefinitely.
func TestChannelFailsFastAgainstSilentBroker(t *testing.T) {
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil {
        t.Fatalf("listen: %v", err)
    }
    defer ln.Close()

    // Hold the accepted connection open without responding until the
    // test finishes.
    done := make(chan struct{})
    defer close(done)
    go func() {
        conn, err := ln.Accept()
        if err != nil {
            return
        }
        <-done
        _ = conn.Close()
    }()

    bus := NewBus(fmt.Sprintf("amqp://guest:guest@%s/", ln.Addr()), "turnos.topic")
    defer bus.Close()

    start := time.Now()
    if _, err := bus.Channel(); err == nil {
        t.Fatal("expected a connection error from the silent broker")
    }
    limit := dialTimeout + 5*time.Second
    if elapsed := time.Since(start); elapsed > limit {
        t.Fatalf("Channel blocked for %s, want under %s", elapsed, limit)
    }
}
