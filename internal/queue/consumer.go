package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/turnos/internal/dispatch"
    "github.com/iliyamo/turnos/internal/notify"
)

const (
    assignQueueName = "ventanillas.requests"
    assignRouteKey  = "ventanilla.request.next"
    notifyQueueName = "notify.customer"
    notifyRouteKey  = "turno.*"
)

// Worker runs the background consumers: ventanillas.requests performs
// next-ticket assignment for windows that request it asynchronously,
// and notify.customer relays every turno.* lifecycle event to the
// alerting integration.  Run keeps a reconnect loop with exponential
// backoff and only stops when the process does; processing errors
// reject the offending message without requeue so the worker keeps
// operating.
type Worker struct {
    URL      string
    Exchange string
    Engine   *dispatch.Engine
    Telegram *notify.Telegram
}

// Run connects to the broker and consumes until the process exits.
func (w *Worker) Run() error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(w.URL)
        if err != nil {
            log.Printf("worker: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := w.consumeLoop(conn); err != nil {
            log.Printf("worker: consume loop ended: %v; reconnecting", err)
            _ = conn.Close()
            time.Sleep(2 * time.Second)
        }
    }
}

func (w *Worker) consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        log.Printf("worker: set QoS failed: %v", err)
    }
    if err := ch.ExchangeDeclare(w.Exchange, "topic", true, false, false, false, nil); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }

    assigns, err := w.bind(ch, assignQueueName, assignRouteKey)
    if err != nil {
        return err
    }
    notifies, err := w.bind(ch, notifyQueueName, notifyRouteKey)
    if err != nil {
        return err
    }
    log.Printf("worker: consuming %s and %s on exchange %q", assignQueueName, notifyQueueName, w.Exchange)

    g := new(errgroup.Group)
    g.Go(func() error {
        for d := range assigns {
            w.handleAssignRequest(d)
        }
        return errors.New("assign deliveries channel closed")
    })
    g.Go(func() error {
        for d := range notifies {
            w.handleCustomerNotify(d)
        }
        return errors.New("notify deliveries channel closed")
    })
    return g.Wait()
}

// bind declares a durable queue, binds it to the topic exchange and
// starts a manual-ack consumer on it.
func (w *Worker) bind(ch *amqp.Channel, queue, key string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    if err := ch.QueueBind(queue, key, w.Exchange, false, nil); err != nil {
        return nil, fmt.Errorf("queue bind %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

func (w *Worker) handleAssignRequest(d amqp.Delivery) {
    var req assignRequest
    if err := json.Unmarshal(d.Body, &req); err != nil || req.VentanillaID == 0 {
        log.Printf("worker: discarding malformed assign request: %s", d.Body)
        _ = d.Nack(false, false)
        return
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    t, err := w.Engine.AssignNext(ctx, req.VentanillaID)
    if err != nil {
        log.Printf("worker: assign for window %d failed: %v", req.VentanillaID, err)
        _ = d.Nack(false, false)
        return
    }
    if t == nil {
        log.Printf("worker: no tickets waiting for window %d", req.VentanillaID)
    } else {
        log.Printf("worker: assigned ticket %s to window %d", t.Code, req.VentanillaID)
    }
    _ = d.Ack(false)
}

func (w *Worker) handleCustomerNotify(d amqp.Delivery) {
    var msg ticketMessage
    if err := json.Unmarshal(d.Body, &msg); err != nil {
        log.Printf("worker: discarding malformed lifecycle event: %s", d.Body)
        _ = d.Nack(false, false)
        return
    }

    if w.Telegram != nil && w.Telegram.Enabled() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        text := fmt.Sprintf("*%s* %s", d.RoutingKey, msg.summary())
        if err := w.Telegram.Send(ctx, text); err != nil {
            log.Printf("worker: telegram relay failed: %v", err)
            _ = d.Nack(false, false)
            return
        }
    } else {
        log.Printf("notify.customer: %s %s", d.RoutingKey, msg.summary())
    }
    _ = d.Ack(false)
}
