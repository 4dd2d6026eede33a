package dispatch

import (
    "context"
    "errors"
    "sort"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/turnos/internal/model"
    "github.com/iliyamo/turnos/internal/repository"
)

// fakeStore is an in-memory Store whose claim operations are atomic
// under a mutex, matching the row-lock guarantee of the MySQL
// implementation.
type fakeStore struct {
    mu      sync.Mutex
    seq     uint64
    now     func() time.Time
    tickets map[uint64]*model.Ticket
    events  []model.TicketEvent
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        now:     func() time.Time { return time.Now().UTC() },
        tickets: map[uint64]*model.Ticket{},
    }
}

func (s *fakeStore) CountCreatedBetween(_ context.Context, typ model.TicketType, start, end time.Time) (int, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    n := 0
    for _, t := range s.tickets {
        if t.Type == typ && !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
            n++
        }
    }
    return n, nil
}

func (s *fakeStore) Create(_ context.Context, typ model.TicketType, code, note string) (*model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.seq++
    now := s.now()
    t := &model.Ticket{
        ID:        s.seq,
        Type:      typ,
        Code:      code,
        Status:    model.StatusWaiting,
        CreatedAt: now,
        UpdatedAt: now,
    }
    s.tickets[t.ID] = t
    s.appendEvent(t.ID, nil, model.StatusWaiting, note, nil)
    cp := *t
    return &cp, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tickets[id]
    if !ok {
        return nil, repository.ErrTicketNotFound
    }
    cp := *t
    return &cp, nil
}

func (s *fakeStore) ClaimOldestWaiting(_ context.Context, windowID uint64, note string) (*model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var oldest *model.Ticket
    for _, t := range s.tickets {
        if t.Status != model.StatusWaiting {
            continue
        }
        if oldest == nil || t.ID < oldest.ID {
            oldest = t
        }
    }
    if oldest == nil {
        return nil, nil
    }
    s.markCalling(oldest, windowID, note)
    cp := *oldest
    return &cp, nil
}

func (s *fakeStore) ClaimByID(_ context.Context, ticketID, windowID uint64, note string) (*model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tickets[ticketID]
    if !ok {
        return nil, repository.ErrTicketNotFound
    }
    if t.Status != model.StatusWaiting {
        return nil, repository.ErrTicketNotWaiting
    }
    s.markCalling(t, windowID, note)
    cp := *t
    return &cp, nil
}

func (s *fakeStore) markCalling(t *model.Ticket, windowID uint64, note string) {
    now := s.now()
    from := t.Status
    t.Status = model.StatusCalling
    t.Window = &windowID
    t.CalledAt = &now
    t.UpdatedAt = now
    s.appendEvent(t.ID, &from, model.StatusCalling, note, nil)
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uint64, target model.TicketStatus, byUser *uint64, note string) (*model.Ticket, model.TicketStatus, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tickets[id]
    if !ok {
        return nil, "", repository.ErrTicketNotFound
    }
    from := t.Status
    now := s.now()
    t.Status = target
    t.UpdatedAt = now
    switch target {
    case model.StatusServed, model.StatusDone:
        t.ServedAt = &now
    case model.StatusCancelled:
        t.CancelledAt = &now
    }
    t.UpdatedBy = byUser
    s.appendEvent(id, &from, target, note, byUser)
    cp := *t
    return &cp, from, nil
}

func (s *fakeStore) ListWaiting(_ context.Context) ([]model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []model.Ticket{}
    for _, t := range s.tickets {
        if t.Status == model.StatusWaiting {
            out = append(out, *t)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *fakeStore) appendEvent(ticketID uint64, from *model.TicketStatus, to model.TicketStatus, note string, by *uint64) {
    s.events = append(s.events, model.TicketEvent{
        ID:        uint64(len(s.events) + 1),
        TicketID:  ticketID,
        From:      from,
        To:        to,
        Note:      note,
        ByUserID:  by,
        CreatedAt: s.now(),
    })
}

func (s *fakeStore) eventsFor(ticketID uint64) []model.TicketEvent {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.TicketEvent
    for _, ev := range s.events {
        if ev.TicketID == ticketID {
            out = append(out, ev)
        }
    }
    return out
}

// recorder captures notifier calls so tests can assert on topics
// without a broker.
type recorder struct {
    mu         sync.Mutex
    topics     []string
    broadcasts []string
    queues     []string
}

func (r *recorder) Notify(topic string, _ interface{}) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.topics = append(r.topics, topic)
}

func (r *recorder) Broadcast(event string, _ interface{}) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.broadcasts = append(r.broadcasts, event)
}

func (r *recorder) Enqueue(queue string, _ interface{}) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.queues = append(r.queues, queue)
}

func (r *recorder) seen(topic string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, t := range r.topics {
        if t == topic {
            return true
        }
    }
    return false
}

func newTestEngine() (*Engine, *fakeStore, *recorder) {
    store := newFakeStore()
    rec := &recorder{}
    return New(store, rec), store, rec
}

// freezeClock pins both the engine clock and the store's row
// timestamps, so created tickets land inside the code window the
// generator queries.
func freezeClock(e *Engine, s *fakeStore, ts time.Time) {
    e.now = func() time.Time { return ts }
    s.now = func() time.Time { return ts }
}

func TestCreateTicketFirstInWindow(t *testing.T) {
    e, store, rec := newTestEngine()
    freezeClock(e, store, time.Date(2025, 3, 14, 10, 30, 12, 0, time.UTC))

    ticket, err := e.CreateTicket(context.Background(), model.TypeC)
    if err != nil {
        t.Fatalf("CreateTicket: %v", err)
    }
    if ticket.Status != model.StatusWaiting {
        t.Errorf("status = %s, want WAITING", ticket.Status)
    }
    if ticket.Code != "C-250314-1030-01" {
        t.Errorf("code = %q, want C-250314-1030-01", ticket.Code)
    }
    if ticket.Window != nil || ticket.CalledAt != nil || ticket.ServedAt != nil || ticket.CancelledAt != nil {
        t.Error("new ticket must have no window or transition timestamps")
    }

    events := store.eventsFor(ticket.ID)
    if len(events) != 1 {
        t.Fatalf("got %d audit events, want 1", len(events))
    }
    if events[0].From != nil || events[0].To != model.StatusWaiting {
        t.Errorf("creation event = (%v -> %s), want (nil -> WAITING)", events[0].From, events[0].To)
    }

    if !rec.seen("turno.created") || !rec.seen("turno.status.WAITING") {
        t.Errorf("missing lifecycle topics, got %v", rec.topics)
    }
    if len(rec.queues) != 1 || rec.queues[0] != "tickets.requests.C" {
        t.Errorf("request queue enqueues = %v, want [tickets.requests.C]", rec.queues)
    }
}

func TestCodeSequencePerTypeAndMinute(t *testing.T) {
    e, store, _ := newTestEngine()
    freezeClock(e, store, time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC))

    for i, want := range []string{"C-250314-1030-01", "C-250314-1030-02", "C-250314-1030-03"} {
        ticket, err := e.CreateTicket(context.Background(), model.TypeC)
        if err != nil {
            t.Fatalf("create %d: %v", i, err)
        }
        if ticket.Code != want {
            t.Errorf("code %d = %q, want %q", i, ticket.Code, want)
        }
    }

    // A different type keeps its own sequence inside the same minute.
    ticket, err := e.CreateTicket(context.Background(), model.TypeV)
    if err != nil {
        t.Fatalf("create V: %v", err)
    }
    if ticket.Code != "V-250314-1030-01" {
        t.Errorf("V code = %q, want V-250314-1030-01", ticket.Code)
    }
}

func TestAssignNextFIFO(t *testing.T) {
    e, _, rec := newTestEngine()
    ctx := context.Background()

    var created []uint64
    for i := 0; i < 3; i++ {
        ticket, err := e.CreateTicket(ctx, model.TypeC)
        if err != nil {
            t.Fatalf("create: %v", err)
        }
        created = append(created, ticket.ID)
    }

    for i, want := range created {
        got, err := e.AssignNext(ctx, 3)
        if err != nil {
            t.Fatalf("assign %d: %v", i, err)
        }
        if got == nil || got.ID != want {
            t.Fatalf("assign %d returned %+v, want ticket %d", i, got, want)
        }
        if got.Status != model.StatusCalling {
            t.Errorf("assigned ticket status = %s, want CALLING", got.Status)
        }
        if got.Window == nil || *got.Window != 3 {
            t.Errorf("assigned ticket window = %v, want 3", got.Window)
        }
        if got.CalledAt == nil {
            t.Error("called_at not set on assignment")
        }
    }

    // Queue drained: the next call is an ordinary empty result.
    got, err := e.AssignNext(ctx, 4)
    if err != nil {
        t.Fatalf("assign on empty queue: %v", err)
    }
    if got != nil {
        t.Fatalf("assign on empty queue returned %+v, want nil", got)
    }
    if !rec.seen("turno.calling") || !rec.seen("turno.status.CALLING") {
        t.Errorf("missing calling topics, got %v", rec.topics)
    }
}

func TestAssignNextConcurrentSingleWinner(t *testing.T) {
    e, _, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeC)
    if err != nil {
        t.Fatalf("create: %v", err)
    }

    const callers = 16
    var (
        wg      sync.WaitGroup
        mu      sync.Mutex
        winners int
    )
    for i := 0; i < callers; i++ {
        wg.Add(1)
        go func(windowID uint64) {
            defer wg.Done()
            got, err := e.AssignNext(ctx, windowID)
            if err != nil {
                t.Errorf("concurrent assign: %v", err)
                return
            }
            if got != nil {
                mu.Lock()
                winners++
                mu.Unlock()
                if got.ID != ticket.ID {
                    t.Errorf("claimed unexpected ticket %d", got.ID)
                }
            }
        }(uint64(i + 1))
    }
    wg.Wait()

    if winners != 1 {
        t.Fatalf("%d callers received the ticket, want exactly 1", winners)
    }
}

func TestChangeStateCancelled(t *testing.T) {
    e, store, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeC)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := e.AssignNext(ctx, 1); err != nil {
        t.Fatalf("assign: %v", err)
    }

    op := uint64(42)
    got, err := e.ChangeState(ctx, ticket.ID, model.StatusCancelled, &op)
    if err != nil {
        t.Fatalf("ChangeState: %v", err)
    }
    if got.Status != model.StatusCancelled {
        t.Errorf("status = %s, want CANCELLED", got.Status)
    }
    if got.CancelledAt == nil {
        t.Error("cancelled_at not set")
    }
    if got.ServedAt != nil {
        t.Error("served_at must stay untouched on cancellation")
    }
    if got.UpdatedBy == nil || *got.UpdatedBy != op {
        t.Errorf("updated_by = %v, want %d", got.UpdatedBy, op)
    }

    events := store.eventsFor(ticket.ID)
    last := events[len(events)-1]
    if last.From == nil || *last.From != model.StatusCalling || last.To != model.StatusCancelled {
        t.Errorf("last event = (%v -> %s), want (CALLING -> CANCELLED)", last.From, last.To)
    }
}

func TestChangeStateNotFound(t *testing.T) {
    e, store, rec := newTestEngine()

    _, err := e.ChangeState(context.Background(), 99, model.StatusServed, nil)
    if !errors.Is(err, repository.ErrTicketNotFound) {
        t.Fatalf("err = %v, want ErrTicketNotFound", err)
    }
    if len(store.events) != 0 {
        t.Errorf("no audit event may be written for a missing ticket, got %d", len(store.events))
    }
    if len(rec.topics) != 0 {
        t.Errorf("no notification may fire for a missing ticket, got %v", rec.topics)
    }
}

func TestChangeStateRejectsNonTerminalTargets(t *testing.T) {
    e, _, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeC)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    for _, target := range []model.TicketStatus{model.StatusWaiting, model.StatusCalling, "BOGUS"} {
        if _, err := e.ChangeState(ctx, ticket.ID, target, nil); !errors.Is(err, ErrInvalidTransition) {
            t.Errorf("ChangeState(%s) err = %v, want ErrInvalidTransition", target, err)
        }
    }
}

func TestChangeStatePermitsForceFinishFromWaiting(t *testing.T) {
    // The engine intentionally does not require CALLING as the source
    // state: operators may finish a ticket that was never called.
    e, _, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeC)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    got, err := e.ChangeState(ctx, ticket.ID, model.StatusServed, nil)
    if err != nil {
        t.Fatalf("ChangeState: %v", err)
    }
    if got.Status != model.StatusServed || got.ServedAt == nil {
        t.Errorf("force-finish got status %s, served_at %v", got.Status, got.ServedAt)
    }
}

func TestAssignTicketStaleEntry(t *testing.T) {
    e, _, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeV)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := e.AssignNext(ctx, 1); err != nil {
        t.Fatalf("assign: %v", err)
    }

    // The queue entry for this ticket is now stale.
    if _, err := e.AssignTicket(ctx, ticket.ID, 2); !errors.Is(err, repository.ErrTicketNotWaiting) {
        t.Fatalf("err = %v, want ErrTicketNotWaiting", err)
    }
    if _, err := e.AssignTicket(ctx, 999, 2); !errors.Is(err, repository.ErrTicketNotFound) {
        t.Fatalf("err = %v, want ErrTicketNotFound", err)
    }
}

func TestAuditReplayReconstructsStatus(t *testing.T) {
    e, store, _ := newTestEngine()
    ctx := context.Background()

    ticket, err := e.CreateTicket(ctx, model.TypeC)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := e.AssignNext(ctx, 1); err != nil {
        t.Fatalf("assign: %v", err)
    }
    final, err := e.ChangeState(ctx, ticket.ID, model.StatusDone, nil)
    if err != nil {
        t.Fatalf("change: %v", err)
    }

    events := store.eventsFor(ticket.ID)
    if len(events) != 3 {
        t.Fatalf("got %d events, want 3 (create, assign, finish)", len(events))
    }
    // Replaying the destination states in order must land on the
    // ticket's final status.
    replayed := events[len(events)-1].To
    if replayed != final.Status {
        t.Errorf("replayed status %s != final status %s", replayed, final.Status)
    }
    // And each event chains off the previous one's destination.
    for i := 1; i < len(events); i++ {
        if events[i].From == nil || *events[i].From != events[i-1].To {
            t.Errorf("event %d from = %v, want %s", i, events[i].From, events[i-1].To)
        }
    }
}

func TestListWaitingOrdersAndBroadcasts(t *testing.T) {
    e, _, rec := newTestEngine()
    ctx := context.Background()

    for i := 0; i < 3; i++ {
        if _, err := e.CreateTicket(ctx, model.TypeC); err != nil {
            t.Fatalf("create: %v", err)
        }
    }
    if _, err := e.AssignNext(ctx, 1); err != nil {
        t.Fatalf("assign: %v", err)
    }

    waiting, err := e.ListWaiting(ctx)
    if err != nil {
        t.Fatalf("ListWaiting: %v", err)
    }
    if len(waiting) != 2 {
        t.Fatalf("got %d waiting, want 2", len(waiting))
    }
    for i := 1; i < len(waiting); i++ {
        if waiting[i-1].ID >= waiting[i].ID {
            t.Errorf("waiting list not in id order: %d before %d", waiting[i-1].ID, waiting[i].ID)
        }
    }
    if len(rec.broadcasts) != 1 || rec.broadcasts[0] != "tickets.waiting.list" {
        t.Errorf("broadcasts = %v, want [tickets.waiting.list]", rec.broadcasts)
    }
}
