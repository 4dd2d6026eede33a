package dispatch

import (
    "context"
    "fmt"
    "time"

    "github.com/iliyamo/turnos/internal/model"
)

// maxSeq caps the per-minute sequence so the code never grows past two
// digits; creations beyond the cap saturate at 99 instead of widening
// the format.
const maxSeq = 99

// generateCode builds a short human-readable code of the form
// {TYPE}-{YYMMDD}-{HHMM}-{NN}, where NN is the per-minute, per-type
// sequence.  The sequence is derived by counting rows created in the
// current minute and adding one.  The count and the later insert are
// not a single atomic step, so two creations racing inside the same
// minute can compute the same sequence and produce duplicate codes.
// That window is accepted: codes are a human convenience, identity
// lives in the numeric id.
func (e *Engine) generateCode(ctx context.Context, typ model.TicketType) (string, error) {
    now := e.now().UTC()
    start := now.Truncate(time.Minute)
    end := start.Add(time.Minute)

    n, err := e.store.CountCreatedBetween(ctx, typ, start, end)
    if err != nil {
        return "", err
    }
    seq := n + 1
    if seq > maxSeq {
        seq = maxSeq
    }
    return fmt.Sprintf("%s-%s-%s-%02d", typ, now.Format("060102"), now.Format("1504"), seq), nil
}
