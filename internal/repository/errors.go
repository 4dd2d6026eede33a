// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// dispatch engine and handlers to distinguish between different failure
// scenarios without inspecting driver errors. For example,
// ErrTicketNotFound maps to an HTTP 404 response, while
// ErrTicketNotWaiting signals that a queue message referenced a ticket
// that was already claimed or finished.
package repository

import "errors"

// ErrTicketNotFound is returned when a referenced ticket id does not
// exist. Handlers should translate this into an HTTP 404 response.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrTicketNotWaiting is returned by ClaimByID when the referenced
// ticket exists but is no longer in the WAITING state. The out-of-band
// assignment path treats this as a stale queue entry and discards the
// message.
var ErrTicketNotWaiting = errors.New("ticket is not waiting")

// ErrWindowNotFound is returned when a referenced window (ventanilla)
// does not exist. Handlers should translate this into an HTTP 404.
var ErrWindowNotFound = errors.New("window not found")
