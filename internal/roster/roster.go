// Package roster resolves punch card numbers to team bib numbers and
// relay legs, from either a start-list file or the event database.
package roster

import "context"

// Entry is the enrichment result for one card number.
type Entry struct {
	Bib string
	Leg string
}

// Lookup resolves card numbers against a start list.
type Lookup interface {
	// Start brings the lookup into service.
	Start(ctx context.Context) error

	// Stop takes the lookup out of service.
	Stop() error

	// IsRunning reports whether the lookup is in service.
	IsRunning() bool

	// LookupCard resolves a card number. Returns ErrNotFound when the card
	// is absent from the start list or cannot be resolved unambiguously.
	LookupCard(ctx context.Context, cardNumber string) (Entry, error)
}
