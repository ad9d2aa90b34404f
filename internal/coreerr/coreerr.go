// Package coreerr provides the typed error taxonomy used across the
// runtime: every error that crosses a package boundary is
// wrapped in an *Error carrying a Category, so callers can decide whether
// to retry, halt trading, or simply log without string-matching messages.
package coreerr

import "fmt"

// Category classifies an error for handling purposes.
type Category string

const (
	// CategoryTransient covers errors expected to clear on retry: network
	// timeouts, rate limits, temporary venue unavailability.
	CategoryTransient Category = "transient"
	// CategoryParse covers malformed or unexpected wire payloads.
	CategoryParse Category = "parse"
	// CategoryOrdering covers an order or event arriving out of the sequence
	// the state machine requires (e.g. a fill for an unknown venue order).
	CategoryOrdering Category = "ordering"
	// CategoryConfiguration covers missing or invalid configuration,
	// surfaced at startup and treated as fatal.
	CategoryConfiguration Category = "configuration"
	// CategoryAccountingInvariant covers a ledger invariant violation: a
	// reconciliation delta beyond tolerance, a debit without a matching
	// credit. Always halts the affected trading path.
	CategoryAccountingInvariant Category = "accounting-invariant"
	// CategoryVenueSemantic covers a venue rejecting a request for a
	// business reason (insufficient balance, invalid lot size) rather than
	// a transport failure.
	CategoryVenueSemantic Category = "venue-semantic"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Category Category
	Op       string // the operation that failed, e.g. "ledger.Reconcile"
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Category)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a category and the operation name.
func New(category Category, op string, err error) *Error {
	return &Error{Category: category, Op: op, Err: err}
}

// IsCategory reports whether err is a *Error of the given category.
func IsCategory(err error, category Category) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Category == category
}
