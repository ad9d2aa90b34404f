// Package ledger implements the double-entry accounting ledger:
// transfers over typed accounts, position projections, and reconciliation
// against exchange-reported balances.
package ledger

import "github.com/arkin-go/core/internal/core"

// AccountOwnerKind classifies who an Account belongs to.
type AccountOwnerKind string

const (
	OwnerVenue    AccountOwnerKind = "venue"
	OwnerUser     AccountOwnerKind = "user"
	OwnerStrategy AccountOwnerKind = "strategy"
)

// AccountKind classifies the purpose of an Account.
type AccountKind string

const (
	AccountSpot      AccountKind = "spot"
	AccountMargin    AccountKind = "margin"
	AccountLiability AccountKind = "liability"
	AccountEquity    AccountKind = "equity"
)

// AccountKey is the tuple identifying exactly one Account.
type AccountKey struct {
	Owner    AccountOwnerKind
	Strategy core.ID // NilID unless Owner == OwnerStrategy
	Venue    core.ID
	Asset    core.ID
	Kind     AccountKind
}

// Account is a typed ledger account. Balance is a pure projection, rebuilt
// by replaying Transfers; it is cached here for O(1) reads and kept in sync
// by Ledger.post under the ledger's mutex.
type Account struct {
	ID      core.ID
	Key     AccountKey
	Balance core.Decimal
}
