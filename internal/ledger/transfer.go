package ledger

import (
	"time"

	"github.com/arkin-go/core/internal/core"
)

// TransferKind classifies why a Transfer was posted.
type TransferKind string

const (
	TransferDeposit     TransferKind = "deposit"
	TransferWithdraw    TransferKind = "withdraw"
	TransferTrade       TransferKind = "trade"
	TransferCommission  TransferKind = "commission"
	TransferFunding     TransferKind = "funding"
	TransferRealizedPnL TransferKind = "realized-pnl"
	TransferRebalance   TransferKind = "rebalance"
)

// Transfer is a single double-entry posting: one debit, one credit, same
// asset, positive amount. Transfers are append-only and form the ledger's
// single source of truth.
type Transfer struct {
	ID            core.ID
	EventTime     time.Time
	DebitAccount  AccountKey
	CreditAccount AccountKey
	Asset         core.ID
	Amount        core.Decimal
	Kind          TransferKind
}
