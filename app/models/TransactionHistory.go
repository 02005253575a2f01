package models

import uuid "github.com/satori/go.uuid"

type TransactionType string

const (
	TxRent         TransactionType = "rent"
	TxSalary       TransactionType = "salary"
	TxBuy          TransactionType = "buy"
	TxSell         TransactionType = "sell"
	TxUpgrade      TransactionType = "upgrade"
	TxDowngrade    TransactionType = "downgrade"
	TxMortgage     TransactionType = "mortgage"
	TxUnmortgage   TransactionType = "unmortgage"
	TxFine         TransactionType = "fine"
	TxReward       TransactionType = "reward"
	TxTrade        TransactionType = "trade"
	TxFreeFromJail TransactionType = "free_from_jail"
)

// TransactionInfo is one immutable ledger line. A nil (uuid.Nil) sender or
// receiver means the bank.
type TransactionInfo struct {
	Type       TransactionType `json:"type"`
	SenderId   uuid.UUID       `json:"sender_id"`
	ReceiverId uuid.UUID       `json:"receiver_id"`
	Amount     int             `json:"amount"`
	WithBank   bool            `json:"with_bank"`
}

// TransactionHistory is the append-only ledger for one game. Entries are
// kept in chronological order; observers rendering a feed reverse it.
//
// There is no open/commit state to forget: each public action opens its own
// Batch, and adding an entry without a batch is unrepresentable.
type TransactionHistory struct {
	entries []TransactionInfo
}

func NewTransactionHistory() *TransactionHistory {
	return &TransactionHistory{entries: []TransactionInfo{}}
}

// History returns the permanent log, oldest first.
func (h *TransactionHistory) History() []TransactionInfo {
	out := make([]TransactionInfo, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *TransactionHistory) Len() int { return len(h.entries) }

// Begin opens the batch for a single public action. The returned batch is
// that action's diff: one dice roll may add several lines (salary, rent,
// tax) and they all land in the same batch.
func (h *TransactionHistory) Begin() *Batch {
	return &Batch{history: h}
}

// Batch collects the ledger lines of one action.
type Batch struct {
	history *TransactionHistory
	entries []TransactionInfo
}

// Add records the entry in both the permanent log and the batch, then runs
// apply with the entry's amount. Colocating the ledger line with its
// economic effect keeps each line atomic.
func (b *Batch) Add(tx TransactionInfo, apply func(amount int)) {
	b.history.entries = append(b.history.entries, tx)
	b.entries = append(b.entries, tx)
	apply(tx.Amount)
}

// Entries returns the lines recorded by this batch, in order.
func (b *Batch) Entries() []TransactionInfo {
	if b.entries == nil {
		return []TransactionInfo{}
	}
	return b.entries
}
