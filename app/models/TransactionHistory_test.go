package models

import (
	"testing"

	uuid "github.com/satori/go.uuid"
)

func TestBatchAppendsToPermanentLog(t *testing.T) {
	h := NewTransactionHistory()
	playerId := uuid.NewV4()
	applied := 0

	first := h.Begin()
	first.Add(TransactionInfo{Type: TxSalary, ReceiverId: playerId, Amount: 200, WithBank: true}, func(amount int) {
		applied += amount
	})

	second := h.Begin()
	second.Add(TransactionInfo{Type: TxFine, SenderId: playerId, Amount: 100, WithBank: true}, func(amount int) {
		applied -= amount
	})
	second.Add(TransactionInfo{Type: TxRent, SenderId: playerId, Amount: 30}, func(amount int) {
		applied -= amount
	})

	if applied != 70 {
		t.Fatalf("apply callbacks ran wrong, got %d", applied)
	}
	if len(first.Entries()) != 1 || len(second.Entries()) != 2 {
		t.Fatalf("batch sizes %d and %d", len(first.Entries()), len(second.Entries()))
	}

	log := h.History()
	if len(log) != 3 {
		t.Fatalf("permanent log has %d entries, expected 3", len(log))
	}
	if log[0].Type != TxSalary || log[1].Type != TxFine || log[2].Type != TxRent {
		t.Fatalf("log out of order: %+v", log)
	}
}

func TestEmptyBatchEntriesNotNil(t *testing.T) {
	h := NewTransactionHistory()
	if entries := h.Begin().Entries(); entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}
