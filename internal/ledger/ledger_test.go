package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemoryWithdraw(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(decimal.NewFromInt(500))

	if b, _ := m.Balance(ctx, "alice"); !b.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("initial = %s", b)
	}
	if err := m.Withdraw(ctx, "alice", decimal.NewFromInt(300)); err != nil {
		t.Fatal(err)
	}
	if err := m.Withdraw(ctx, "alice", decimal.NewFromInt(201)); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	if b, _ := m.Balance(ctx, "alice"); !b.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("after withdraw = %s", b)
	}
	if err := m.Withdraw(ctx, "alice", decimal.NewFromInt(-1)); !errors.Is(err, ErrRejected) {
		t.Fatalf("negative amount: %v", err)
	}
	if b := m.Deposit("alice", decimal.RequireFromString("0.5")); !b.Equal(decimal.RequireFromString("200.5")) {
		t.Fatalf("deposit = %s", b)
	}
	if b, _ := m.Balance(ctx, "bob"); !b.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("bob = %s", b)
	}
}

func TestMemoryFailWithdraw(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(decimal.NewFromInt(100))
	m.FailWithdraw = func(string, decimal.Decimal) error { return ErrRejected }
	if err := m.Withdraw(ctx, "alice", decimal.NewFromInt(10)); !errors.Is(err, ErrRejected) {
		t.Fatalf("got %v", err)
	}
	if b, _ := m.Balance(ctx, "alice"); !b.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance changed on failure: %s", b)
	}
}
