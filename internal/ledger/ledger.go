package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficient means the balance does not cover the amount.
	ErrInsufficient = errors.New("ledger: insufficient balance")
	// ErrRejected means the ledger refused the withdrawal.
	ErrRejected = errors.New("ledger: withdrawal rejected")
)

// Ledger is the external currency account. Withdraw must be atomic: it either
// removes the full amount or nothing.
type Ledger interface {
	Balance(ctx context.Context, account string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, account string, amount decimal.Decimal) error
}

// Memory is an in-process ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	initial  decimal.Decimal

	// FailWithdraw, when set, is consulted before every withdrawal and its
	// error returned without touching the balance.
	FailWithdraw func(account string, amount decimal.Decimal) error
}

// NewMemory creates a ledger where unseen accounts start at initial.
func NewMemory(initial decimal.Decimal) *Memory {
	return &Memory{balances: make(map[string]decimal.Decimal), initial: initial}
}

func (m *Memory) balance(account string) decimal.Decimal {
	if b, ok := m.balances[account]; ok {
		return b
	}
	return m.initial
}

func (m *Memory) Balance(_ context.Context, account string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(account), nil
}

func (m *Memory) Withdraw(_ context.Context, account string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.IsNegative() {
		return ErrRejected
	}
	if m.FailWithdraw != nil {
		if err := m.FailWithdraw(account, amount); err != nil {
			return err
		}
	}
	b := m.balance(account)
	if b.LessThan(amount) {
		return ErrInsufficient
	}
	m.balances[account] = b.Sub(amount)
	return nil
}

// Deposit credits amount, creating the account at initial if needed.
func (m *Memory) Deposit(account string, amount decimal.Decimal) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balance(account).Add(amount)
	m.balances[account] = b
	return b
}
