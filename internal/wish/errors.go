package wish

import (
	"errors"
	"fmt"

	"github.com/xtding233/wish-backend/internal/account"
)

// Reason classifies an expected, recoverable wish failure.
type Reason string

const (
	InvalidCount      Reason = "invalid_count"
	PoolMissing       Reason = "pool_missing"
	PoolNotActive     Reason = "pool_not_active"
	LimitReached      Reason = "limit_reached"
	LedgerUnavailable Reason = "ledger_unavailable"
	CostInsufficient  Reason = "cost_insufficient"
	CostFailure       Reason = "cost_failure"
	UnknownTicket     Reason = "unknown_ticket"
	InvalidAccount    Reason = "invalid_account"
)

func (r Reason) Error() string { return string(r) }

// Error is returned for every rejected wish. errors.Is matches it against
// its Reason, so callers can write errors.Is(err, wish.LimitReached).
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	r, ok := target.(Reason)
	return ok && r == e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func fail(r Reason, format string, args ...any) *Error {
	return &Error{Reason: r, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the Reason from err, or "" if err is not a wish failure.
func ReasonOf(err error) Reason {
	var we *Error
	if errors.As(err, &we) {
		return we.Reason
	}
	return ""
}

// checkAccount rejects names that could not be stored or safely placed in
// a reward command.
func checkAccount(acct string) error {
	if !account.ValidKey(acct) {
		return &Error{Reason: InvalidAccount, Detail: fmt.Sprintf("%q", acct), Err: account.ErrInvalidAccount}
	}
	return nil
}
