package wish

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xtding233/wish-backend/internal/account"
	"github.com/xtding233/wish-backend/internal/config"
	"github.com/xtding233/wish-backend/internal/dispatch"
	"github.com/xtding233/wish-backend/internal/gacha"
	"github.com/xtding233/wish-backend/internal/ledger"
	"github.com/xtding233/wish-backend/internal/token"
)

// Options wires the engine to its collaborators. Store is required; a nil
// Ledger makes every priced wish fail with LedgerUnavailable.
type Options struct {
	Store      account.Store
	Ledger     ledger.Ledger
	Dispatcher dispatch.Dispatcher
	Logger     *zap.Logger
	// RNG may be any source; New serializes draws from it.
	RNG   gacha.RandomSource
	Clock func() time.Time
	// Translate maps reward names for the returned descriptions.
	Translate func(string) string
}

// Engine runs wish transactions against an atomically swappable config.
type Engine struct {
	snap  atomic.Pointer[config.Snapshot]
	locks *account.Locker

	store      account.Store
	ledger     ledger.Ledger
	dispatcher dispatch.Dispatcher
	log        *zap.Logger
	rng        gacha.RandomSource
	now        func() time.Time
	translate  func(string) string
}

func New(snap *config.Snapshot, opts Options) *Engine {
	e := &Engine{
		locks:      account.NewLocker(),
		store:      opts.Store,
		ledger:     opts.Ledger,
		dispatcher: opts.Dispatcher,
		log:        opts.Logger,
		rng:        opts.RNG,
		now:        opts.Clock,
		translate:  opts.Translate,
	}
	if e.store == nil {
		e.store = account.NewMemoryStore()
	}
	if e.dispatcher == nil {
		e.dispatcher = dispatch.NewCommandDispatcher(dispatch.LogSink{Log: opts.Logger}, opts.Logger)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.rng == nil {
		e.rng = gacha.DefaultRNG()
	}
	// one source serves every account's transaction
	e.rng = gacha.Synchronized(e.rng)
	if e.now == nil {
		e.now = time.Now
	}
	if snap == nil {
		snap = &config.Snapshot{Pools: map[string]*config.Pool{}}
	}
	e.snap.Store(snap)
	return e
}

// Snapshot returns the config in effect.
func (e *Engine) Snapshot() *config.Snapshot { return e.snap.Load() }

// Swap installs a new config and returns the previous one. Transactions
// already running keep the snapshot they started with.
func (e *Engine) Swap(snap *config.Snapshot) *config.Snapshot {
	if snap == nil {
		return e.snap.Load()
	}
	old := e.snap.Swap(snap)
	e.log.Info("config swapped", zap.String("version", snap.Version), zap.Int("pools", len(snap.Pools)))
	return old
}

// Reload loads from l and swaps on success; on error the current config stays.
func (e *Engine) Reload(l *config.Loader) error {
	snap, err := l.Load()
	if err != nil {
		e.log.Warn("config reload failed", zap.Error(err))
		return err
	}
	e.Swap(snap)
	return nil
}

// Pools lists the configured pools in declaration order.
func (e *Engine) Pools() []*config.Pool { return e.snap.Load().PoolList() }

// Outcome is a completed wish.
type Outcome struct {
	TxID        string         `json:"tx_id"`
	Pool        string         `json:"pool"`
	Count       int            `json:"count"`
	Rewards     []string       `json:"rewards"`
	Results     []gacha.Result `json:"results"`
	Cost        int            `json:"cost"`
	TicketID    string         `json:"ticket_id,omitempty"`
	TicketsUsed int            `json:"tickets_used"`
	PaidCount   int            `json:"paid_count"`
	Pity        int            `json:"pity"`
	Guarantees  int            `json:"guarantees"`
	// Persisted is false when the account record could not be saved after
	// rewards were granted. The charge is not refunded.
	Persisted bool `json:"persisted"`
}

// PerformWish draws count times from poolID for acct. Currency is charged
// before any reward is resolved; once charged the transaction runs to the
// end even if ctx is cancelled.
func (e *Engine) PerformWish(ctx context.Context, acct, poolID string, count int) (*Outcome, error) {
	if count <= 0 {
		return nil, fail(InvalidCount, "count %d must be positive", count)
	}
	if err := checkAccount(acct); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(acct)
	defer unlock()

	snap := e.snap.Load()
	pool, ok := snap.Pool(poolID)
	if !ok {
		return nil, fail(PoolMissing, "pool %q", poolID)
	}
	if most := pool.PerWishCap(); count > most {
		return nil, fail(InvalidCount, "count %d exceeds %d per wish in pool %q", count, most, poolID)
	}
	now := e.now()
	if !pool.IsActive(now) {
		return nil, fail(PoolNotActive, "pool %q", poolID)
	}

	rec, err := e.store.Load(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", acct, err)
	}
	rec = rec.Ensure()

	// Allow and Mark below see the same state and instant.
	limitState := rec.Limits[pool.ID]
	if pool.Limit != nil && !pool.Limit.Allow(limitState, now, count) {
		return nil, fail(LimitReached, "%d of %d used", pool.Limit.Count-pool.Limit.Remaining(limitState, now), pool.Limit.Count)
	}

	counter := rec.Pity[pool.CountsName]

	paidCount := count
	var (
		rule *token.Rule
		sub  token.Substitution
	)
	if rule = snap.Tickets.Find(pool.ID); rule != nil {
		if sub, err = rule.Substitute(rec.Tickets[rule.ID], count); err != nil {
			return nil, &Error{Reason: InvalidCount, Detail: "ticket units", Err: err}
		}
		paidCount = sub.PaidCount
	}

	cost, err := pool.CalculateCost(paidCount)
	if err != nil {
		return nil, &Error{Reason: InvalidCount, Detail: fmt.Sprintf("price of %d draws", paidCount), Err: err}
	}
	if cost > 0 {
		if err := e.charge(ctx, acct, cost); err != nil {
			return nil, err
		}
	}
	// charged: nothing below may abort the transaction
	ctx = context.WithoutCancel(ctx)

	out := &Outcome{
		TxID:      uuid.NewString(),
		Pool:      pool.ID,
		Count:     count,
		Cost:      cost,
		PaidCount: paidCount,
	}
	if rule != nil {
		out.TicketID = rule.ID
		out.TicketsUsed = sub.Used
		if left := rec.Tickets[rule.ID] - sub.Used; left > 0 {
			rec.Tickets[rule.ID] = left
		} else {
			delete(rec.Tickets, rule.ID)
		}
	}

	ps := pool.Pity(counter)
	for i := 0; i < count; i++ {
		var res gacha.Result
		if ps.Advance() {
			res = pool.PickGuarantee(e.rng)
			out.Guarantees++
		} else {
			res = pool.PickReward(e.rng)
		}
		for _, a := range res.Actions {
			if err := e.dispatcher.Apply(ctx, acct, a); err != nil {
				e.log.Warn("reward dispatch failed",
					zap.String("tx", out.TxID),
					zap.String("account", acct),
					zap.String("reward", a.Name),
					zap.Error(err))
			}
		}
		out.Results = append(out.Results, res)
		out.Rewards = append(out.Rewards, res.DisplayWith(e.translate))
	}
	out.Pity = ps.Count

	rec.Pity[pool.CountsName] = ps.Count
	if pool.Limit != nil {
		rec.Limits[pool.ID] = pool.Limit.Mark(limitState, now, count)
	}
	rec.Stats.TotalWishes += count
	if out.Guarantees > 0 {
		rec.Stats.Guarantees[pool.ID] += out.Guarantees
	}
	rec.AppendHistory(account.HistoryEntry{
		TxID:        out.TxID,
		Pool:        pool.ID,
		Count:       count,
		Cost:        cost,
		TicketsUsed: out.TicketsUsed,
		Guarantees:  out.Guarantees,
		Rewards:     out.Rewards,
		At:          now,
	}, snap.History.MaxSize)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := e.store.Save(ctx, acct, rec); err != nil {
		e.log.Error("account save failed after charge",
			zap.String("tx", out.TxID),
			zap.String("account", acct),
			zap.Int("cost", cost),
			zap.Error(err))
	} else {
		out.Persisted = true
	}

	e.log.Info("wish",
		zap.String("tx", out.TxID),
		zap.String("account", acct),
		zap.String("pool", pool.ID),
		zap.Int("count", count),
		zap.Int("cost", cost),
		zap.Int("tickets_used", out.TicketsUsed),
		zap.Int("pity", out.Pity),
		zap.Int("guarantees", out.Guarantees))
	return out, nil
}

func (e *Engine) charge(ctx context.Context, acct string, cost int) error {
	if e.ledger == nil {
		return fail(LedgerUnavailable, "no ledger configured for a cost of %d", cost)
	}
	amount := decimal.NewFromInt(int64(cost))
	balance, err := e.ledger.Balance(ctx, acct)
	if err != nil {
		return &Error{Reason: LedgerUnavailable, Detail: "balance query", Err: err}
	}
	if balance.LessThan(amount) {
		return fail(CostInsufficient, "need %s, have %s", amount, balance)
	}
	if err := e.ledger.Withdraw(ctx, acct, amount); err != nil {
		return &Error{Reason: CostFailure, Detail: "withdraw " + amount.String(), Err: err}
	}
	return nil
}

// Status is an account's standing in one pool.
type Status struct {
	Pool     string `json:"pool"`
	Active   bool   `json:"active"`
	Pity     int    `json:"pity"`
	MaxCount int    `json:"max_count"`
	TicketID string `json:"ticket_id,omitempty"`
	Tickets  int    `json:"tickets"`
	// LimitRemaining is -1 when the pool has no rate limit.
	LimitRemaining int        `json:"limit_remaining"`
	LimitResetAt   *time.Time `json:"limit_reset_at,omitempty"`
}

// QueryStatus reports pity and ticket balance for acct in poolID.
func (e *Engine) QueryStatus(ctx context.Context, acct, poolID string) (Status, error) {
	if err := checkAccount(acct); err != nil {
		return Status{}, err
	}
	snap := e.snap.Load()
	pool, ok := snap.Pool(poolID)
	if !ok {
		return Status{}, fail(PoolMissing, "pool %q", poolID)
	}
	rec, err := e.store.Load(ctx, acct)
	if err != nil {
		return Status{}, fmt.Errorf("load account %s: %w", acct, err)
	}
	rec = rec.Ensure()
	now := e.now()
	st := Status{
		Pool:           pool.ID,
		Active:         pool.IsActive(now),
		Pity:           rec.Pity[pool.CountsName],
		MaxCount:       pool.MaxCount,
		LimitRemaining: -1,
	}
	if rule := snap.Tickets.Find(pool.ID); rule != nil {
		st.TicketID = rule.ID
		st.Tickets = rec.Tickets[rule.ID]
	}
	if pool.Limit != nil {
		ls := rec.Limits[pool.ID]
		st.LimitRemaining = pool.Limit.Remaining(ls, now)
		if at := pool.Limit.ResetAt(ls, now); !at.IsZero() {
			st.LimitResetAt = &at
		}
	}
	return st, nil
}

// AddTickets credits (or with a negative delta debits) ticketID for acct and
// returns the new balance. Balances never go below zero.
func (e *Engine) AddTickets(ctx context.Context, acct, ticketID string, delta int) (int, error) {
	if err := checkAccount(acct); err != nil {
		return 0, err
	}
	if e.snap.Load().Tickets.ByID(ticketID) == nil {
		return 0, fail(UnknownTicket, "ticket %q", ticketID)
	}
	unlock := e.locks.Lock(acct)
	defer unlock()

	rec, err := e.store.Load(ctx, acct)
	if err != nil {
		return 0, fmt.Errorf("load account %s: %w", acct, err)
	}
	rec = rec.Ensure()
	n := rec.Tickets[ticketID] + delta
	if n <= 0 {
		n = 0
		delete(rec.Tickets, ticketID)
	} else {
		rec.Tickets[ticketID] = n
	}
	now := e.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if err := e.store.Save(ctx, acct, rec); err != nil {
		return 0, fmt.Errorf("save account %s: %w", acct, err)
	}
	return n, nil
}

// History returns the newest-last wish history of acct.
func (e *Engine) History(ctx context.Context, acct string) ([]account.HistoryEntry, error) {
	if err := checkAccount(acct); err != nil {
		return nil, err
	}
	rec, err := e.store.Load(ctx, acct)
	if err != nil {
		return nil, err
	}
	return rec.Ensure().History, nil
}

// IsRejection reports whether err is a wish failure rather than an I/O error.
func IsRejection(err error) bool {
	var we *Error
	return errors.As(err, &we)
}
