package account

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

// ErrInvalidAccount is returned for account keys that cannot be stored.
var ErrInvalidAccount = errors.New("account: invalid account key")

// Store persists per-account records. Load returns a fresh empty record for
// accounts never saved. Records returned by Load are owned by the caller.
type Store interface {
	Load(ctx context.Context, account string) (*Record, error)
	Save(ctx context.Context, account string, rec *Record) error
}

var accountKey = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidKey reports whether account is usable as a store key and as a
// player argument in reward commands.
func ValidKey(account string) bool {
	return account != "." && account != ".." && accountKey.MatchString(account)
}

func checkAccount(account string) error {
	if !ValidKey(account) {
		return ErrInvalidAccount
	}
	return nil
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*Record)}
}

func (m *MemoryStore) Load(_ context.Context, account string) (*Record, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recs[account].Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, account string, rec *Record) error {
	if err := checkAccount(account); err != nil {
		return err
	}
	m.mu.Lock()
	m.recs[account] = rec.Clone()
	m.mu.Unlock()
	return nil
}

// Accounts lists stored account keys; used by tests and admin dumps.
func (m *MemoryStore) Accounts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.recs))
	for k := range m.recs {
		out = append(out, k)
	}
	return out
}
