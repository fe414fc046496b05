package account

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xtding233/wish-backend/internal/limit"
)

func sampleRecord() *Record {
	r := NewRecord()
	r.Pity["star"] = 42
	r.Tickets["star_ticket"] = 7
	r.Limits["Daily"] = limit.State{WindowStart: 1700000000000, Used: 1}
	r.Stats.TotalWishes = 50
	r.Stats.Guarantees["Starpath"] = 1
	r.History = []HistoryEntry{{TxID: "t1", Pool: "Daily", Count: 1, Rewards: []string{"bread x1"}}}
	r.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r.UpdatedAt = r.CreatedAt
	return r
}

func TestCloneIsDeep(t *testing.T) {
	r := sampleRecord()
	c := r.Clone()
	c.Pity["star"] = 0
	c.Tickets["star_ticket"] = 0
	c.Limits["Daily"] = limit.State{}
	c.History[0].Rewards[0] = "changed"
	if r.Pity["star"] != 42 || r.Tickets["star_ticket"] != 7 || r.Limits["Daily"].Used != 1 {
		t.Fatal("clone shares maps with original")
	}
	if r.History[0].Rewards[0] != "bread x1" {
		t.Fatal("clone shares history rewards")
	}
	var nilRec *Record
	if got := nilRec.Clone(); got == nil || got.Pity == nil {
		t.Fatal("nil clone must be an empty record")
	}
}

func TestAppendHistoryCaps(t *testing.T) {
	r := NewRecord()
	for i := 0; i < 5; i++ {
		r.AppendHistory(HistoryEntry{Count: i}, 3)
	}
	if len(r.History) != 3 || r.History[0].Count != 2 || r.History[2].Count != 4 {
		t.Fatalf("history = %+v", r.History)
	}
	r.AppendHistory(HistoryEntry{}, 0)
	if r.History != nil {
		t.Fatal("keep 0 should clear history")
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	r := sampleRecord()
	flat := r.Flatten()
	want := map[string]int64{
		"pity.star":                42,
		"tickets.star_ticket":      7,
		"limits.Daily.windowStart": 1700000000000,
		"limits.Daily.count":       1,
	}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("flat = %v", flat)
	}
	back := FromFlat(flat)
	if !reflect.DeepEqual(back.Pity, r.Pity) || !reflect.DeepEqual(back.Tickets, r.Tickets) || !reflect.DeepEqual(back.Limits, r.Limits) {
		t.Fatalf("round trip = %+v", back)
	}
	if lines := r.FlatLines(); len(lines) != 4 || lines[0] != "limits.Daily.count=1" {
		t.Fatalf("lines = %v", lines)
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	fresh, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Pity) != 0 || fresh.Pity == nil {
		t.Fatalf("fresh record = %+v", fresh)
	}

	want := sampleRecord()
	if err := s.Save(ctx, "alice", want); err != nil {
		t.Fatal(err)
	}
	want.Pity["star"] = 1 // must not leak into the store

	got, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Pity["star"] != 42 || got.Tickets["star_ticket"] != 7 {
		t.Fatalf("loaded = %+v", got)
	}
	if got.Limits["Daily"] != (limit.State{WindowStart: 1700000000000, Used: 1}) {
		t.Fatalf("limits = %+v", got.Limits)
	}
	if len(got.History) != 1 || got.History[0].Rewards[0] != "bread x1" {
		t.Fatalf("history = %+v", got.History)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}

	if _, err := s.Load(ctx, "../escape"); err != ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := s.Save(ctx, "", want); err != ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := s.Save(ctx, "bob @a\nop mallory", want); err != ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
}

func TestValidKey(t *testing.T) {
	for _, k := range []string{"steve", "Alex_01", "a.b-c", strings.Repeat("x", 64)} {
		if !ValidKey(k) {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []string{"", ".", "..", "../escape", "a b", "bob @a\nop mallory", "x;y", "名字", strings.Repeat("x", 65)} {
		if ValidKey(k) {
			t.Errorf("%q should be rejected", k)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStore(t, s)
	if accts := s.Accounts(); len(accts) != 1 || accts[0] != "alice" {
		t.Fatalf("accounts = %v", accts)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestRedisRecordCodec(t *testing.T) {
	r := sampleRecord()
	raw, err := encodeRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	back, err := decodeRecord(raw)
	if err != nil {
		t.Fatal(err)
	}
	if back.Pity["star"] != 42 || back.Limits["Daily"].WindowStart != 1700000000000 || back.Stats.Guarantees["Starpath"] != 1 {
		t.Fatalf("decoded = %+v", back)
	}
	if _, err := decodeRecord("{not json"); err == nil {
		t.Fatal("expected decode error")
	}
	if k := NewRedisStore(nil, "wish:account:").Key("bob"); k != "wish:account:bob" {
		t.Fatalf("key = %s", k)
	}
}

func TestLockerSerializesAccount(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("alice")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("concurrent holders = %d", maxSeen)
	}
	if l.size() != 0 {
		t.Fatalf("lock entries leaked: %d", l.size())
	}
	// different accounts do not block each other
	a := l.Lock("a")
	b := l.Lock("b")
	b()
	a()
}
