package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/models"
)

// mockLoader is a func-field Loader that counts calls.
type mockLoader struct {
	mu    sync.Mutex
	calls int
	fn    func(userID string) ([]models.Transaction, error)
}

func (m *mockLoader) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(userID)
}

func (m *mockLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func record(id string, day int) models.Transaction {
	d := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return models.Transaction{
		Base:   models.Base{ID: id},
		UserID: "user-1",
		Title:  id,
		Amount: decimal.NewFromInt(1),
		Type:   models.TransactionTypeExpense,
		Date:   &d,
	}
}

func TestHub_FetchOnceSortsNewestFirst(t *testing.T) {
	loader := &mockLoader{fn: func(string) ([]models.Transaction, error) {
		return []models.Transaction{record("old", 1), record("new", 9), record("mid", 5)}, nil
	}}

	snap, err := NewHub(loader).FetchOnce(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.UserID != "user-1" || len(snap.Transactions) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Transactions[0].ID != "new" || snap.Transactions[2].ID != "old" {
		t.Errorf("expected newest first, got %s..%s", snap.Transactions[0].ID, snap.Transactions[2].ID)
	}
}

func TestHub_SubscribeLifecycle(t *testing.T) {
	var mu sync.Mutex
	data := []models.Transaction{record("a", 1)}
	loader := &mockLoader{fn: func(string) ([]models.Transaction, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.Transaction(nil), data...), nil
	}}
	hub := NewHub(loader)

	var got []int
	unsubscribe, err := hub.Subscribe(context.Background(), "user-1", func(s Snapshot) {
		got = append(got, len(s.Transactions))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected initial snapshot with 1 record, got %v", got)
	}

	mu.Lock()
	data = append(data, record("b", 2))
	mu.Unlock()
	hub.Changed(context.Background(), "user-1")
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("expected pushed snapshot with 2 records, got %v", got)
	}

	hub.Changed(context.Background(), "someone-else")
	if len(got) != 2 {
		t.Errorf("other users' changes must not be delivered, got %v", got)
	}

	unsubscribe()
	unsubscribe()
	if n := hub.Subscribers("user-1"); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}

	calls := loader.Calls()
	hub.Changed(context.Background(), "user-1")
	if len(got) != 2 {
		t.Errorf("unsubscribed callback was called: %v", got)
	}
	if loader.Calls() != calls {
		t.Error("Changed should not reload without subscribers")
	}
}

func TestHub_WriteDuringInitialLoad(t *testing.T) {
	var mu sync.Mutex
	data := []models.Transaction{record("a", 1)}
	started := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once

	loader := &mockLoader{fn: func(string) ([]models.Transaction, error) {
		mu.Lock()
		out := append([]models.Transaction(nil), data...)
		mu.Unlock()

		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
		return out, nil
	}}
	hub := NewHub(loader)

	var (
		deliveriesMu sync.Mutex
		deliveries   []int
	)
	done := make(chan error, 1)
	go func() {
		_, err := hub.Subscribe(context.Background(), "user-1", func(s Snapshot) {
			deliveriesMu.Lock()
			deliveries = append(deliveries, len(s.Transactions))
			deliveriesMu.Unlock()
		})
		done <- err
	}()

	// The initial load has read one record and is still in flight when the
	// second record is written.
	<-started
	mu.Lock()
	data = append(data, record("b", 2))
	mu.Unlock()
	hub.Changed(context.Background(), "user-1")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deliveriesMu.Lock()
	defer deliveriesMu.Unlock()
	if len(deliveries) == 0 {
		t.Fatal("expected at least one delivery")
	}
	if last := deliveries[len(deliveries)-1]; last != 2 {
		t.Errorf("last snapshot has %d records, want 2 (deliveries %v)", last, deliveries)
	}
	for i := 1; i < len(deliveries); i++ {
		if deliveries[i] < deliveries[i-1] {
			t.Errorf("an older snapshot followed a newer one: %v", deliveries)
		}
	}
}

func TestHub_SubscribeLoadError(t *testing.T) {
	loader := &mockLoader{fn: func(string) ([]models.Transaction, error) {
		return nil, errors.New("db down")
	}}
	hub := NewHub(loader)

	_, err := hub.Subscribe(context.Background(), "user-1", func(Snapshot) {
		t.Error("callback must not run when the initial load fails")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := hub.Subscribers("user-1"); n != 0 {
		t.Errorf("failed subscription should not be registered, got %d", n)
	}
}

func TestMailbox_LatestWins(t *testing.T) {
	m := NewMailbox()
	m.Put(Snapshot{UserID: "first"})
	m.Put(Snapshot{UserID: "second"})
	m.Put(Snapshot{UserID: "third"})

	select {
	case s := <-m.C():
		if s.UserID != "third" {
			t.Errorf("expected latest snapshot, got %q", s.UserID)
		}
	default:
		t.Fatal("expected a snapshot")
	}

	select {
	case s := <-m.C():
		t.Errorf("mailbox should be empty, got %q", s.UserID)
	default:
	}
}

func TestChangeNoticeJSON(t *testing.T) {
	body, err := NewChangeNotice("user-1", TransactionsCollection).ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := ChangeNoticeFromJSON(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.UserID != "user-1" || n.Collection != "transactions" {
		t.Errorf("unexpected notice %+v", n)
	}
	if _, err := ChangeNoticeFromJSON([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.expected {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("broken pipe"), true},
		{errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.expected {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
