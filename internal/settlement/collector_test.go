package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// fakeInserter records batches it receives.
type fakeInserter struct {
	mu      sync.Mutex
	batches [][]Receipt
}

func (f *fakeInserter) BatchInsert(_ context.Context, receipts []Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]Receipt, len(receipts))
	copy(batch, receipts)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeInserter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func receipt(id string) Receipt {
	return Receipt{
		ID:             id,
		ConsumerID:     "agent-7",
		ProductID:      "trustscore-standard",
		Account:        "0.0.1001",
		TransactionRef: "tx-" + id,
		Amount:         decimal.RequireFromString("0.50"),
		Currency:       "USDC",
		Score:          74,
		Timestamp:      time.Now(),
	}
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 3, time.Hour)

	c.Record(receipt("a"))
	c.Record(receipt("b"))
	if store.total() != 0 {
		t.Fatal("should not flush below batch size")
	}

	c.Record(receipt("c"))
	if store.total() != 3 {
		t.Fatalf("expected 3 flushed receipts, got %d", store.total())
	}
	if c.BufferLen() != 0 {
		t.Fatalf("buffer should be empty after flush, has %d", c.BufferLen())
	}
}

func TestCollectorStopFlushesRemainder(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 100, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Record(receipt("a"))
	c.Record(receipt("b"))
	c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}

	if store.total() != 2 {
		t.Fatalf("expected final flush of 2 receipts, got %d", store.total())
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 10, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Record(receipt(string(rune('a' + n%26))))
		}(i)
	}
	wg.Wait()
	c.flush()

	if store.total() != 50 {
		t.Fatalf("expected all 50 receipts persisted, got %d", store.total())
	}
}
