package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type recordingStore struct {
	*storage.Memory
	mu     sync.Mutex
	writes []string
	setErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: storage.NewMemory()}
}

func (s *recordingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.writes = append(s.writes, value)
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s *recordingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func newTestEngine(t *testing.T, store storage.Store) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), store, Options{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close(context.Background()) })
	return engine
}

func flush(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func ring(id string, price int64) Product {
	return Product{ID: id, Name: "Ring " + id, Price: decimal.NewFromInt(price)}
}

func intPtr(v int) *int { return &v }

func TestEngineScenario(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, storage.NewMemory())
	p := ring("1", 45000)

	if err := engine.Add(ctx, p, 1, types.Some("18"), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if engine.Len() != 1 || !engine.TotalPrice().Equal(decimal.NewFromInt(45000)) {
		t.Fatalf("unexpected cart after first add: len=%d total=%s", engine.Len(), engine.TotalPrice())
	}

	if err := engine.Add(ctx, p, 2, types.Some("18"), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	key18 := NewKey("1", types.Some("18"), types.None())
	if engine.Len() != 1 || engine.QuantityOf(key18) != 3 {
		t.Fatalf("expected one line with quantity 3, got len=%d qty=%d", engine.Len(), engine.QuantityOf(key18))
	}
	if !engine.TotalPrice().Equal(decimal.NewFromInt(135000)) {
		t.Fatalf("expected 135000, got %s", engine.TotalPrice())
	}

	if err := engine.Add(ctx, p, 1, types.Some("19"), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if engine.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", engine.Len())
	}

	if err := engine.Remove(ctx, key18); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if engine.Len() != 1 || !engine.TotalPrice().Equal(decimal.NewFromInt(45000)) {
		t.Fatalf("unexpected cart after remove: len=%d total=%s", engine.Len(), engine.TotalPrice())
	}
}

func TestEngineAddDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	engine := newTestEngine(t, store)

	if err := engine.Add(ctx, ring("1", 10), 0, types.None(), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := engine.QuantityOf(ProductKey("1")); got != 1 {
		t.Fatalf("expected default quantity 1, got %d", got)
	}

	cases := []struct {
		name string
		p    Product
		qty  int
	}{
		{name: "negative quantity", p: ring("2", 10), qty: -1},
		{name: "empty id", p: ring("", 10), qty: 1},
		{name: "negative price", p: ring("3", -5), qty: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.Add(ctx, tc.p, tc.qty, types.None(), types.None())
			if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	flush(t, engine)
	if engine.Len() != 1 || store.writeCount() != 1 {
		t.Fatalf("rejected adds must not mutate or write: len=%d writes=%d", engine.Len(), store.writeCount())
	}
}

func TestEngineAddDoesNotEnforceMaxQuantity(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, storage.NewMemory())
	p := ring("1", 10)
	p.MaxQuantity = intPtr(2)

	if err := engine.Add(ctx, p, 2, types.None(), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Add(ctx, p, 2, types.None(), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := engine.QuantityOf(ProductKey("1")); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestEngineIdentityIsStrict(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, storage.NewMemory())
	p := ring("1", 10)

	_ = engine.Add(ctx, p, 1, types.None(), types.None())
	_ = engine.Add(ctx, p, 1, types.Some(""), types.None())
	_ = engine.Add(ctx, p, 1, types.None(), types.Some(""))

	if engine.Len() != 3 {
		t.Fatalf("absent and empty variants must be distinct lines, got %d", engine.Len())
	}
	if engine.Contains(NewKey("1", types.Some("M"), types.None())) {
		t.Fatalf("unexpected match for unknown size")
	}
}

func TestEngineUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	engine := newTestEngine(t, store)
	p := ring("1", 100)
	p.MaxQuantity = intPtr(5)
	key := ProductKey("1")

	if err := engine.Add(ctx, p, 2, types.None(), types.None()); err != nil {
		t.Fatalf("add: %v", err)
	}
	flush(t, engine)
	writes := store.writeCount()

	err := engine.UpdateQuantity(ctx, key, 6)
	if !pkgerrors.Is(err, pkgerrors.CodeQuantityLimit) {
		t.Fatalf("expected quantity limit error, got %v", err)
	}
	if pkgerrors.UserMessage(err) != "quantity limit exceeded" {
		t.Fatalf("unexpected message %q", pkgerrors.UserMessage(err))
	}

	for _, n := range []int{0, -3} {
		if err := engine.UpdateQuantity(ctx, key, n); err != nil {
			t.Fatalf("update %d: %v", n, err)
		}
	}
	flush(t, engine)
	if engine.QuantityOf(key) != 2 || store.writeCount() != writes {
		t.Fatalf("rejected updates must not mutate or write: qty=%d writes=%d", engine.QuantityOf(key), store.writeCount())
	}

	if err := engine.UpdateQuantity(ctx, key, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if engine.QuantityOf(key) != 5 || engine.TotalItems() != 5 {
		t.Fatalf("expected quantity 5, got %d", engine.QuantityOf(key))
	}
}

func TestEngineIncrementDecrement(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, storage.NewMemory())
	p := ring("1", 100)
	p.MaxQuantity = intPtr(2)
	key := ProductKey("1")

	_ = engine.Add(ctx, p, 1, types.None(), types.None())
	if err := engine.Increment(ctx, key); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := engine.Increment(ctx, key); !pkgerrors.Is(err, pkgerrors.CodeQuantityLimit) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if err := engine.Decrement(ctx, key); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := engine.Decrement(ctx, key); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := engine.QuantityOf(key); got != 1 {
		t.Fatalf("decrement must stop at 1, got %d", got)
	}
}

func TestEngineClearAndEmptyTotals(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	engine := newTestEngine(t, store)

	if !engine.TotalPrice().IsZero() || engine.TotalItems() != 0 || !engine.IsEmpty() {
		t.Fatalf("new cart should be empty")
	}
	_ = engine.Add(ctx, ring("1", 100), 3, types.None(), types.None())
	if err := engine.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	flush(t, engine)

	raw, err := store.Get(ctx, storage.KeyCartItems)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("expected empty list persisted, got %s", raw)
	}
}

func TestEngineRestoresPersistedCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	first := newTestEngine(t, store)

	p := ring("1", 45000)
	p.Images = []string{"rings/1.png", "rings/1b.png"}
	p.MaxQuantity = intPtr(3)
	_ = first.Add(ctx, p, 2, types.Some("18"), types.Some("gold"))
	_ = first.Add(ctx, ring("2", 1500), 1, types.None(), types.None())
	if err := first.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := newTestEngine(t, store)
	got := second.Lines()
	want := first.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Key() != want[i].Key() || got[i].Quantity != want[i].Quantity || !got[i].UnitPrice.Equal(want[i].UnitPrice) {
			t.Fatalf("line %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
	if ref, _ := got[0].ImageRef.Get(); ref != "rings/1.png" {
		t.Fatalf("expected first image, got %q", ref)
	}
	if got[0].MaxQuantity == nil || *got[0].MaxQuantity != 3 {
		t.Fatalf("expected max quantity 3, got %v", got[0].MaxQuantity)
	}
	if got[1].ImageRef.IsSet() || got[1].SelectedSize.IsSet() {
		t.Fatalf("absent fields must stay absent: %+v", got[1])
	}
}

func TestEngineNormalizesRestoredCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	raw := `[
		{"productId":"1","name":"a","unitPrice":10,"quantity":1},
		{"productId":"2","name":"b","unitPrice":5,"quantity":0},
		{"productId":"1","name":"a","unitPrice":10,"quantity":2},
		{"productId":"","name":"c","unitPrice":1,"quantity":1}
	]`
	if err := store.Set(ctx, storage.KeyCartItems, raw); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := newTestEngine(t, store)
	if engine.Len() != 1 || engine.QuantityOf(ProductKey("1")) != 3 {
		t.Fatalf("expected merged single line, got %+v", engine.Lines())
	}
}

func TestEngineCorruptCartStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	_ = store.Set(ctx, storage.KeyCartItems, "{not json")

	engine := newTestEngine(t, store)
	if !engine.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestEngineWritesInMutationOrder(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	engine := newTestEngine(t, store)

	for i := 1; i <= 20; i++ {
		_ = engine.Add(ctx, ring("1", 1), 1, types.None(), types.None())
	}
	flush(t, engine)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.writes) != 20 {
		t.Fatalf("expected 20 writes, got %d", len(store.writes))
	}
	for i, raw := range store.writes {
		var lines []Line
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			t.Fatalf("decode write %d: %v", i, err)
		}
		if lines[0].Quantity != i+1 {
			t.Fatalf("write %d out of order: quantity %d", i, lines[0].Quantity)
		}
	}
}

func TestEnginePersistenceFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	store.setErr = errors.New("disk full")
	engine := newTestEngine(t, store)

	if err := engine.Add(ctx, ring("1", 10), 2, types.None(), types.None()); err != nil {
		t.Fatalf("persistence failures must not surface: %v", err)
	}
	flush(t, engine)
	if engine.QuantityOf(ProductKey("1")) != 2 {
		t.Fatalf("mutation must survive failed write")
	}
}

func TestEngineRejectsMutationsAfterClose(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, storage.NewMemory())
	if err := engine.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := engine.Add(ctx, ring("1", 1), 1, types.None(), types.None()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := engine.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestNewEngineSurfacesReadFailure(t *testing.T) {
	_, err := NewEngine(context.Background(), failingGetStore{}, Options{})
	if !pkgerrors.Is(err, pkgerrors.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

type failingGetStore struct{ storage.Store }

func (failingGetStore) Get(context.Context, string) (string, error) {
	return "", errors.New("unavailable")
}

func TestEngineNonPositiveMaxQuantityMeansNoLimit(t *testing.T) {
	for _, limit := range []int{0, -2} {
		ctx := context.Background()
		store := storage.NewMemory()
		first := newTestEngine(t, store)

		p := ring("1", 100)
		p.MaxQuantity = intPtr(limit)
		if err := first.Add(ctx, p, 1, types.None(), types.None()); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := first.UpdateQuantity(ctx, ProductKey("1"), 2); err != nil {
			t.Fatalf("max %d: update must not be limited: %v", limit, err)
		}
		if err := first.Increment(ctx, ProductKey("1")); err != nil {
			t.Fatalf("max %d: increment must not be limited: %v", limit, err)
		}
		if lines := first.Lines(); lines[0].MaxQuantity != nil {
			t.Fatalf("max %d: expected no limit on the line, got %d", limit, *lines[0].MaxQuantity)
		}
		if err := first.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}

		raw, _ := store.Get(ctx, storage.KeyCartItems)
		if strings.Contains(raw, "maxQuantity") {
			t.Fatalf("max %d: limit must not be persisted: %s", limit, raw)
		}

		second := newTestEngine(t, store)
		if err := second.UpdateQuantity(ctx, ProductKey("1"), 5); err != nil || second.QuantityOf(ProductKey("1")) != 5 {
			t.Fatalf("max %d: restored line must behave the same, err=%v", limit, err)
		}
	}
}

func TestEnginePersistsUnitPriceAsNumber(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	engine := newTestEngine(t, store)

	p := ring("1", 0)
	p.Price = decimal.RequireFromString("129.99")
	_ = engine.Add(ctx, p, 1, types.None(), types.None())
	flush(t, engine)

	raw, err := store.Get(ctx, storage.KeyCartItems)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(raw, `"unitPrice":129.99`) {
		t.Fatalf("expected numeric unit price, got %s", raw)
	}
	if strings.Contains(raw, "selectedSize") || strings.Contains(raw, "imageRef") {
		t.Fatalf("absent fields must be omitted: %s", raw)
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !lines[0].UnitPrice.Equal(p.Price) {
		t.Fatalf("expected %s, got %s", p.Price, lines[0].UnitPrice)
	}
}

type stalledStore struct {
	*storage.Memory
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	writes []string
}

func (s *stalledStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.writes = append(s.writes, value)
	s.mu.Unlock()
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return s.Memory.Set(ctx, key, value)
}

func TestEngineMutationsDoNotBlockOnStalledStore(t *testing.T) {
	ctx := context.Background()
	store := &stalledStore{
		Memory:  storage.NewMemory(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine, err := NewEngine(ctx, store, Options{WriteBuffer: 2})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_ = engine.Add(ctx, ring("1", 1), 1, types.None(), types.None())
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("writer never reached the store")
	}

	added := make(chan struct{})
	go func() {
		defer close(added)
		for i := 0; i < 10; i++ {
			_ = engine.Add(ctx, ring("1", 1), 1, types.None(), types.None())
		}
	}()
	select {
	case <-added:
	case <-time.After(time.Second):
		close(store.release)
		t.Fatal("mutations blocked behind a stalled store")
	}
	if engine.QuantityOf(ProductKey("1")) != 11 {
		t.Fatalf("expected 11, got %d", engine.QuantityOf(ProductKey("1")))
	}

	close(store.release)
	if err := engine.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	store.mu.Lock()
	writes := len(store.writes)
	store.mu.Unlock()
	if writes > 3 {
		t.Fatalf("expected pending snapshots to coalesce, got %d writes", writes)
	}
	var lines []Line
	raw, _ := store.Memory.Get(ctx, storage.KeyCartItems)
	if err := json.Unmarshal([]byte(raw), &lines); err != nil || lines[0].Quantity != 11 {
		t.Fatalf("expected latest snapshot stored, got %s (%v)", raw, err)
	}
}
