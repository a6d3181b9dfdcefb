// Package cart holds the shopping cart state and keeps it synchronized with
// the local store.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrClosed is returned by mutations issued after Close.
var ErrClosed = errors.New("cart engine closed")

// Options configures an Engine.
type Options struct {
	Logger      *logger.Logger
	Metrics     *metrics.PersistenceMetrics
	WriteBuffer int
}

// Engine owns the cart lines. Every mutation is applied in memory first and
// then queued for persistence; a failed write is logged and the in-memory
// state is kept.
type Engine struct {
	mu        sync.RWMutex
	lines     []Line
	closed    bool
	logg      *logger.Logger
	persister *persister
}

// NewEngine restores the cart from store and starts its writer.
func NewEngine(ctx context.Context, store storage.Store, opts Options) (*Engine, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	var restored []Line
	if _, err := storage.GetJSON(ctx, store, storage.KeyCartItems, &restored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "restore cart")
	}
	lines, dropped := normalizeLines(restored)
	if dropped > 0 {
		logg.Warn(logg.WithField(ctx, "dropped_lines", dropped), "normalized restored cart")
	}

	return &Engine{
		lines:     lines,
		logg:      logg,
		persister: newPersister(ctx, store, logg, opts.Metrics, opts.WriteBuffer),
	}, nil
}

// Add puts quantity units of p into the cart. A line with the same product,
// size and color is incremented; otherwise a new line is appended. A quantity
// of 0 adds one unit. The product's max quantity is not enforced here.
func (e *Engine) Add(ctx context.Context, p Product, quantity int, size, color types.OptionalString) error {
	if quantity == 0 {
		quantity = 1
	}
	if err := validateAdd(p, quantity); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	key := NewKey(p.ID, size, color)
	if i := e.indexOf(key); i >= 0 {
		e.lines[i].Quantity += quantity
	} else {
		e.lines = append(e.lines, newLine(p, quantity, size, color))
	}
	e.logg.Debug(e.logg.WithFields(e.logg.WithProductID(ctx, p.ID), map[string]any{
		"size":     size.String(),
		"color":    color.OrElse("-"),
		"quantity": quantity,
	}), "cart line added")
	e.persistLocked(ctx)
	return nil
}

// Remove deletes the line matching key. Removing an absent line is a no-op.
func (e *Engine) Remove(ctx context.Context, key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if i := e.indexOf(key); i >= 0 {
		e.lines = append(e.lines[:i], e.lines[i+1:]...)
	}
	e.persistLocked(ctx)
	return nil
}

// UpdateQuantity sets the quantity of the line matching key. Values below 1
// are ignored. A value above the line's max quantity is rejected with a
// QUANTITY_LIMIT_EXCEEDED error and nothing changes.
func (e *Engine) UpdateQuantity(ctx context.Context, key Key, quantity int) error {
	if quantity < 1 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.setQuantityLocked(ctx, key, quantity)
}

// Increment adds one unit to the line matching key, subject to its max
// quantity.
func (e *Engine) Increment(ctx context.Context, key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	i := e.indexOf(key)
	if i < 0 {
		return nil
	}
	return e.setQuantityLocked(ctx, key, e.lines[i].Quantity+1)
}

// Decrement removes one unit from the line matching key. At quantity 1 it does
// nothing; use Remove to drop the line.
func (e *Engine) Decrement(ctx context.Context, key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	i := e.indexOf(key)
	if i < 0 || e.lines[i].Quantity <= 1 {
		return nil
	}
	return e.setQuantityLocked(ctx, key, e.lines[i].Quantity-1)
}

// Clear empties the cart and persists the empty list.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.lines = nil
	e.persistLocked(ctx)
	return nil
}

func (e *Engine) setQuantityLocked(ctx context.Context, key Key, quantity int) error {
	i := e.indexOf(key)
	if i >= 0 && e.lines[i].exceeds(quantity) {
		return pkgerrors.New(pkgerrors.CodeQuantityLimit, "quantity limit exceeded").
			WithDetails(map[string]any{
				"productId": key.ProductID,
				"requested": quantity,
				"max":       *e.lines[i].MaxQuantity,
			})
	}
	if i >= 0 {
		e.lines[i].Quantity = quantity
	}
	e.persistLocked(ctx)
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) {
	lines := e.lines
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		e.logg.Error(e.logg.WithStoreKey(ctx, storage.KeyCartItems), "failed to encode cart", err)
		return
	}
	e.persister.enqueue(string(raw))
}

func (e *Engine) indexOf(key Key) int {
	for i := range e.lines {
		if e.lines[i].Key() == key {
			return i
		}
	}
	return -1
}

// TotalPrice is the sum of unit price times quantity over every line.
func (e *Engine) TotalPrice() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := decimal.Zero
	for _, line := range e.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// TotalItems is the sum of quantities over every line.
func (e *Engine) TotalItems() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := 0
	for _, line := range e.lines {
		total += line.Quantity
	}
	return total
}

func (e *Engine) Contains(key Key) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.indexOf(key) >= 0
}

// QuantityOf returns the quantity of the line matching key, or 0.
func (e *Engine) QuantityOf(key Key) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexOf(key); i >= 0 {
		return e.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the cart in insertion order.
func (e *Engine) Lines() []Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneLines(e.lines)
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.lines)
}

func (e *Engine) IsEmpty() bool {
	return e.Len() == 0
}

// Flush blocks until every write queued so far has been attempted.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	flushed := e.persister.flushMarker()
	e.mu.Unlock()

	return e.persister.wait(ctx, flushed)
}

// Close stops accepting mutations and waits for queued writes to drain.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.persister.stop()
	}
	e.mu.Unlock()

	return e.persister.wait(ctx, e.persister.done)
}

func validateAdd(p Product, quantity int) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	case quantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	case p.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"price": p.Price.String()})
	}
	return nil
}
