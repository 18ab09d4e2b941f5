package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/natthaphol/sangbot/internal/log"
)

// casAttempts bounds the optimistic-write retry loop before the order is
// failed as a transient conflict.
const casAttempts = 3

// Store is the port to the backing inventory table.
type Store interface {
	// Rows returns all inventory rows in store order.
	Rows(ctx context.Context) ([]Row, error)

	// UpdateQuantityIf writes quantity to the row at index only while the
	// stored quantity still equals expect, returning ErrStale otherwise.
	UpdateQuantityIf(ctx context.Context, index, expect, quantity int) error
}

// Ledger exposes lookup and decrement-if-available over a Store.
// A single Ledger instance must own all writes to its store.
type Ledger struct {
	store Store
	locks *keyedMutex
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		locks: newKeyedMutex(),
	}
}

// Lookup scans for the first row matching item and unit exactly.
// Absence is reported as ErrNotFound, never as a zero-quantity record.
func (l *Ledger) Lookup(ctx context.Context, item, unit string) (Record, error) {
	rows, err := l.store.Rows(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	row, ok := match(rows, item, unit)
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{Quantity: row.Quantity, Price: row.Price}, nil
}

// TryDecrement atomically subtracts quantity from the matching row.
//
// Calls for the same (item, unit) are serialized by an in-process keyed
// mutex ahead of the read-modify-write round-trip, and the write itself is
// a compare-and-swap retried up to casAttempts times, so an external writer
// racing this process surfaces as ErrConflict instead of a lost update.
func (l *Ledger) TryDecrement(ctx context.Context, item, unit string, quantity int) (Decrement, error) {
	if quantity < 1 {
		return Decrement{}, fmt.Errorf("stock: invalid decrement quantity %d", quantity)
	}

	unlock := l.locks.lock(item + "\x00" + unit)
	defer unlock()

	for attempt := 0; attempt < casAttempts; attempt++ {
		rows, err := l.store.Rows(ctx)
		if err != nil {
			return Decrement{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		row, ok := match(rows, item, unit)
		if !ok {
			return Decrement{}, ErrNotFound
		}
		if row.Quantity < quantity {
			return Decrement{}, ErrInsufficientStock
		}

		next := row.Quantity - quantity
		err = l.store.UpdateQuantityIf(ctx, row.Index, row.Quantity, next)
		if err == nil {
			return Decrement{NewQuantity: next, Price: row.Price}, nil
		}
		if errors.Is(err, ErrStale) {
			log.Warn("stock: stale quantity, retrying decrement",
				"item", item, "unit", unit, "attempt", attempt+1)
			continue
		}
		return Decrement{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Decrement{}, ErrConflict
}

// match returns the first row for (item, unit). Duplicate rows are a
// data-integrity problem in the sheet; the first one wins and the rest are
// logged.
func match(rows []Row, item, unit string) (Row, bool) {
	found := false
	var first Row
	for _, r := range rows {
		if r.Item != item || r.Unit != unit {
			continue
		}
		if found {
			log.Warn("stock: duplicate inventory row ignored",
				"item", item, "unit", unit, "index", r.Index)
			continue
		}
		first, found = r, true
	}
	return first, found
}
