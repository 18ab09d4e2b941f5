// Package stock is the transactional view over the inventory store.
//
// All stock mutation goes through Ledger.TryDecrement, which serializes
// concurrent orders per (item, unit) key. The backing store is abstracted
// behind the Store port so tests can substitute an in-memory fake.
package stock

import "errors"

// Errors returned by the ledger.
var (
	// ErrNotFound means no row matches the (item, unit) pair.
	ErrNotFound = errors.New("stock: item not found")

	// ErrInsufficientStock means the row exists but holds less than the
	// requested quantity. No state change occurred.
	ErrInsufficientStock = errors.New("stock: insufficient stock")

	// ErrUnavailable means the backing store could not be reached. No
	// state change occurred.
	ErrUnavailable = errors.New("stock: store unavailable")

	// ErrConflict means the optimistic write lost to concurrent updates
	// on every retry attempt.
	ErrConflict = errors.New("stock: concurrent update conflict")

	// ErrStale is returned by Store.UpdateQuantityIf when the stored
	// quantity no longer matches the expected value.
	ErrStale = errors.New("stock: stale quantity")
)

// Row is one inventory record as held by the backing store.
type Row struct {
	Item     string
	Unit     string
	Quantity int
	Price    int

	// Index is the store-assigned row position, used to address writes.
	Index int
}

// Record is the result of a lookup: quantity on hand and unit price.
type Record struct {
	Quantity int
	Price    int
}

// Decrement is the result of a successful TryDecrement. Price is the unit
// price read at decrement time; order totals must be computed from it rather
// than from a later re-read.
type Decrement struct {
	NewQuantity int
	Price       int
}
