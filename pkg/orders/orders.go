// Package orders records committed orders as immutable, numbered rows.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// StatusPending is the status every order carries at creation. No further
// transitions are driven by this service.
const StatusPending = "รอดำเนินการ"

// ErrUnavailable means the backing store could not be reached and no row
// was appended.
var ErrUnavailable = errors.New("orders: store unavailable")

// Order is one committed order. Number, Timestamp and Status are assigned
// by the Recorder; the rest comes from the accepted request.
type Order struct {
	Number    int64
	Timestamp time.Time
	Customer  string
	Item      string
	Quantity  int
	Unit      string
	Deliverer string
	Status    string
	Total     int
}

// Store is the port to the backing orders table.
type Store interface {
	// Count returns the number of existing rows, header included. It is
	// read once to seed the sequence counter.
	Count(ctx context.Context) (int64, error)

	// Append adds one row. It must never rewrite or reorder existing rows.
	Append(ctx context.Context, o Order) error
}

// Recorder appends orders with atomically assigned sequence numbers.
//
// Sequence assignment and the append round-trip happen under one mutex, so
// two concurrent commits can never compute the same number — unlike deriving
// the number from the store's row count at append time.
type Recorder struct {
	store Store

	mu     sync.Mutex
	next   int64
	seeded bool
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Append assigns the next sequence number, stamps the order and writes it.
// The counter only advances on a successful append, keeping the sequence
// contiguous across store failures.
func (r *Recorder) Append(ctx context.Context, o Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seeded {
		count, err := r.store.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		r.next = count
		r.seeded = true
	}

	o.Number = r.next
	o.Timestamp = time.Now()
	o.Status = StatusPending

	if err := r.store.Append(ctx, o); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.next++

	return o.Number, nil
}
