package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/natthaphol/sangbot/pkg/line"
	"github.com/natthaphol/sangbot/pkg/orders"
	"github.com/natthaphol/sangbot/pkg/stock"
)

// fakeLedger serves one (item, unit) row and honors the ledger contract.
type fakeLedger struct {
	mu       sync.Mutex
	item     string
	unit     string
	quantity int
	price    int

	lookupErr    error
	decrementErr error
}

func (f *fakeLedger) Lookup(ctx context.Context, item, unit string) (stock.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return stock.Record{}, f.lookupErr
	}
	if item != f.item || unit != f.unit {
		return stock.Record{}, stock.ErrNotFound
	}
	return stock.Record{Quantity: f.quantity, Price: f.price}, nil
}

func (f *fakeLedger) TryDecrement(ctx context.Context, item, unit string, quantity int) (stock.Decrement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decrementErr != nil {
		return stock.Decrement{}, f.decrementErr
	}
	if item != f.item || unit != f.unit {
		return stock.Decrement{}, stock.ErrNotFound
	}
	if f.quantity < quantity {
		return stock.Decrement{}, stock.ErrInsufficientStock
	}
	f.quantity -= quantity
	return stock.Decrement{NewQuantity: f.quantity, Price: f.price}, nil
}

type fakeRecorder struct {
	mu   sync.Mutex
	next int64
	rows []orders.Order
	err  error
}

func (f *fakeRecorder) Append(ctx context.Context, o orders.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	o.Number = f.next
	f.rows = append(f.rows, o)
	return o.Number, nil
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Ingest(ctx context.Context, messageID string) (string, error) {
	return f.transcript, f.err
}

type fakeReplier struct {
	mu      sync.Mutex
	replies map[string]string // reply token -> text
	err     error
}

func newFakeReplier() *fakeReplier {
	return &fakeReplier{replies: make(map[string]string)}
}

func (f *fakeReplier) Reply(ctx context.Context, replyToken, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[replyToken] = text
	return f.err
}

func (f *fakeReplier) get(token string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.replies[token]
	return text, ok
}

func textEvent(token, text string) line.Event {
	return line.Event{
		Type:       line.EventTypeMessage,
		ReplyToken: token,
		Message:    line.Message{ID: "m-" + token, Type: line.MessageTypeText, Text: text},
	}
}

func audioEvent(token, messageID string) line.Event {
	return line.Event{
		Type:       line.EventTypeMessage,
		ReplyToken: token,
		Message:    line.Message{ID: messageID, Type: line.MessageTypeAudio},
	}
}

func newTestBot(ledger *fakeLedger, rec *fakeRecorder, tr *fakeTranscriber, rep *fakeReplier) *Bot {
	return New(ledger, rec, tr, rep)
}

func TestHandleEventTextOrder(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40}
	rec := &fakeRecorder{}
	rep := newFakeReplier()
	b := newTestBot(ledger, rec, &fakeTranscriber{}, rep)

	b.HandleEvent(textEvent("rt1", "แดง สั่ง ข้าว 3 ถุง ส่งโดย ดำ"))

	want := "แดง ค่ะ!\nข้าว 3ถุง = 120฿\nส่งโดย ดำ\nรหัส: 1"
	if got, _ := rep.get("rt1"); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}

	if ledger.quantity != 7 {
		t.Errorf("remaining stock = %d, want 7", ledger.quantity)
	}
	if len(rec.rows) != 1 {
		t.Fatalf("orders appended = %d, want 1", len(rec.rows))
	}
	row := rec.rows[0]
	if row.Total != 120 || row.Customer != "แดง" || row.Deliverer != "ดำ" {
		t.Errorf("order row = %+v", row)
	}
}

func TestHandleEventReplies(t *testing.T) {
	tests := []struct {
		name      string
		ledger    *fakeLedger
		recErr    error
		text      string
		wantReply string
	}{
		{
			name:      "parse failure",
			ledger:    &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40},
			text:      "สวัสดีค่ะ",
			wantReply: ReplyNotUnderstood,
		},
		{
			name:      "insufficient stock",
			ledger:    &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 2, price: 40},
			text:      "สั่ง ข้าว 3 ถุง",
			wantReply: ReplyOutOfStock("ข้าว"),
		},
		{
			name:      "unknown item",
			ledger:    &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40},
			text:      "สั่ง น้ำปลา 1 ขวด",
			wantReply: ReplyUnknownItem("น้ำปลา", "ขวด"),
		},
		{
			name:      "store unavailable",
			ledger:    &fakeLedger{lookupErr: stock.ErrUnavailable},
			text:      "สั่ง ข้าว 1",
			wantReply: ReplyStoreTrouble,
		},
		{
			name:      "decrement conflict",
			ledger:    &fakeLedger{item: "ข้าว", unit: "ชิ้น", quantity: 10, price: 40, decrementErr: stock.ErrConflict},
			text:      "สั่ง ข้าว 1",
			wantReply: ReplyStoreTrouble,
		},
		{
			name:      "recorder failure",
			ledger:    &fakeLedger{item: "ข้าว", unit: "ชิ้น", quantity: 10, price: 40},
			recErr:    orders.ErrUnavailable,
			text:      "สั่ง ข้าว 1",
			wantReply: ReplyStoreTrouble,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := newFakeReplier()
			b := newTestBot(tt.ledger, &fakeRecorder{err: tt.recErr}, &fakeTranscriber{}, rep)

			b.HandleEvent(textEvent("rt", tt.text))

			if got, _ := rep.get("rt"); got != tt.wantReply {
				t.Errorf("reply = %q, want %q", got, tt.wantReply)
			}
		})
	}
}

func TestHandleEventRejectedOrderLeavesNoTrace(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 2, price: 40}
	rec := &fakeRecorder{}
	rep := newFakeReplier()
	b := newTestBot(ledger, rec, &fakeTranscriber{}, rep)

	b.HandleEvent(textEvent("rt", "สั่ง ข้าว 5 ถุง"))

	if ledger.quantity != 2 {
		t.Errorf("stock changed to %d on rejected order", ledger.quantity)
	}
	if len(rec.rows) != 0 {
		t.Errorf("order row appended for rejected order")
	}
}

func TestHandleEventAudioOrder(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40}
	rep := newFakeReplier()
	tr := &fakeTranscriber{transcript: "สั่ง ข้าว 2 ถุง"}
	b := newTestBot(ledger, &fakeRecorder{}, tr, rep)

	b.HandleEvent(audioEvent("rt", "m-audio"))

	want := "ได้ยิน: \"สั่ง ข้าว 2 ถุง\"\n" +
		fmt.Sprintf("%s ค่ะ!\nข้าว 2ถุง = 80฿\nส่งโดย %s\nรหัส: 1", "ลูกค้าไม่ระบุ", "ไม่ระบุ")
	if got, _ := rep.get("rt"); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestHandleEventAudioPipelineFailure(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40}
	rec := &fakeRecorder{}
	rep := newFakeReplier()
	tr := &fakeTranscriber{err: errors.New("voice: transcode failed")}
	b := newTestBot(ledger, rec, tr, rep)

	b.HandleEvent(audioEvent("rt", "m-audio"))

	if got, _ := rep.get("rt"); got != ReplyVoiceFallback {
		t.Errorf("reply = %q, want %q", got, ReplyVoiceFallback)
	}
	if ledger.quantity != 10 || len(rec.rows) != 0 {
		t.Error("order pipeline ran despite voice failure")
	}
}

func TestHandleEventUnclearAudio(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40}
	rep := newFakeReplier()
	tr := &fakeTranscriber{transcript: "ไม่ชัดค่ะ"}
	b := newTestBot(ledger, &fakeRecorder{}, tr, rep)

	b.HandleEvent(audioEvent("rt", "m-audio"))

	want := "ได้ยิน: \"ไม่ชัดค่ะ\"\n" + ReplyNotUnderstood
	if got, _ := rep.get("rt"); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestHandleEventSkipsNonOrders(t *testing.T) {
	rep := newFakeReplier()
	b := newTestBot(&fakeLedger{}, &fakeRecorder{}, &fakeTranscriber{}, rep)

	b.HandleEvent(line.Event{Type: "follow", ReplyToken: "rt1"})
	b.HandleEvent(line.Event{
		Type:       line.EventTypeMessage,
		ReplyToken: "rt2",
		Message:    line.Message{Type: "sticker"},
	})

	if _, ok := rep.get("rt1"); ok {
		t.Error("replied to a non-message event")
	}
	if _, ok := rep.get("rt2"); ok {
		t.Error("replied to an unsupported message type")
	}
}

func TestHandleEventReplyFailureIsSwallowed(t *testing.T) {
	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: 10, price: 40}
	rep := newFakeReplier()
	rep.err = errors.New("status 400")
	b := newTestBot(ledger, &fakeRecorder{}, &fakeTranscriber{}, rep)

	// Must not panic; the failure is logged only.
	b.HandleEvent(textEvent("rt", "สั่ง ข้าว 1"))
}

// TestConcurrentEventsShareStock drives many events against one row and
// checks the end-to-end linearizability property: committed orders account
// exactly for the stock taken.
func TestConcurrentEventsShareStock(t *testing.T) {
	const initial = 10

	ledger := &fakeLedger{item: "ข้าว", unit: "ถุง", quantity: initial, price: 40}
	rec := &fakeRecorder{}
	rep := newFakeReplier()
	b := newTestBot(ledger, rec, &fakeTranscriber{}, rep)

	quantities := []int{3, 4, 5, 2, 6, 1}
	var wg sync.WaitGroup
	for i, q := range quantities {
		wg.Add(1)
		go func(i, q int) {
			defer wg.Done()
			b.HandleEvent(textEvent(fmt.Sprintf("rt%d", i), fmt.Sprintf("สั่ง ข้าว %d ถุง", q)))
		}(i, q)
	}
	wg.Wait()

	var committed int
	for _, row := range rec.rows {
		committed += row.Quantity
	}
	if ledger.quantity != initial-committed {
		t.Errorf("final stock = %d, want %d (committed %d)", ledger.quantity, initial-committed, committed)
	}
	if ledger.quantity < 0 {
		t.Errorf("stock went negative: %d", ledger.quantity)
	}
	if len(rep.replies) != len(quantities) {
		t.Errorf("replies = %d, want %d", len(rep.replies), len(quantities))
	}
}
