// Package bot orchestrates one inbound event from classification to reply:
// voice ingestion when the message is audio, then parse, stock resolution,
// order commit and the user-facing reply text.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/natthaphol/sangbot/internal/log"
	"github.com/natthaphol/sangbot/pkg/command"
	"github.com/natthaphol/sangbot/pkg/line"
	"github.com/natthaphol/sangbot/pkg/orders"
	"github.com/natthaphol/sangbot/pkg/stock"
)

// DefaultEventTimeout bounds one event's processing, network calls included.
// LINE reply tokens are only valid for a short window after delivery, so a
// slow pipeline must give up and send the generic error reply while the
// token still works.
const DefaultEventTimeout = 20 * time.Second

// replyTimeout is the separate budget for the reply call itself, so an
// exhausted event deadline cannot also swallow the fallback reply.
const replyTimeout = 10 * time.Second

// Fixed user-facing replies, one per failure kind.
const (
	ReplyNotUnderstood = "ไม่เข้าใจคำสั่งค่ะ"
	ReplyVoiceFallback = "STT ล้มเหลว ลองส่ง Text แทน"
	ReplyStoreTrouble  = "ระบบขัดข้อง กรุณาลองใหม่ค่ะ"
)

// ReplyOutOfStock names the item that cannot be fulfilled.
func ReplyOutOfStock(item string) string {
	return fmt.Sprintf("สต็อก%sไม่พอ!", item)
}

// ReplyUnknownItem distinguishes a missing (item, unit) row from empty
// stock, so a typo does not read as "out of stock".
func ReplyUnknownItem(item, unit string) string {
	return fmt.Sprintf("ไม่พบ%s (%s) ในระบบค่ะ", item, unit)
}

// Ledger is the stock port the orchestrator needs.
type Ledger interface {
	Lookup(ctx context.Context, item, unit string) (stock.Record, error)
	TryDecrement(ctx context.Context, item, unit string, quantity int) (stock.Decrement, error)
}

// Recorder is the orders port the orchestrator needs.
type Recorder interface {
	Append(ctx context.Context, o orders.Order) (int64, error)
}

// Transcriber resolves an audio message ID to a transcript.
type Transcriber interface {
	Ingest(ctx context.Context, messageID string) (string, error)
}

// Replier delivers the user-facing reply.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Bot wires the ports together.
type Bot struct {
	ledger      Ledger
	recorder    Recorder
	transcriber Transcriber
	replier     Replier

	// Timeout for one event; DefaultEventTimeout unless overridden.
	Timeout time.Duration
}

// New creates a Bot.
func New(ledger Ledger, recorder Recorder, transcriber Transcriber, replier Replier) *Bot {
	return &Bot{
		ledger:      ledger,
		recorder:    recorder,
		transcriber: transcriber,
		replier:     replier,
		Timeout:     DefaultEventTimeout,
	}
}

// HandleEvents processes a webhook batch. Each event runs in its own
// goroutine with no ordering guarantee; the caller has already acknowledged
// the webhook and never learns about processing failures.
func (b *Bot) HandleEvents(events []line.Event) {
	for _, ev := range events {
		go b.HandleEvent(ev)
	}
}

// HandleEvent processes a single event to completion. It never panics and
// never returns an error: every failure ends as a fixed reply or a log line.
func (b *Bot) HandleEvent(ev line.Event) {
	logger := log.With("event_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked", "panic", r)
		}
	}()

	if ev.Type != line.EventTypeMessage {
		logger.Debug("skipping non-message event", "type", ev.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	var reply string
	switch ev.Message.Type {
	case line.MessageTypeText:
		reply = b.processOrder(ctx, ev.Message.Text, logger)

	case line.MessageTypeAudio:
		transcript, err := b.transcriber.Ingest(ctx, ev.Message.ID)
		if err != nil {
			logger.Warn("voice ingestion failed", "message_id", ev.Message.ID, "error", err)
			reply = ReplyVoiceFallback
			break
		}
		logger.Info("voice transcribed", "message_id", ev.Message.ID, "transcript", transcript)
		reply = fmt.Sprintf("ได้ยิน: %q\n%s", transcript, b.processOrder(ctx, transcript, logger))

	default:
		logger.Debug("skipping unsupported message type", "type", ev.Message.Type)
		return
	}

	b.send(ev.ReplyToken, reply, logger)
}

// processOrder runs parse → lookup → decrement → append and returns the
// reply text. It makes no state change on any rejection path.
func (b *Bot) processOrder(ctx context.Context, text string, logger *slog.Logger) string {
	req, err := command.Parse(text)
	if err != nil {
		logger.Info("command not understood", "text", text)
		return ReplyNotUnderstood
	}

	if _, err := b.ledger.Lookup(ctx, req.Item, req.Unit); err != nil {
		switch {
		case errors.Is(err, stock.ErrNotFound):
			logger.Info("unknown item ordered", "item", req.Item, "unit", req.Unit)
			return ReplyUnknownItem(req.Item, req.Unit)
		default:
			logger.Error("stock lookup failed", "item", req.Item, "error", err)
			return ReplyStoreTrouble
		}
	}

	dec, err := b.ledger.TryDecrement(ctx, req.Item, req.Unit, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, stock.ErrInsufficientStock):
			logger.Info("insufficient stock", "item", req.Item, "unit", req.Unit, "quantity", req.Quantity)
			return ReplyOutOfStock(req.Item)
		case errors.Is(err, stock.ErrNotFound):
			return ReplyUnknownItem(req.Item, req.Unit)
		case errors.Is(err, stock.ErrConflict):
			logger.Warn("decrement lost to concurrent updates", "item", req.Item, "unit", req.Unit)
			return ReplyStoreTrouble
		default:
			logger.Error("stock decrement failed", "item", req.Item, "error", err)
			return ReplyStoreTrouble
		}
	}

	// Total comes from the price read at decrement time, never a re-read.
	total := dec.Price * req.Quantity

	number, err := b.recorder.Append(ctx, orders.Order{
		Customer:  req.Customer,
		Item:      req.Item,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Deliverer: req.Deliverer,
		Total:     total,
	})
	if err != nil {
		// The decrement already committed; flag the inconsistency loudly.
		logger.Error("order append failed after decrement",
			"item", req.Item, "unit", req.Unit, "quantity", req.Quantity, "error", err)
		return ReplyStoreTrouble
	}

	logger.Info("order committed",
		"number", number, "item", req.Item, "quantity", req.Quantity,
		"unit", req.Unit, "total", total, "remaining", dec.NewQuantity)

	return fmt.Sprintf("%s ค่ะ!\n%s %d%s = %d฿\nส่งโดย %s\nรหัส: %d",
		req.Customer, req.Item, req.Quantity, req.Unit, total, req.Deliverer, number)
}

// send delivers the reply on its own deadline. Delivery failure is terminal:
// logged, never retried.
func (b *Bot) send(replyToken, text string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	if err := b.replier.Reply(ctx, replyToken, text); err != nil {
		logger.Error("reply delivery failed", "error", err)
	}
}
