package gcloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/api/sheets/v4"

	"github.com/natthaphol/sangbot/pkg/orders"
	"github.com/natthaphol/sangbot/pkg/stock"
)

// Sheet tabs and ranges. The stock tab is [itemName, unit, reserved,
// quantity, unitPrice]; the orders tab is [seq, timestamp, customer, item,
// qty, unit, reserved, deliverer, status, reserved, total].
const (
	stockRange   = "สต็อก!A:E"
	stockQtyCell = "สต็อก!D%d"
	ordersRange  = "คำสั่งซื้อ!A:K"
	inputOption  = "USER_ENTERED"
)

// SheetStore implements stock.Store and orders.Store over one spreadsheet.
type SheetStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetStore creates a SheetStore for the given spreadsheet.
func NewSheetStore(svc *sheets.Service, spreadsheetID string) *SheetStore {
	return &SheetStore{svc: svc, spreadsheetID: spreadsheetID}
}

// Rows reads the whole stock tab. Row indices are 1-based sheet rows so they
// can address writes directly.
func (s *SheetStore) Rows(ctx context.Context) ([]stock.Row, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, stockRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gcloud: read stock range: %w", err)
	}
	return stockRows(vr.Values), nil
}

// UpdateQuantityIf re-reads the quantity cell and writes the new value only
// while it still equals expect. Combined with the ledger's per-key lock this
// makes the read-modify-write safe for a single writing process, and bounded
// retries absorb edits from the sheet UI.
func (s *SheetStore) UpdateQuantityIf(ctx context.Context, index, expect, quantity int) error {
	cell := fmt.Sprintf(stockQtyCell, index)

	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, cell).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gcloud: read quantity cell: %w", err)
	}
	current := 0
	if len(vr.Values) > 0 && len(vr.Values[0]) > 0 {
		current = cellInt(vr.Values[0][0])
	}
	if current != expect {
		return stock.ErrStale
	}

	update := &sheets.ValueRange{Values: [][]interface{}{{quantity}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, cell, update).
		ValueInputOption(inputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gcloud: write quantity cell: %w", err)
	}
	return nil
}

// Count returns the number of rows in the orders tab, header included.
func (s *SheetStore) Count(ctx context.Context) (int64, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, ordersRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("gcloud: read orders range: %w", err)
	}
	return int64(len(vr.Values)), nil
}

// Append adds one order row at the bottom of the orders tab.
func (s *SheetStore) Append(ctx context.Context, o orders.Order) error {
	row := &sheets.ValueRange{Values: [][]interface{}{orderRow(o)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, ordersRange, row).
		ValueInputOption(inputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gcloud: append order row: %w", err)
	}
	return nil
}

// stockRows maps raw sheet values onto stock rows. Short or malformed rows
// (the header among them) yield zero quantities and prices, which never
// match a real order.
func stockRows(values [][]interface{}) []stock.Row {
	rows := make([]stock.Row, 0, len(values))
	for i, v := range values {
		rows = append(rows, stock.Row{
			Item:     cellString(v, 0),
			Unit:     cellString(v, 1),
			Quantity: cellIntAt(v, 3),
			Price:    cellIntAt(v, 4),
			Index:    i + 1,
		})
	}
	return rows
}

// orderRow lays an order out in the sheet's column order.
func orderRow(o orders.Order) []interface{} {
	return []interface{}{
		o.Number,
		o.Timestamp.Format(time.RFC3339),
		o.Customer,
		o.Item,
		o.Quantity,
		o.Unit,
		"",
		o.Deliverer,
		o.Status,
		"",
		o.Total,
	}
}

func cellString(row []interface{}, col int) string {
	if col >= len(row) {
		return ""
	}
	s, _ := row[col].(string)
	return s
}

func cellIntAt(row []interface{}, col int) int {
	if col >= len(row) {
		return 0
	}
	return cellInt(row[col])
}

// cellInt parses a sheet cell as a non-negative integer. Sheets returns
// strings for USER_ENTERED values but numbers are possible with other
// render options.
func cellInt(v interface{}) int {
	switch x := v.(type) {
	case string:
		n, err := strconv.Atoi(x)
		if err != nil || n < 0 {
			return 0
		}
		return n
	case float64:
		if x < 0 {
			return 0
		}
		return int(x)
	case int:
		if x < 0 {
			return 0
		}
		return x
	default:
		return 0
	}
}
