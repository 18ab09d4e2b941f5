// Package command parses Thai-language order commands into structured requests.
//
// The grammar recognizes exactly one command shape:
//
//	[customer] สั่ง <item> <quantity> [unit] [ส่งโดย <deliverer>]
//
// Name fields are contiguous runs of Thai-script runes; the quantity is a run
// of ASCII digits. The order keyword may be glued to the surrounding Thai text
// ("สั่งข้าว3ถุง" parses), while a customer name is only recognized when it is
// whitespace-separated from the keyword.
package command

import "errors"

// ErrNotUnderstood is returned when the text does not match the command
// grammar. It carries no partial data.
var ErrNotUnderstood = errors.New("command: not understood")

// Sentinel defaults substituted for optional fields the grammar did not match.
const (
	DefaultCustomer  = "ลูกค้าไม่ระบุ"
	DefaultUnit      = "ชิ้น"
	DefaultDeliverer = "ไม่ระบุ"
)

// Keywords of the grammar.
const (
	kwOrder   = "สั่ง"
	kwDeliver = "ส่งโดย"
)

// Request is a parsed order command. Optional fields are filled with their
// sentinel defaults, so every field is always non-empty.
type Request struct {
	Customer  string
	Item      string
	Quantity  int
	Unit      string
	Deliverer string
}
