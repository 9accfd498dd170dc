package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OrderType distinguishes the two ticket variants.
type OrderType string

const (
	// OrderComanda is a kitchen ticket: items and quantities, no pricing.
	OrderComanda OrderType = "comanda"
	// OrderCuenta is a customer bill with pricing, tax, discount and tip.
	OrderCuenta OrderType = "cuenta"
)

func (t OrderType) String() string {
	return string(t)
}

// BusinessInfo is the header block printed on a cuenta.
type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// LineItem is one product line on a ticket.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	LineTotal   *float64 `json:"line_total,omitempty"`
}

// UnmarshalJSON defaults the quantity to 1 when the field is absent.
// An explicit zero stays zero.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type lineItem LineItem
	aux := lineItem{Quantity: 1}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*li = LineItem(aux)
	return nil
}

// Order is the incoming print payload, a comanda or a cuenta depending
// on Type. Totals are rendered as given; the caller is responsible for
// supplying consistent amounts.
type Order struct {
	Type      OrderType  `json:"type"`
	OrderID   string     `json:"order_id"`
	Items     []LineItem `json:"items"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// Comanda fields
	Table      string   `json:"table,omitempty"`
	Waiter     string   `json:"waiter,omitempty"`
	PrintCount int      `json:"print_count,omitempty"`
	Comments   []string `json:"comments,omitempty"`

	// Cuenta fields
	Subtotal        float64      `json:"subtotal,omitempty"`
	TaxPercent      float64      `json:"tax_percent,omitempty"`
	TaxAmount       float64      `json:"tax_amount,omitempty"`
	DiscountPercent float64      `json:"discount_percent,omitempty"`
	DiscountAmount  float64      `json:"discount_amount,omitempty"`
	TipPercent      float64      `json:"tip_percent,omitempty"`
	TipAmount       float64      `json:"tip_amount,omitempty"`
	GrandTotal      float64      `json:"grand_total,omitempty"`
	TotalWithTip    *float64     `json:"total_with_tip,omitempty"`
	PaymentMethod   string       `json:"payment_method,omitempty"`
	Business        BusinessInfo `json:"business,omitempty"`
	ValidationURL   string       `json:"validation_url,omitempty"`
	Copies          Copies       `json:"copies,omitempty"`
}

// Timestamp returns the order's creation time, defaulting to the
// dispatch time when the payload omits it.
func (o *Order) Timestamp(now time.Time) time.Time {
	if o.CreatedAt != nil {
		return *o.CreatedAt
	}
	return now
}

// Validate checks the required fields. Validation failures are reported
// before any lock or transport work begins.
func (o *Order) Validate() error {
	switch o.Type {
	case OrderComanda, OrderCuenta:
	case "":
		return fmt.Errorf("missing order type")
	default:
		return fmt.Errorf("unknown order type: %q", o.Type)
	}
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("missing order_id")
	}
	if o.Items == nil {
		return fmt.Errorf("items must be present (may be empty)")
	}
	for i, item := range o.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("item %d: missing description", i+1)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("item %d: negative quantity", i+1)
		}
	}
	return nil
}

// Copies is a copy count that tolerates sloppy payloads: JSON numbers,
// numeric strings, and garbage all decode without error and normalize
// into the printable range.
type Copies struct {
	value float64
	valid bool
}

// CopyCount builds a Copies from a plain integer, for internal callers.
func CopyCount(n int) Copies {
	return Copies{value: float64(n), valid: true}
}

// UnmarshalJSON accepts a number or a numeric string. Anything else is
// recorded as invalid rather than failing the whole payload.
func (c *Copies) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		c.value = num
		c.valid = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			c.value = parsed
			c.valid = true
			return nil
		}
	}
	c.valid = false
	return nil
}

// MarshalJSON emits the normalized count.
func (c Copies) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Normalize())
}

// Normalize clamps the copy count to [1, 20]. Missing, non-numeric and
// non-finite values coerce to 1.
func (c Copies) Normalize() int {
	if !c.valid || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
		return 1
	}
	n := int(c.value)
	if n <= 0 {
		return 1
	}
	if n > 20 {
		return 20
	}
	return n
}
