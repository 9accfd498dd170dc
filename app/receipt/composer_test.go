package receipt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"PrintBridge/app/escpos"
	"PrintBridge/app/layout"
	"PrintBridge/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 2, 19, 30, 0, 0, time.UTC)

func newComposer(t *testing.T) (*Composer, *layout.Engine) {
	t.Helper()
	engine, err := layout.ForPaper(80)
	require.NoError(t, err)
	return NewComposer(engine), engine
}

// render flattens an instruction sequence through the text encoder so
// assertions can read the ticket like a human would.
func render(t *testing.T, engine *layout.Engine, instructions []escpos.Instruction) string {
	t.Helper()
	out, err := escpos.NewEncoder(escpos.ModeText, engine).Encode(instructions)
	require.NoError(t, err)
	return string(out)
}

func fptr(f float64) *float64 { return &f }

func TestComposeComanda(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:    models.OrderComanda,
		OrderID: "ORD-042",
		Table:   "C-1",
		Waiter:  "Andres",
		Items: []models.LineItem{
			{Description: "Coffee", Quantity: 2},
			{Description: "Arepa con queso", Quantity: 1.5},
		},
		Comments: []string{"Sin azucar"},
	}

	instructions, err := c.Compose(order, testNow, Options{AutoCut: true})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Contains(t, ticket, "COMANDA")
	assert.Contains(t, ticket, "Orden: ORD-042")
	assert.Contains(t, ticket, "Mesa: C-1")
	assert.Contains(t, ticket, "Mesero: Andres")
	assert.Contains(t, ticket, "1. Coffee")
	assert.Contains(t, ticket, "Cantidad: 2")
	assert.Contains(t, ticket, "2. Arepa con queso")
	assert.Contains(t, ticket, "Cantidad: 1.5")
	assert.Contains(t, ticket, "NOTAS:")
	assert.Contains(t, ticket, "- Sin azucar")
	assert.Contains(t, ticket, "Hora: 19:30:00")

	// No pricing on a kitchen ticket.
	assert.NotContains(t, ticket, "$")
	assert.NotContains(t, ticket, "TOTAL")

	// AutoCut ends the sequence with a cut.
	last := instructions[len(instructions)-1]
	assert.IsType(t, escpos.Cut{}, last)
}

func TestComposeComandaDefaultsOmittedQuantity(t *testing.T) {
	c, engine := newComposer(t)

	var order models.Order
	require.NoError(t, json.Unmarshal(
		[]byte(`{"type":"comanda","order_id":"C-1","items":[{"description":"Coffee"}]}`), &order))

	instructions, err := c.Compose(&order, testNow, Options{})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Contains(t, ticket, "1. Coffee")
	assert.Contains(t, ticket, "Cantidad: 1")
	assert.NotContains(t, ticket, "Cantidad: 0")
}

func TestComposeComandaReprintMarker(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:       models.OrderComanda,
		OrderID:    "ORD-042",
		PrintCount: 2,
		Items:      []models.LineItem{{Description: "Coffee", Quantity: 1}},
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)
	assert.Contains(t, render(t, engine, instructions), "Impresion #2")
}

func TestComposeComandaCentersHeader(t *testing.T) {
	c, _ := newComposer(t)

	order := &models.Order{
		Type:    models.OrderComanda,
		OrderID: "1",
		Items:   []models.LineItem{{Description: "Coffee", Quantity: 1}},
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	// The sequence opens centered, then the body returns to left.
	first, ok := instructions[0].(escpos.SetAlign)
	require.True(t, ok)
	assert.Equal(t, escpos.AlignCenter, first.Align)
}

func TestComposeComandaCapsComments(t *testing.T) {
	c, engine := newComposer(t)

	comments := make([]string, 60)
	for i := range comments {
		comments[i] = "nota"
	}
	order := &models.Order{
		Type:     models.OrderComanda,
		OrderID:  "1",
		Items:    []models.LineItem{{Description: "Coffee", Quantity: 1}},
		Comments: comments,
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)
	ticket := render(t, engine, instructions)
	assert.Equal(t, maxComments, strings.Count(ticket, "- nota"))
}

func TestComposeCuentaTotals(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:    models.OrderCuenta,
		OrderID: "REC-007",
		Items: []models.LineItem{
			{Description: "Coffee", Quantity: 2, UnitPrice: fptr(5), LineTotal: fptr(10)},
		},
		Subtotal:      10,
		TaxPercent:    19,
		TaxAmount:     1.90,
		GrandTotal:    11.90,
		PaymentMethod: "Efectivo",
		Business: models.BusinessInfo{
			Name:    "La Esquina",
			Address: "Calle 10 #4-20",
			Phone:   "3001234567",
		},
	}

	instructions, err := c.Compose(order, testNow, Options{AutoCut: true})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Contains(t, ticket, "La Esquina")
	assert.Contains(t, ticket, "CUENTA")
	assert.Contains(t, ticket, "Recibo: REC-007")
	assert.Contains(t, ticket, "Coffee")
	assert.Contains(t, ticket, "2 x $5.00")
	assert.Contains(t, ticket, "Sub Total")
	assert.Contains(t, ticket, "10.00")
	assert.Contains(t, ticket, "IVA 19%")
	assert.Contains(t, ticket, "1.90")
	assert.Contains(t, ticket, "TOTAL")
	assert.Contains(t, ticket, "11.90")
	assert.Contains(t, ticket, "Forma de pago: Efectivo")
	assert.Contains(t, ticket, "Gracias por su compra!")
}

func TestComposeCuentaOmitsZeroTax(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:       models.OrderCuenta,
		OrderID:    "1",
		Items:      []models.LineItem{},
		Subtotal:   10,
		GrandTotal: 10,
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.NotContains(t, ticket, "IVA")
	assert.NotContains(t, ticket, "Descuento")
	assert.Contains(t, ticket, "Sub Total")
	assert.Contains(t, ticket, "TOTAL")
}

func TestComposeCuentaTipLines(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:         models.OrderCuenta,
		OrderID:      "1",
		Items:        []models.LineItem{},
		Subtotal:     10,
		GrandTotal:   10,
		TipPercent:   10,
		TipAmount:    1,
		TotalWithTip: fptr(11),
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Contains(t, ticket, "Propina 10%")
	assert.Contains(t, ticket, "TOTAL + PROPINA")
	assert.Contains(t, ticket, "11.00")
}

func TestComposeCuentaTipRequiresBothFields(t *testing.T) {
	c, engine := newComposer(t)

	// Tip amount without a tip-inclusive total is partial data.
	order := &models.Order{
		Type:       models.OrderCuenta,
		OrderID:    "1",
		Items:      []models.LineItem{},
		Subtotal:   10,
		GrandTotal: 10,
		TipAmount:  1,
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.NotContains(t, ticket, "Propina")
	assert.NotContains(t, ticket, "TOTAL + PROPINA")
}

func TestComposeCuentaTipPercentAloneIsIgnored(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:       models.OrderCuenta,
		OrderID:    "1",
		Items:      []models.LineItem{},
		Subtotal:   10,
		GrandTotal: 10,
		TipPercent: 10,
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)
	assert.NotContains(t, render(t, engine, instructions), "Propina")
}

func TestComposeCuentaCopies(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:       models.OrderCuenta,
		OrderID:    "REC-1",
		Items:      []models.LineItem{},
		Subtotal:   5,
		GrandTotal: 5,
		Copies:     models.CopyCount(3),
	}

	instructions, err := c.Compose(order, testNow, Options{AutoCut: true})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Equal(t, 3, strings.Count(ticket, "Recibo: REC-1"))

	// Each copy carries its own cut so the stack separates.
	cuts := 0
	for _, ins := range instructions {
		if _, ok := ins.(escpos.Cut); ok {
			cuts++
		}
	}
	assert.Equal(t, 3, cuts)
}

func TestComposeCuentaQR(t *testing.T) {
	c, _ := newComposer(t)

	order := &models.Order{
		Type:          models.OrderCuenta,
		OrderID:       "1",
		Items:         []models.LineItem{},
		ValidationURL: "https://example.com/v/abc",
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	found := false
	for _, ins := range instructions {
		if qr, ok := ins.(escpos.PrintQR); ok {
			found = true
			assert.Equal(t, "https://example.com/v/abc", qr.Data)
		}
	}
	assert.True(t, found)
}

func TestComposeCuentaDrawerOnlyWhenRequested(t *testing.T) {
	c, _ := newComposer(t)

	order := &models.Order{
		Type:    models.OrderCuenta,
		OrderID: "1",
		Items:   []models.LineItem{},
	}

	hasDrawer := func(instructions []escpos.Instruction) bool {
		for _, ins := range instructions {
			if _, ok := ins.(escpos.OpenDrawer); ok {
				return true
			}
		}
		return false
	}

	with, err := c.Compose(order, testNow, Options{OpenDrawer: true})
	require.NoError(t, err)
	assert.True(t, hasDrawer(with))

	without, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)
	assert.False(t, hasDrawer(without))
}

func TestComposeSanitizesFields(t *testing.T) {
	c, engine := newComposer(t)

	order := &models.Order{
		Type:    models.OrderComanda,
		OrderID: "<script>",
		Items:   []models.LineItem{{Description: "Fish & Chips\x07", Quantity: 1}},
	}

	instructions, err := c.Compose(order, testNow, Options{})
	require.NoError(t, err)

	ticket := render(t, engine, instructions)
	assert.Contains(t, ticket, "&lt;script&gt;")
	assert.Contains(t, ticket, "Fish &amp; Chips")
	assert.NotContains(t, ticket, "\x07")
}

func TestComposeRejectsInvalidOrder(t *testing.T) {
	c, _ := newComposer(t)

	_, err := c.Compose(&models.Order{Type: models.OrderComanda}, testNow, Options{})
	assert.Error(t, err)
}

func TestComposeWithoutAutoCutFeedsInstead(t *testing.T) {
	c, _ := newComposer(t)

	order := &models.Order{
		Type:    models.OrderComanda,
		OrderID: "1",
		Items:   []models.LineItem{{Description: "Coffee", Quantity: 1}},
	}

	instructions, err := c.Compose(order, testNow, Options{AutoCut: false})
	require.NoError(t, err)

	for _, ins := range instructions {
		_, isCut := ins.(escpos.Cut)
		assert.False(t, isCut)
	}
	last := instructions[len(instructions)-1]
	feed, ok := last.(escpos.FeedLines)
	require.True(t, ok)
	assert.Equal(t, 4, feed.N)
}
