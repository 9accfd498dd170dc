package receipt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"PrintBridge/app/escpos"
	"PrintBridge/app/layout"
	"PrintBridge/app/models"
)

// Comments beyond this count are dropped to bound ticket length against
// pathological payloads.
const maxComments = 50

// Individual comments longer than this are truncated.
const maxCommentLen = 120

const timeFormat = "2006-01-02 15:04:05"

// Options control the trailing hardware instructions of a ticket.
type Options struct {
	AutoCut    bool
	OpenDrawer bool // cuenta only, printers with a drawer attached
}

// Composer transforms an order into a transport-agnostic instruction
// sequence. It is pure: no I/O, no clock (the dispatch time is passed in).
type Composer struct {
	engine *layout.Engine
}

// NewComposer creates a composer for the given paper layout.
func NewComposer(engine *layout.Engine) *Composer {
	return &Composer{engine: engine}
}

// Compose renders the order into print instructions. The order must have
// passed Validate; totals are rendered as supplied, never recomputed.
func (c *Composer) Compose(order *models.Order, now time.Time, opts Options) ([]escpos.Instruction, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	switch order.Type {
	case models.OrderComanda:
		return c.comanda(order, now, opts), nil
	case models.OrderCuenta:
		copies := order.Copies.Normalize()
		var out []escpos.Instruction
		for i := 0; i < copies; i++ {
			out = append(out, c.cuenta(order, now, opts)...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown order type: %q", order.Type)
	}
}

// comanda builds a kitchen ticket: no pricing, quantities emphasized.
func (c *Composer) comanda(order *models.Order, now time.Time, opts Options) []escpos.Instruction {
	b := newBuilder()

	b.align(escpos.AlignCenter)
	if order.Business.Name != "" {
		b.line(sanitize(order.Business.Name))
	}
	b.bold(true)
	b.doubleSize(true)
	b.line("COMANDA")
	b.doubleSize(false)
	b.bold(false)
	b.feed(1)

	b.align(escpos.AlignLeft)
	b.line(c.engine.Separator('='))
	b.line(fmt.Sprintf("Orden: %s", sanitize(order.OrderID)))
	if order.Table != "" {
		b.bold(true)
		b.line(fmt.Sprintf("Mesa: %s", sanitize(order.Table)))
		b.bold(false)
	}
	if order.Waiter != "" {
		b.line(fmt.Sprintf("Mesero: %s", sanitize(order.Waiter)))
	}
	b.line(fmt.Sprintf("Fecha: %s", order.Timestamp(now).Format(timeFormat)))
	b.line(c.engine.Separator('='))

	for i, item := range order.Items {
		b.bold(true)
		b.line(fmt.Sprintf("%d. %s", i+1, sanitize(item.Description)))
		b.bold(false)
		b.line(fmt.Sprintf("   Cantidad: %s", formatQuantity(item.Quantity)))
	}

	if len(order.Comments) > 0 {
		comments := order.Comments
		if len(comments) > maxComments {
			comments = comments[:maxComments]
		}
		b.line(c.engine.Separator('-'))
		b.bold(true)
		b.line("NOTAS:")
		b.bold(false)
		for _, comment := range comments {
			b.line(fmt.Sprintf("- %s", truncate(sanitize(comment), maxCommentLen)))
		}
	}

	b.line(c.engine.Separator('='))
	b.align(escpos.AlignCenter)
	if order.PrintCount > 0 {
		b.line(fmt.Sprintf("Impresion #%d", order.PrintCount))
	}
	b.line(fmt.Sprintf("Hora: %s", now.Format("15:04:05")))

	b.finish(opts.AutoCut, false)
	return b.out
}

// cuenta builds one complete, independently cuttable copy of a bill.
func (c *Composer) cuenta(order *models.Order, now time.Time, opts Options) []escpos.Instruction {
	b := newBuilder()

	b.align(escpos.AlignCenter)
	if order.Business.Name != "" {
		b.bold(true)
		b.doubleSize(true)
		b.line(sanitize(order.Business.Name))
		b.doubleSize(false)
		b.bold(false)
	}
	if order.Business.Address != "" {
		b.line(sanitize(order.Business.Address))
	}
	if order.Business.Phone != "" {
		b.line(fmt.Sprintf("Tel: %s", sanitize(order.Business.Phone)))
	}
	b.bold(true)
	b.line("CUENTA")
	b.bold(false)
	b.feed(1)

	b.align(escpos.AlignLeft)
	b.line(c.engine.Separator('='))
	b.line(fmt.Sprintf("Recibo: %s", sanitize(order.OrderID)))
	b.line(fmt.Sprintf("Fecha: %s", order.Timestamp(now).Format(timeFormat)))
	b.line(c.engine.Separator('='))

	for _, item := range order.Items {
		desc := sanitize(item.Description)
		if item.LineTotal != nil {
			b.line(c.engine.TwoColumn(desc, formatMoney(*item.LineTotal)))
		} else {
			b.line(desc)
		}
		if item.UnitPrice != nil {
			b.line(fmt.Sprintf("  %s x $%s", formatQuantity(item.Quantity), formatMoney(*item.UnitPrice)))
		}
	}

	b.line(c.engine.Separator('-'))
	b.line(c.engine.TwoColumn("Sub Total", formatMoney(order.Subtotal)))
	if order.TaxPercent > 0 {
		label := fmt.Sprintf("IVA %d%%", roundPercent(order.TaxPercent))
		b.line(c.engine.TwoColumn(label, formatMoney(order.TaxAmount)))
	}
	if order.DiscountAmount > 0 {
		label := "Descuento"
		if roundPercent(order.DiscountPercent) > 0 {
			label = fmt.Sprintf("Descuento %d%%", roundPercent(order.DiscountPercent))
		}
		b.line(c.engine.TwoColumn(label, "-"+formatMoney(order.DiscountAmount)))
	}
	b.bold(true)
	b.line(c.engine.TwoColumn("TOTAL", formatMoney(order.GrandTotal)))
	b.bold(false)

	// Both tip conditions are required: a non-zero tip without a
	// tip-inclusive total (or vice versa) is partial data and stays off
	// the ticket.
	if order.TipAmount != 0 && order.TotalWithTip != nil {
		label := "Propina"
		if roundPercent(order.TipPercent) > 0 {
			label = fmt.Sprintf("Propina %d%%", roundPercent(order.TipPercent))
		}
		b.line(c.engine.TwoColumn(label, formatMoney(order.TipAmount)))
		b.bold(true)
		b.line(c.engine.TwoColumn("TOTAL + PROPINA", formatMoney(*order.TotalWithTip)))
		b.bold(false)
	}

	b.line(c.engine.Separator('='))
	if order.PaymentMethod != "" {
		b.line(fmt.Sprintf("Forma de pago: %s", sanitize(order.PaymentMethod)))
	}

	b.feed(1)
	b.align(escpos.AlignCenter)
	b.line("Gracias por su compra!")
	if order.Business.Website != "" {
		b.line(sanitize(order.Business.Website))
	}
	b.line(fmt.Sprintf("Impreso: %s", now.Format(timeFormat)))

	if order.ValidationURL != "" {
		b.feed(1)
		b.out = append(b.out, escpos.PrintQR{Data: sanitize(order.ValidationURL), Size: 256})
	}

	b.finish(opts.AutoCut, opts.OpenDrawer)
	return b.out
}

// builder accumulates instructions with small helpers so the layout
// methods above read like the ticket itself.
type builder struct {
	out []escpos.Instruction
}

func newBuilder() *builder {
	return &builder{}
}

func (b *builder) align(a escpos.Alignment) {
	b.out = append(b.out, escpos.SetAlign{Align: a})
}

func (b *builder) bold(on bool) {
	b.out = append(b.out, escpos.SetEmphasis{Bold: on})
}

func (b *builder) doubleSize(on bool) {
	b.out = append(b.out, escpos.SetEmphasis{Bold: true, DoubleWidth: on, DoubleHeight: on})
}

func (b *builder) line(text string) {
	b.out = append(b.out, escpos.WriteText{Text: text})
}

func (b *builder) feed(n int) {
	b.out = append(b.out, escpos.FeedLines{N: n})
}

func (b *builder) finish(autoCut, drawer bool) {
	if autoCut {
		b.feed(2)
		b.out = append(b.out, escpos.Cut{Mode: escpos.CutFull})
	} else {
		b.feed(4)
	}
	if drawer {
		b.out = append(b.out, escpos.OpenDrawer{})
	}
}

// sanitize neutralizes markup-significant characters and strips control
// characters. Applied to every interpolated field regardless of the
// transport chosen later, since the text stream may be re-rendered
// through an intermediate document format.
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '&':
			sb.WriteString("&amp;")
		case r == '<':
			sb.WriteString("&lt;")
		case r == '>':
			sb.WriteString("&gt;")
		case r < 0x20 || r == 0x7F:
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// formatMoney renders monetary amounts with exactly two decimals.
func formatMoney(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// formatQuantity trims insignificant zeros so whole quantities print
// without a decimal point.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// roundPercent rounds a percentage for display labels only; the stored
// value stays unrounded.
func roundPercent(p float64) int {
	return int(math.Round(p))
}
