package printing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// 80mm ticket page, zero margins, monospaced text.
const (
	pdfPageWidthMM  = 80.0
	pdfPageHeightMM = 297.0
	pdfFontSize     = 8.0
	pdfRowHeightMM  = 3.5
)

// PDFTransport renders the plain-text ticket into a fixed-width PDF and
// submits the document through the OS spooler. It is the last-resort
// path for printers that only expose a paginated-document driver.
type PDFTransport struct {
	Spooler      *SpoolerTransport
	CleanupDelay time.Duration
	Log          Logger

	// render overrides PDF generation for tests.
	render func(lines []string) ([]byte, error)
}

// NewPDFTransport creates a PDF transport submitting through the given
// spooler.
func NewPDFTransport(spooler *SpoolerTransport, cleanupDelay time.Duration, log Logger) *PDFTransport {
	if cleanupDelay <= 0 {
		cleanupDelay = 15 * time.Second
	}
	return &PDFTransport{Spooler: spooler, CleanupDelay: cleanupDelay, Log: log}
}

func (t *PDFTransport) Kind() TransportKind {
	return TransportPDF
}

func (t *PDFTransport) Attempt(ctx context.Context, payload *Payload) error {
	if t.Spooler == nil || t.Spooler.PrinterName == "" {
		return fmt.Errorf("no printer configured for pdf output")
	}

	lines := strings.Split(strings.TrimRight(payload.Text, "\n"), "\n")

	renderer := t.render
	if renderer == nil {
		renderer = renderTicketPDF
	}
	doc, err := renderer(lines)
	if err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "posprint_*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp pdf: %w", err)
	}
	path := tmpFile.Name()
	time.AfterFunc(t.CleanupDelay, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if t.Log != nil {
				t.Log.LogWarning("Failed to remove rendered pdf", path)
			}
		}
	})

	if _, err := tmpFile.Write(doc); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	tmpFile.Close()

	return t.Spooler.SubmitFile(ctx, path)
}

// renderTicketPDF lays the ticket lines onto an 80mm page with a
// monospaced font so the fixed-width layout survives.
func renderTicketPDF(lines []string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithDimensions(pdfPageWidthMM, pdfPageHeightMM).
		WithLeftMargin(0).
		WithRightMargin(0).
		WithTopMargin(0).
		WithDefaultFont(&props.Font{Family: fontfamily.Courier, Size: pdfFontSize}).
		Build()

	m := maroto.New(cfg)
	for _, line := range lines {
		m.AddRow(pdfRowHeightMM, text.NewCol(12, line, props.Text{
			Size:   pdfFontSize,
			Family: fontfamily.Courier,
		}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
