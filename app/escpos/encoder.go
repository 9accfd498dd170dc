package escpos

import (
	"bytes"
	"fmt"
	"strings"

	"PrintBridge/app/layout"

	"github.com/skip2/go-qrcode"
)

// ESC/POS control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	NL  byte = 0x0A
)

// Mode selects the encoder output format.
type Mode int

const (
	// ModeBinary emits raw ESC/POS command bytes for USB and network
	// printers.
	ModeBinary Mode = iota
	// ModeText emits a plain fixed-width text rendering for transports
	// that only accept text (OS spooler fallback, PDF).
	ModeText
)

// Encoder turns an instruction sequence into printer-ready output.
// Encoding is deterministic and stateless between calls.
type Encoder struct {
	mode   Mode
	engine *layout.Engine
}

// NewEncoder creates an encoder for the given mode and paper width.
func NewEncoder(mode Mode, engine *layout.Engine) *Encoder {
	return &Encoder{mode: mode, engine: engine}
}

// Encode renders the instruction sequence. A malformed sequence (embedded
// newlines, negative feeds, nil instructions) is a composer defect and
// returns an error rather than partial output.
func (e *Encoder) Encode(instructions []Instruction) ([]byte, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("empty instruction sequence")
	}
	if e.mode == ModeText {
		return e.encodeText(instructions)
	}
	return e.encodeBinary(instructions)
}

func (e *Encoder) encodeBinary(instructions []Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)

	// Initialize printer and select CP850 so Spanish text survives on
	// printers that honor the code page command.
	buf.Write([]byte{ESC, '@'})
	buf.Write([]byte{ESC, 't', 2})

	for i, ins := range instructions {
		switch v := ins.(type) {
		case SetAlign:
			var a byte
			switch v.Align {
			case AlignLeft:
				a = 0
			case AlignCenter:
				a = 1
			case AlignRight:
				a = 2
			default:
				return nil, fmt.Errorf("instruction %d: unknown alignment %d", i, v.Align)
			}
			buf.Write([]byte{ESC, 'a', a})
		case SetEmphasis:
			var b byte
			if v.Bold {
				b = 1
			}
			buf.Write([]byte{ESC, 'E', b})
			var size byte
			if v.DoubleWidth {
				size |= 0x10
			}
			if v.DoubleHeight {
				size |= 0x01
			}
			buf.Write([]byte{GS, '!', size})
		case WriteText:
			if strings.ContainsRune(v.Text, '\n') {
				return nil, fmt.Errorf("instruction %d: text contains newline", i)
			}
			buf.WriteString(removeDiacritics(v.Text))
			buf.WriteByte(NL)
		case FeedLines:
			if v.N < 0 {
				return nil, fmt.Errorf("instruction %d: negative feed %d", i, v.N)
			}
			for n := 0; n < v.N; n++ {
				buf.WriteByte(NL)
			}
		case Cut:
			if v.Mode == CutPartial {
				buf.Write([]byte{GS, 'V', 'B', 0})
			} else {
				buf.Write([]byte{GS, 'V', 'A', 0})
			}
		case OpenDrawer:
			buf.Write([]byte{ESC, 'p', 0, 25, 250})
		case PrintQR:
			if err := writeQRBitmap(buf, v); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
		case nil:
			return nil, fmt.Errorf("instruction %d: nil instruction", i)
		default:
			return nil, fmt.Errorf("instruction %d: unsupported instruction %T", i, ins)
		}
	}

	return buf.Bytes(), nil
}

func (e *Encoder) encodeText(instructions []Instruction) ([]byte, error) {
	var sb strings.Builder
	align := AlignLeft

	for i, ins := range instructions {
		switch v := ins.(type) {
		case SetAlign:
			if v.Align > AlignRight {
				return nil, fmt.Errorf("instruction %d: unknown alignment %d", i, v.Align)
			}
			align = v.Align
		case SetEmphasis:
			// No emphasis in plain text output.
		case WriteText:
			if strings.ContainsRune(v.Text, '\n') {
				return nil, fmt.Errorf("instruction %d: text contains newline", i)
			}
			switch align {
			case AlignCenter:
				sb.WriteString(e.engine.Center(v.Text))
			case AlignRight:
				sb.WriteString(e.engine.RightAlign(v.Text))
			default:
				sb.WriteString(v.Text)
			}
			sb.WriteByte('\n')
		case FeedLines:
			if v.N < 0 {
				return nil, fmt.Errorf("instruction %d: negative feed %d", i, v.N)
			}
			sb.WriteString(strings.Repeat("\n", v.N))
		case Cut:
			// A cut renders as paper advance so stacked copies stay
			// visually separated.
			sb.WriteString("\n\n")
		case OpenDrawer:
			// Not representable in text output.
		case PrintQR:
			switch align {
			case AlignCenter:
				sb.WriteString(e.engine.Center(v.Data))
			default:
				sb.WriteString(v.Data)
			}
			sb.WriteByte('\n')
		case nil:
			return nil, fmt.Errorf("instruction %d: nil instruction", i)
		default:
			return nil, fmt.Errorf("instruction %d: unsupported instruction %T", i, ins)
		}
	}

	return []byte(sb.String()), nil
}

// writeQRBitmap rasterizes a QR code with GS v 0, the raster command
// modern thermal printers accept.
func writeQRBitmap(buf *bytes.Buffer, qr PrintQR) error {
	code, err := qrcode.New(qr.Data, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	modules := code.Bitmap()
	size := len(modules)
	if size == 0 {
		return fmt.Errorf("empty QR bitmap")
	}

	// Scale modules to dots, capped at the 58mm printable width (288
	// dots at 203 DPI) so the code fits either paper profile.
	scale := 1
	if qr.Size > 0 {
		scale = qr.Size / size
	}
	if scale < 1 {
		scale = 1
	}
	for size*scale > 288 && scale > 1 {
		scale--
	}

	dots := size * scale
	widthBytes := (dots + 7) / 8

	buf.Write([]byte{GS, 'v', '0', 0})
	buf.WriteByte(byte(widthBytes % 256))
	buf.WriteByte(byte(widthBytes / 256))
	buf.WriteByte(byte(dots % 256))
	buf.WriteByte(byte(dots / 256))

	for y := 0; y < dots; y++ {
		row := modules[y/scale]
		for x := 0; x < widthBytes*8; x += 8 {
			var b byte
			for bit := 0; bit < 8; bit++ {
				px := x + bit
				if px < dots && row[px/scale] {
					b |= 1 << uint(7-bit)
				}
			}
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(NL)

	return nil
}

// removeDiacritics maps accented characters to plain ASCII. CP850 is
// selected at init, but printers stuck on CP437 silently corrupt
// accented bytes, so stripping keeps tickets readable everywhere.
func removeDiacritics(text string) string {
	replacements := map[rune]rune{
		'á': 'a', 'Á': 'A',
		'é': 'e', 'É': 'E',
		'í': 'i', 'Í': 'I',
		'ó': 'o', 'Ó': 'O',
		'ú': 'u', 'Ú': 'U',
		'ü': 'u', 'Ü': 'U',
		'ñ': 'n', 'Ñ': 'N',
		'¿': '?', '¡': '!',
		'º': 'o', 'ª': 'a',
		'€': 'E',
	}

	var result []rune
	for _, r := range text {
		if r < 128 {
			result = append(result, r)
		} else if replacement, ok := replacements[r]; ok {
			result = append(result, replacement)
		} else {
			result = append(result, ' ')
		}
	}
	return string(result)
}
