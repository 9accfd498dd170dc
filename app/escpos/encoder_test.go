package escpos

import (
	"bytes"
	"strings"
	"testing"

	"PrintBridge/app/layout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *layout.Engine {
	t.Helper()
	engine, err := layout.ForPaper(80)
	require.NoError(t, err)
	return engine
}

func TestEncodeBinaryEmitsInitSequence(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{WriteText{Text: "hola"}})
	require.NoError(t, err)

	// ESC @ then ESC t 2 before any content.
	assert.True(t, bytes.HasPrefix(out, []byte{ESC, '@', ESC, 't', 2}))
	assert.True(t, bytes.Contains(out, []byte("hola\n")))
}

func TestEncodeBinaryControlBytes(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{
		SetAlign{Align: AlignCenter},
		SetEmphasis{Bold: true, DoubleWidth: true, DoubleHeight: true},
		WriteText{Text: "COMANDA"},
		SetEmphasis{},
		FeedLines{N: 2},
		Cut{Mode: CutFull},
		OpenDrawer{},
	})
	require.NoError(t, err)

	assert.True(t, bytes.Contains(out, []byte{ESC, 'a', 1}))
	assert.True(t, bytes.Contains(out, []byte{ESC, 'E', 1}))
	assert.True(t, bytes.Contains(out, []byte{GS, '!', 0x11}))
	assert.True(t, bytes.Contains(out, []byte{ESC, 'E', 0}))
	assert.True(t, bytes.Contains(out, []byte{GS, '!', 0x00}))
	assert.True(t, bytes.Contains(out, []byte{GS, 'V', 'A', 0}))
	assert.True(t, bytes.Contains(out, []byte{ESC, 'p', 0, 25, 250}))
}

func TestEncodeBinaryPartialCut(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{Cut{Mode: CutPartial}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte{GS, 'V', 'B', 0}))
}

func TestEncodeBinaryAlignmentValues(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{
		SetAlign{Align: AlignLeft},
		SetAlign{Align: AlignCenter},
		SetAlign{Align: AlignRight},
	})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte{ESC, 'a', 0}))
	assert.True(t, bytes.Contains(out, []byte{ESC, 'a', 1}))
	assert.True(t, bytes.Contains(out, []byte{ESC, 'a', 2}))
}

func TestEncodeBinaryStripsDiacritics(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{WriteText{Text: "Jamón Ibérico ¿sí?"}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("Jamon Iberico ?si?\n")))
}

func TestEncodeBinaryQRProducesRaster(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))

	out, err := enc.Encode([]Instruction{PrintQR{Data: "https://example.com/v/123", Size: 256}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte{GS, 'v', '0', 0}))
	// A QR raster is far larger than the header alone.
	assert.Greater(t, len(out), 200)
}

func TestEncodeTextCentersAndRenders(t *testing.T) {
	enc := NewEncoder(ModeText, newEngine(t))

	out, err := enc.Encode([]Instruction{
		SetAlign{Align: AlignCenter},
		WriteText{Text: "COMANDA"},
		SetAlign{Align: AlignLeft},
		WriteText{Text: "Orden: 42"},
		FeedLines{N: 1},
		Cut{Mode: CutFull},
	})
	require.NoError(t, err)

	text := string(out)
	lines := strings.Split(text, "\n")
	// (48-7)/2 = 20 leading spaces.
	assert.Equal(t, strings.Repeat(" ", 20)+"COMANDA", lines[0])
	assert.Equal(t, "Orden: 42", lines[1])
	// No raw control bytes in text output.
	assert.NotContains(t, text, "\x1b")
	assert.NotContains(t, text, "\x1d")
}

func TestEncodeTextKeepsAccents(t *testing.T) {
	enc := NewEncoder(ModeText, newEngine(t))

	out, err := enc.Encode([]Instruction{WriteText{Text: "Jamón"}})
	require.NoError(t, err)
	assert.Equal(t, "Jamón\n", string(out))
}

func TestEncodeTextQRRendersAsURL(t *testing.T) {
	enc := NewEncoder(ModeText, newEngine(t))

	out, err := enc.Encode([]Instruction{PrintQR{Data: "https://example.com/v/1"}})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v/1\n", string(out))
}

func TestEncodeRejectsMalformedSequences(t *testing.T) {
	for _, mode := range []Mode{ModeBinary, ModeText} {
		enc := NewEncoder(mode, newEngine(t))

		_, err := enc.Encode(nil)
		assert.Error(t, err)

		_, err = enc.Encode([]Instruction{WriteText{Text: "a\nb"}})
		assert.Error(t, err)

		_, err = enc.Encode([]Instruction{FeedLines{N: -1}})
		assert.Error(t, err)

		_, err = enc.Encode([]Instruction{nil})
		assert.Error(t, err)
	}
}

func TestEncodeRejectsUnknownAlignment(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))
	_, err := enc.Encode([]Instruction{SetAlign{Align: Alignment(9)}})
	assert.Error(t, err)
}

func TestEncodeIsDeterministic(t *testing.T) {
	enc := NewEncoder(ModeBinary, newEngine(t))
	seq := []Instruction{
		SetAlign{Align: AlignCenter},
		WriteText{Text: "CUENTA"},
		Cut{Mode: CutFull},
	}

	a, err := enc.Encode(seq)
	require.NoError(t, err)
	b, err := enc.Encode(seq)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
