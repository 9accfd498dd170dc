package escpos

// Alignment selects the printer's horizontal alignment mode.
type Alignment byte

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// CutMode selects full or partial paper cut.
type CutMode byte

const (
	CutFull CutMode = iota
	CutPartial
)

// Instruction is one logical print operation. The composer produces an
// ordered sequence of these; the encoder turns them into printer bytes
// or plain text depending on the target transport.
type Instruction interface {
	instruction()
}

// SetAlign switches the alignment for subsequent text.
type SetAlign struct {
	Align Alignment
}

// SetEmphasis toggles bold and double-size text.
type SetEmphasis struct {
	Bold         bool
	DoubleWidth  bool
	DoubleHeight bool
}

// WriteText prints a single line of text. The text must not contain
// newlines; the encoder terminates each line itself.
type WriteText struct {
	Text string
}

// FeedLines advances the paper n lines.
type FeedLines struct {
	N int
}

// Cut cuts the paper.
type Cut struct {
	Mode CutMode
}

// OpenDrawer sends a cash drawer kick pulse.
type OpenDrawer struct{}

// PrintQR prints a QR code. Binary targets rasterize it as a bitmap;
// text targets print the data as a line instead.
type PrintQR struct {
	Data string
	Size int // pixel width of the rendered code
}

func (SetAlign) instruction()    {}
func (SetEmphasis) instruction() {}
func (WriteText) instruction()   {}
func (FeedLines) instruction()   {}
func (Cut) instruction()         {}
func (OpenDrawer) instruction()  {}
func (PrintQR) instruction()     {}
