package printing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PrintBridge/app/escpos"
	"PrintBridge/app/layout"
	"PrintBridge/app/models"
	"PrintBridge/app/receipt"
)

// Job sequence numbers run 1..9999 and wrap.
const maxJobNumber = 9999

// ErrorKind classifies a dispatch failure for the caller.
type ErrorKind string

const (
	ErrKindValidation  ErrorKind = "validation_error"
	ErrKindBusy        ErrorKind = "busy"
	ErrKindEncoding    ErrorKind = "encoding_error"
	ErrKindAllFailed   ErrorKind = "all_transports_failed"
	ErrKindUnavailable ErrorKind = "transport_unavailable"
)

// DispatchResult is the outcome reported back to the caller.
type DispatchResult struct {
	Success   bool          `json:"success"`
	Transport TransportKind `json:"transport_used,omitempty"`
	JobNumber int           `json:"job_sequence_number,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Message   string        `json:"message"`
	Attempts  []Outcome     `json:"attempts,omitempty"`
}

// Settings name the transports and their connection parameters
// explicitly; there is no heuristic device probing in the dispatcher.
type Settings struct {
	PaperWidthMM     int // 58 or 80
	USBDevice        string
	NetworkEndpoints []string
	SpoolerPrinter   string
	AutoCut          bool
	CashDrawer       bool
	Business         models.BusinessInfo // ticket header when the payload has none

	USBTimeout     time.Duration
	NetworkTimeout time.Duration
	SpoolerTimeout time.Duration
	PDFTimeout     time.Duration
}

func (s *Settings) fillDefaults() {
	if s.PaperWidthMM == 0 {
		s.PaperWidthMM = 80
	}
	if s.USBTimeout <= 0 {
		s.USBTimeout = 4 * time.Second
	}
	if s.NetworkTimeout <= 0 {
		s.NetworkTimeout = 6 * time.Second
	}
	if s.SpoolerTimeout <= 0 {
		s.SpoolerTimeout = 20 * time.Second
	}
	if s.PDFTimeout <= 0 {
		s.PDFTimeout = 30 * time.Second
	}
}

// Dispatcher serializes print jobs through a process-wide single-flight
// lock and walks the transport fallback chain. The lock represents the
// single physical paper path: it always starts unheld at process start.
type Dispatcher struct {
	settings   Settings
	engine     *layout.Engine
	composer   *receipt.Composer
	binaryEnc  *escpos.Encoder
	textEnc    *escpos.Encoder
	transports []Transport
	log        Logger
	notify     func(event string, result *DispatchResult)

	mu        sync.Mutex
	busy      bool
	heldSince time.Time
	seq       int
}

// NewDispatcher wires the composition pipeline and the transport chain
// in reliability order: USB first when a device is configured, then
// network, then the OS spooler, then PDF as last resort.
func NewDispatcher(settings Settings, log Logger) (*Dispatcher, error) {
	settings.fillDefaults()

	engine, err := layout.ForPaper(settings.PaperWidthMM)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		settings:  settings,
		engine:    engine,
		composer:  receipt.NewComposer(engine),
		binaryEnc: escpos.NewEncoder(escpos.ModeBinary, engine),
		textEnc:   escpos.NewEncoder(escpos.ModeText, engine),
		log:       log,
	}

	if settings.USBDevice != "" {
		d.transports = append(d.transports, NewUSBTransport(settings.USBDevice))
	}
	if len(settings.NetworkEndpoints) > 0 {
		d.transports = append(d.transports, NewNetworkTransport(settings.NetworkEndpoints, 2*time.Second))
	}
	if settings.SpoolerPrinter != "" {
		spooler := NewSpoolerTransport(settings.SpoolerPrinter, 0, log)
		d.transports = append(d.transports, spooler)
		d.transports = append(d.transports, NewPDFTransport(spooler, 0, log))
	}
	if len(d.transports) == 0 {
		return nil, fmt.Errorf("no transports configured")
	}

	return d, nil
}

// SetNotifier registers a fire-and-forget callback for job lifecycle
// events ("job_started", "job_finished").
func (d *Dispatcher) SetNotifier(notify func(event string, result *DispatchResult)) {
	d.notify = notify
}

// Transports exposes the configured chain, in attempt order.
func (d *Dispatcher) Transports() []TransportKind {
	kinds := make([]TransportKind, len(d.transports))
	for i, t := range d.transports {
		kinds[i] = t.Kind()
	}
	return kinds
}

// Busy reports whether a job currently holds the dispatch lock, and
// since when.
func (d *Dispatcher) Busy() (bool, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy, d.heldSince
}

// Dispatch runs one print job to completion. Validation failures return
// before any lock work; a held lock returns a busy outcome immediately
// rather than queueing, as deliberate backpressure.
func (d *Dispatcher) Dispatch(ctx context.Context, order *models.Order) *DispatchResult {
	if err := order.Validate(); err != nil {
		return &DispatchResult{
			ErrorKind: ErrKindValidation,
			Message:   err.Error(),
		}
	}

	jobID, ok := d.acquire()
	if !ok {
		return &DispatchResult{
			ErrorKind: ErrKindBusy,
			Message:   "a print job is already in progress, retry later",
		}
	}

	var result *DispatchResult
	defer func() {
		if r := recover(); r != nil {
			if d.log != nil {
				d.log.LogError("Panic during dispatch", fmt.Errorf("%v", r))
			}
			result = &DispatchResult{
				JobNumber: jobID,
				ErrorKind: ErrKindAllFailed,
				Message:   fmt.Sprintf("internal fault during dispatch: %v", r),
			}
		}
		d.release(result != nil && result.Success, jobID)
		d.emit("job_finished", result)
	}()

	result = d.run(ctx, order, jobID)
	return result
}

func (d *Dispatcher) run(ctx context.Context, order *models.Order, jobID int) *DispatchResult {
	opts := receipt.Options{
		AutoCut:    d.settings.AutoCut,
		OpenDrawer: d.settings.CashDrawer && order.Type == models.OrderCuenta,
	}

	if order.Business == (models.BusinessInfo{}) {
		order.Business = d.settings.Business
	}

	instructions, err := d.composer.Compose(order, time.Now(), opts)
	if err != nil {
		return &DispatchResult{
			JobNumber: jobID,
			ErrorKind: ErrKindEncoding,
			Message:   fmt.Sprintf("failed to compose ticket: %v", err),
		}
	}

	raw, err := d.binaryEnc.Encode(instructions)
	if err != nil {
		return &DispatchResult{
			JobNumber: jobID,
			ErrorKind: ErrKindEncoding,
			Message:   fmt.Sprintf("failed to encode ticket: %v", err),
		}
	}
	text, err := d.textEnc.Encode(instructions)
	if err != nil {
		return &DispatchResult{
			JobNumber: jobID,
			ErrorKind: ErrKindEncoding,
			Message:   fmt.Sprintf("failed to encode ticket: %v", err),
		}
	}

	payload := &Payload{
		JobID: jobID,
		Raw:   raw,
		Text:  string(text),
		Width: d.engine.Width(),
	}

	d.emit("job_started", &DispatchResult{JobNumber: jobID, Message: string(order.Type)})

	// Watchdog: the whole job may not outlive the sum of per-transport
	// timeouts even if an underlying OS call ignores cancellation.
	total := d.settings.USBTimeout + d.settings.NetworkTimeout + d.settings.SpoolerTimeout + d.settings.PDFTimeout
	jobCtx, cancel := context.WithTimeout(ctx, total)
	defer cancel()

	var attempts []Outcome
	for _, transport := range d.transports {
		outcome := d.attempt(jobCtx, transport, payload)
		attempts = append(attempts, outcome)
		if outcome.Success {
			if d.log != nil {
				d.log.LogInfo("Print job delivered",
					fmt.Sprintf("job=%d transport=%s latency=%s", jobID, outcome.Transport, outcome.Latency))
			}
			return &DispatchResult{
				Success:   true,
				Transport: outcome.Transport,
				JobNumber: jobID,
				Message:   "ticket sent to printer",
				Attempts:  attempts,
			}
		}
		if d.log != nil {
			d.log.LogWarning("Transport attempt failed",
				fmt.Sprintf("job=%d transport=%s error=%s", jobID, outcome.Transport, outcome.Error))
		}
		if jobCtx.Err() != nil {
			break
		}
	}

	last := attempts[len(attempts)-1]
	return &DispatchResult{
		JobNumber: jobID,
		ErrorKind: ErrKindAllFailed,
		Message:   fmt.Sprintf("all transports failed, last error (%s): %s", last.Transport, last.Error),
		Attempts:  attempts,
	}
}

func (d *Dispatcher) attempt(ctx context.Context, transport Transport, payload *Payload) Outcome {
	timeout := d.timeoutFor(transport.Kind())
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := transport.Attempt(attemptCtx, payload)
	outcome := Outcome{
		Transport: transport.Kind(),
		Success:   err == nil,
		Latency:   time.Since(start),
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	return outcome
}

func (d *Dispatcher) timeoutFor(kind TransportKind) time.Duration {
	switch kind {
	case TransportUSB:
		return d.settings.USBTimeout
	case TransportNetwork:
		return d.settings.NetworkTimeout
	case TransportSpooler:
		return d.settings.SpoolerTimeout
	default:
		return d.settings.PDFTimeout
	}
}

// acquire takes the single-flight lock and reserves the next job number.
// The number is committed only when the job succeeds, so a failed job's
// number is reused by the next request.
func (d *Dispatcher) acquire() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return 0, false
	}
	d.busy = true
	d.heldSince = time.Now()
	jobID := d.seq + 1
	if jobID > maxJobNumber {
		jobID = 1
	}
	return jobID, true
}

// release frees the lock on every exit path, including panics.
func (d *Dispatcher) release(success bool, jobID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if success {
		d.seq = jobID
	}
	d.busy = false
	d.heldSince = time.Time{}
}

func (d *Dispatcher) emit(event string, result *DispatchResult) {
	if d.notify != nil && result != nil {
		d.notify(event, result)
	}
}
