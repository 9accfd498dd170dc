package printing

import (
	"context"
	"fmt"
	"os"
)

// USBTransport writes the binary ESC/POS stream straight to a USB (or
// serial) printer device file. Opening the device either succeeds
// quickly or the printer is absent, so the attempt fails fast.
type USBTransport struct {
	DevicePath string
}

// NewUSBTransport creates a transport for the given device path
// (e.g. /dev/usb/lp0, /dev/ttyUSB0, COM3).
func NewUSBTransport(devicePath string) *USBTransport {
	return &USBTransport{DevicePath: devicePath}
}

func (t *USBTransport) Kind() TransportKind {
	return TransportUSB
}

// Attempt opens the device, writes the payload and closes. The open and
// write run in a goroutine so a wedged device cannot block past the
// caller's deadline; an abandoned attempt still closes the descriptor.
func (t *USBTransport) Attempt(ctx context.Context, payload *Payload) error {
	if t.DevicePath == "" {
		return fmt.Errorf("no usb device configured")
	}

	done := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(t.DevicePath, os.O_RDWR, 0)
		if err != nil {
			done <- fmt.Errorf("failed to open usb printer at %s: %w", t.DevicePath, err)
			return
		}
		defer f.Close()
		if _, err := f.Write(payload.Raw); err != nil {
			done <- fmt.Errorf("failed to write to usb printer: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("usb attempt timed out: %w", ctx.Err())
	}
}
