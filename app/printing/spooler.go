package printing

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// SpoolerTransport submits print content to a named printer through the
// OS print spooler. Several submission strategies are tried in a fixed
// order: a raw binary spool first (preserves ESC/POS formatting), then a
// plain-text submission for drivers that reject raw jobs.
type SpoolerTransport struct {
	PrinterName  string
	CleanupDelay time.Duration
	Log          Logger

	// submit overrides the platform submission for tests.
	submit func(ctx context.Context, path, printerName string, raw bool) error
}

// NewSpoolerTransport creates a spooler transport for the named printer.
// Temp files are removed after cleanupDelay so a spooler that reads the
// file asynchronously is not cut off.
func NewSpoolerTransport(printerName string, cleanupDelay time.Duration, log Logger) *SpoolerTransport {
	if cleanupDelay <= 0 {
		cleanupDelay = 15 * time.Second
	}
	return &SpoolerTransport{
		PrinterName:  printerName,
		CleanupDelay: cleanupDelay,
		Log:          log,
	}
}

func (t *SpoolerTransport) Kind() TransportKind {
	return TransportSpooler
}

func (t *SpoolerTransport) Attempt(ctx context.Context, payload *Payload) error {
	if t.PrinterName == "" {
		return fmt.Errorf("no spooler printer configured")
	}

	// Strategy 1: raw ESC/POS bytes.
	rawErr := t.submitBytes(ctx, payload.Raw, ".prn", true)
	if rawErr == nil {
		return nil
	}

	// Strategy 2: plain text for drivers that refuse raw data.
	if err := t.submitBytes(ctx, []byte(payload.Text), ".txt", false); err != nil {
		return fmt.Errorf("all spooler strategies failed: raw: %v; text: %w", rawErr, err)
	}
	return nil
}

// SubmitFile hands an existing file (e.g. a rendered PDF) to the
// spooler as a regular document.
func (t *SpoolerTransport) SubmitFile(ctx context.Context, path string) error {
	if t.PrinterName == "" {
		return fmt.Errorf("no spooler printer configured")
	}
	return t.doSubmit(ctx, path, false)
}

func (t *SpoolerTransport) submitBytes(ctx context.Context, data []byte, ext string, raw bool) error {
	tmpFile, err := os.CreateTemp("", "posprint_*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmpFile.Name()
	t.scheduleCleanup(path)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	return t.doSubmit(ctx, path, raw)
}

func (t *SpoolerTransport) doSubmit(ctx context.Context, path string, raw bool) error {
	if t.submit != nil {
		return t.submit(ctx, path, t.PrinterName, raw)
	}
	if runtime.GOOS == "windows" {
		return submitWindows(ctx, path, t.PrinterName)
	}
	return submitCUPS(ctx, path, t.PrinterName, raw)
}

// scheduleCleanup removes a spool file after the grace delay. Removal is
// best-effort; a leftover temp file is logged, not fatal.
func (t *SpoolerTransport) scheduleCleanup(path string) {
	time.AfterFunc(t.CleanupDelay, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if t.Log != nil {
				t.Log.LogWarning("Failed to remove spool file", path)
			}
		}
	})
}

// submitCUPS sends the file with lp, falling back to lpr.
func submitCUPS(ctx context.Context, path, printerName string, raw bool) error {
	lpArgs := []string{"-d", printerName}
	lprArgs := []string{"-P", printerName}
	if raw {
		lpArgs = append(lpArgs, "-o", "raw")
		lprArgs = append(lprArgs, "-o", "raw")
	}
	lpArgs = append(lpArgs, path)
	lprArgs = append(lprArgs, path)

	out, err := exec.CommandContext(ctx, "lp", lpArgs...).CombinedOutput()
	if err == nil {
		return nil
	}
	lpErr := fmt.Errorf("lp failed: %v - %s", err, string(out))

	out, err = exec.CommandContext(ctx, "lpr", lprArgs...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("lpr failed after %v: %v - %s", lpErr, err, string(out))
	}
	return nil
}

// submitWindows sends raw bytes to a Windows printer through the
// winspool RAW datatype, driven from PowerShell.
func submitWindows(ctx context.Context, path, printerName string) error {
	psScript := fmt.Sprintf(`
$bytes = [System.IO.File]::ReadAllBytes('%s')
$code = @"
using System;
using System.Runtime.InteropServices;

public class RawPrinterHelper {
    [StructLayout(LayoutKind.Sequential, CharSet = CharSet.Unicode)]
    public struct DOCINFO {
        [MarshalAs(UnmanagedType.LPWStr)] public string pDocName;
        [MarshalAs(UnmanagedType.LPWStr)] public string pOutputFile;
        [MarshalAs(UnmanagedType.LPWStr)] public string pDataType;
    }

    [DllImport("winspool.drv", CharSet = CharSet.Unicode, SetLastError = true)]
    public static extern bool OpenPrinter(string pPrinterName, out IntPtr phPrinter, IntPtr pDefault);
    [DllImport("winspool.drv", SetLastError = true)]
    public static extern bool ClosePrinter(IntPtr hPrinter);
    [DllImport("winspool.drv", CharSet = CharSet.Unicode, SetLastError = true)]
    public static extern bool StartDocPrinter(IntPtr hPrinter, int Level, ref DOCINFO pDocInfo);
    [DllImport("winspool.drv", SetLastError = true)]
    public static extern bool EndDocPrinter(IntPtr hPrinter);
    [DllImport("winspool.drv", SetLastError = true)]
    public static extern bool StartPagePrinter(IntPtr hPrinter);
    [DllImport("winspool.drv", SetLastError = true)]
    public static extern bool EndPagePrinter(IntPtr hPrinter);
    [DllImport("winspool.drv", SetLastError = true)]
    public static extern bool WritePrinter(IntPtr hPrinter, IntPtr pBytes, int dwCount, out int dwWritten);

    public static bool SendBytesToPrinter(string printerName, byte[] bytes) {
        IntPtr hPrinter;
        DOCINFO di = new DOCINFO();
        di.pDocName = "Ticket";
        di.pDataType = "RAW";
        if (!OpenPrinter(printerName, out hPrinter, IntPtr.Zero)) return false;
        if (!StartDocPrinter(hPrinter, 1, ref di)) { ClosePrinter(hPrinter); return false; }
        if (!StartPagePrinter(hPrinter)) { EndDocPrinter(hPrinter); ClosePrinter(hPrinter); return false; }
        IntPtr p = Marshal.AllocCoTaskMem(bytes.Length);
        Marshal.Copy(bytes, 0, p, bytes.Length);
        int written;
        bool ok = WritePrinter(hPrinter, p, bytes.Length, out written);
        Marshal.FreeCoTaskMem(p);
        EndPagePrinter(hPrinter);
        EndDocPrinter(hPrinter);
        ClosePrinter(hPrinter);
        return ok;
    }
}
"@
Add-Type -TypeDefinition $code -Language CSharp
if (-not [RawPrinterHelper]::SendBytesToPrinter('%s', $bytes)) {
    throw "Failed to send data to printer"
}
`, path, printerName)

	out, err := exec.CommandContext(ctx, "powershell", "-Command", psScript).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to send to printer '%s': %v - %s", printerName, err, string(out))
	}
	return nil
}
