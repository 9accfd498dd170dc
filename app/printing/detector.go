package printing

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"PrintBridge/app/models"
)

// probeInstalledPrinters lists printers known to the OS print system.
func probeInstalledPrinters() ([]models.DetectedPrinter, error) {
	switch runtime.GOOS {
	case "windows":
		return probeWindowsPrinters()
	case "linux", "darwin":
		return probeCUPSPrinters()
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// windowsPrinter mirrors the fields Get-Printer emits as JSON.
type windowsPrinter struct {
	Name     string `json:"Name"`
	PortName string `json:"PortName"`
	Default  bool   `json:"Default"`
	Driver   string `json:"DriverName"`
}

func probeWindowsPrinters() ([]models.DetectedPrinter, error) {
	cmd := exec.Command("powershell", "-Command",
		`Get-Printer | Select-Object Name, DriverName, PortName, Default | ConvertTo-Json`)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate printers: %w", err)
	}
	return parseWindowsPrinterJSON(output)
}

func parseWindowsPrinterJSON(output []byte) ([]models.DetectedPrinter, error) {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil, nil
	}

	// ConvertTo-Json emits a bare object for a single printer and an
	// array otherwise.
	var raw []windowsPrinter
	if strings.HasPrefix(trimmed, "{") {
		var one windowsPrinter
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return nil, fmt.Errorf("failed to parse printer list: %w", err)
		}
		raw = append(raw, one)
	} else if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse printer list: %w", err)
	}

	var printers []models.DetectedPrinter
	for _, p := range raw {
		if p.Name == "" {
			continue
		}
		detected := models.DetectedPrinter{
			Name:      p.Name,
			Address:   p.PortName,
			Model:     p.Driver,
			IsDefault: p.Default,
			Status:    "unknown",
		}
		classifyPort(&detected)
		printers = append(printers, detected)
	}
	return printers, nil
}

// classifyPort infers the transport from a Windows port name.
func classifyPort(p *models.DetectedPrinter) {
	port := strings.ToUpper(p.Address)
	switch {
	case strings.HasPrefix(port, "COM") || strings.HasPrefix(port, "LPT"):
		p.Type = "usb"
		p.ConnectionType = "serial"
	case strings.HasPrefix(p.Address, `\\`):
		p.Type = "spooler"
		p.ConnectionType = "windows_share"
	case strings.Contains(port, "IP_") || strings.Count(p.Address, ".") == 3:
		p.Type = "network"
		p.ConnectionType = "ethernet"
		p.Port = DefaultNetworkPort
		if idx := strings.Index(p.Address, "_"); idx >= 0 {
			p.Address = p.Address[idx+1:]
		}
	default:
		p.Type = "usb"
		p.ConnectionType = "usb"
	}
}

// probeCUPSPrinters parses lpstat output on Linux and macOS.
func probeCUPSPrinters() ([]models.DetectedPrinter, error) {
	cmd := exec.Command("lpstat", "-p", "-d")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate printers (is CUPS installed?): %w", err)
	}
	return parseCUPSOutput(string(output)), nil
}

func parseCUPSOutput(output string) []models.DetectedPrinter {
	var printers []models.DetectedPrinter
	var defaultName string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "system default destination:") {
			defaultName = strings.TrimSpace(strings.TrimPrefix(line, "system default destination:"))
			continue
		}

		// "printer NAME is idle.  enabled since ..."
		if !strings.HasPrefix(line, "printer ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		printer := models.DetectedPrinter{
			Name:           fields[1],
			Type:           "spooler",
			ConnectionType: "usb",
			Address:        fields[1],
			Status:         "unknown",
		}
		if strings.Contains(line, "idle") {
			printer.Status = "online"
		} else if strings.Contains(line, "disabled") {
			printer.Status = "offline"
		}
		printer.IsDefault = printer.Name == defaultName
		printers = append(printers, printer)
	}

	return printers
}
