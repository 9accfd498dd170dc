package printing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"PrintBridge/app/models"

	"github.com/grandcat/zeroconf"
	"gorm.io/gorm"
)

// mDNS service type announced by raw-socket network printers.
const rawPrintService = "_pdl-datastream._tcp"

// Directory is the printer directory: configured printers persisted in
// the local database, plus two opt-in discovery strategies (system
// enumeration and mDNS browse) that feed candidates into it. The
// dispatcher consumes it, it does not own it.
type Directory struct {
	db  *gorm.DB
	log Logger
}

// NewDirectory creates a directory over the local database.
func NewDirectory(db *gorm.DB, log Logger) *Directory {
	return &Directory{db: db, log: log}
}

// ListPrinters returns the configured printers.
func (d *Directory) ListPrinters() ([]models.PrinterConfig, error) {
	var printers []models.PrinterConfig
	if err := d.db.Order("is_default DESC, name ASC").Find(&printers).Error; err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	return printers, nil
}

// DefaultPrinter returns the active default printer, if configured.
func (d *Directory) DefaultPrinter() (*models.PrinterConfig, error) {
	var printer models.PrinterConfig
	err := d.db.Where("is_default = ? AND is_active = ?", true, true).First(&printer).Error
	if err != nil {
		return nil, fmt.Errorf("no default printer configured: %w", err)
	}
	return &printer, nil
}

// Save stores or updates a printer configuration.
func (d *Directory) Save(printer *models.PrinterConfig) error {
	if printer.Name == "" {
		return fmt.Errorf("printer name is required")
	}
	if err := d.db.Save(printer).Error; err != nil {
		return fmt.Errorf("failed to save printer: %w", err)
	}
	return nil
}

// DetectSystem enumerates printers installed on this machine through
// the OS print system.
func (d *Directory) DetectSystem() ([]models.DetectedPrinter, error) {
	return probeInstalledPrinters()
}

// BrowseNetwork discovers raw-socket printers announcing themselves over
// mDNS. This replaces guessing LAN addresses: discovered endpoints are
// candidates the operator can persist, not automatic targets.
func (d *Directory) BrowseNetwork(ctx context.Context, wait time.Duration) ([]models.DetectedPrinter, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	browseCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := resolver.Browse(browseCtx, rawPrintService, "local.", entries); err != nil {
		return nil, fmt.Errorf("failed to browse for printers: %w", err)
	}

	var found []models.DetectedPrinter
	for entry := range entries {
		if len(entry.AddrIPv4) == 0 {
			continue
		}
		port := entry.Port
		if port == 0 {
			port = DefaultNetworkPort
		}
		found = append(found, models.DetectedPrinter{
			Name:           entry.Instance,
			Type:           "network",
			ConnectionType: "ethernet",
			Address:        entry.AddrIPv4[0].String(),
			Port:           port,
			Status:         "online",
		})
	}

	if d.log != nil {
		d.log.LogInfo("Network printer browse finished", "found: "+strconv.Itoa(len(found)))
	}
	return found, nil
}
