package models

import "time"

// PrinterConfig represents a configured printer in the local directory.
type PrinterConfig struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Type           string    `json:"type"`            // "usb", "network", "spooler", "pdf"
	ConnectionType string    `json:"connection_type"` // "usb", "ethernet", "serial", "windows_share"
	Address        string    `json:"address"`         // device path, IP address or spooler name
	Port           int       `json:"port"`            // for network printers (usually 9100)
	Model          string    `json:"model"`
	PaperWidth     int       `json:"paper_width"` // 58 or 80 (mm)
	IsDefault      bool      `json:"is_default"`
	IsActive       bool      `json:"is_active"`
	AutoCut        bool      `json:"auto_cut"`
	CashDrawer     bool      `json:"cash_drawer"` // has a drawer attached
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DetectedPrinter is a printer found by system enumeration or network
// discovery, before it is saved to the directory.
type DetectedPrinter struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	ConnectionType string `json:"connection_type"`
	Address        string `json:"address"`
	Port           int    `json:"port"`
	IsDefault      bool   `json:"is_default"`
	Status         string `json:"status"` // "online", "offline", "unknown"
	Model          string `json:"model"`
}
