package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds all service configuration. Transports and their
// connection parameters are named explicitly; discovery is a separate,
// opt-in directory operation.
type AppConfig struct {
	Server   ServerConfig  `json:"server"`
	Printer  PrinterConfig `json:"printer"`
	Timeouts TimeoutConfig `json:"timeouts"`
	Business BusinessInfo  `json:"business"`
}

// ServerConfig holds the HTTP/WebSocket surface settings.
type ServerConfig struct {
	Port         int    `json:"port"`
	AnnounceMDNS bool   `json:"announce_mdns"`
	InstanceName string `json:"instance_name"`
}

// PrinterConfig names the print targets in fallback priority order.
type PrinterConfig struct {
	PaperWidthMM     int      `json:"paper_width_mm"` // 58 or 80
	USBDevice        string   `json:"usb_device"`     // e.g. /dev/usb/lp0
	NetworkEndpoints []string `json:"network_endpoints"`
	SpoolerName      string   `json:"spooler_name"`
	AutoCut          bool     `json:"auto_cut"`
	CashDrawer       bool     `json:"cash_drawer"`
}

// TimeoutConfig bounds each transport attempt, in seconds.
type TimeoutConfig struct {
	USBSeconds     int `json:"usb_seconds"`
	NetworkSeconds int `json:"network_seconds"`
	SpoolerSeconds int `json:"spooler_seconds"`
	PDFSeconds     int `json:"pdf_seconds"`
}

// BusinessInfo is the default ticket header, used when the payload does
// not carry its own.
type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// DataDir returns the per-user application data directory, creating it
// if needed.
func DataDir() (string, error) {
	base := os.Getenv("APPDATA")
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		base = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(base, "PrintBridge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create data directory: %w", err)
	}
	return dir, nil
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads the config file and applies environment overrides.
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// SaveConfig writes the config file.
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}

// ConfigExists checks if the config file exists.
func ConfigExists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDefaultConfig writes and returns a default configuration.
func CreateDefaultConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Server: ServerConfig{
			Port:         3000,
			AnnounceMDNS: true,
			InstanceName: "PrintBridge",
		},
		Printer: PrinterConfig{
			PaperWidthMM: 80,
			AutoCut:      true,
		},
		Timeouts: TimeoutConfig{
			USBSeconds:     4,
			NetworkSeconds: 6,
			SpoolerSeconds: 20,
			PDFSeconds:     30,
		},
		Business: BusinessInfo{
			Name: "Mi Negocio",
		},
	}

	cfg.applyEnvOverrides()
	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets .env / environment variables override the file,
// for deployments managed by a process supervisor.
func (cfg *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PRINTER_USB_DEVICE"); v != "" {
		cfg.Printer.USBDevice = v
	}
	if v := os.Getenv("PRINTER_ENDPOINTS"); v != "" {
		var endpoints []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				endpoints = append(endpoints, e)
			}
		}
		cfg.Printer.NetworkEndpoints = endpoints
	}
	if v := os.Getenv("PRINTER_SPOOLER_NAME"); v != "" {
		cfg.Printer.SpoolerName = v
	}
	if v := os.Getenv("PRINTER_PAPER_WIDTH"); v != "" {
		if width, err := strconv.Atoi(v); err == nil {
			cfg.Printer.PaperWidthMM = width
		}
	}
}
