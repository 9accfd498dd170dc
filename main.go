package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"PrintBridge/app/config"
	"PrintBridge/app/database"
	"PrintBridge/app/models"
	"PrintBridge/app/printing"
	"PrintBridge/app/server"
	"PrintBridge/app/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file (for development)
	godotenv.Load(".env")

	dataDir, err := config.DataDir()
	if err != nil {
		println("CRITICAL: could not prepare data directory:", err.Error())
		os.Exit(1)
	}

	loggerService := services.NewLoggerService(dataDir)
	defer loggerService.Close()
	defer loggerService.RecoverPanic()

	loggerService.LogInfo("Application starting", "Print Bridge")
	loggerService.CleanOldLogs(30)

	exists, err := config.ConfigExists()
	if err != nil {
		loggerService.LogFatal("Could not check configuration", err)
	}

	var cfg *config.AppConfig
	if exists {
		cfg, err = config.LoadConfig()
		if err != nil {
			loggerService.LogFatal("Could not load configuration", err)
		}
	} else {
		loggerService.LogInfo("No configuration found, writing defaults")
		cfg, err = config.CreateDefaultConfig()
		if err != nil {
			loggerService.LogFatal("Could not create default configuration", err)
		}
	}

	if err := database.Initialize(filepath.Join(dataDir, "printers.db")); err != nil {
		loggerService.LogFatal("Could not initialize printer directory", err)
	}

	directory := printing.NewDirectory(database.GetDB(), loggerService)

	settings := printing.Settings{
		PaperWidthMM:     cfg.Printer.PaperWidthMM,
		USBDevice:        cfg.Printer.USBDevice,
		NetworkEndpoints: cfg.Printer.NetworkEndpoints,
		SpoolerPrinter:   cfg.Printer.SpoolerName,
		AutoCut:          cfg.Printer.AutoCut,
		CashDrawer:       cfg.Printer.CashDrawer,
		Business:         models.BusinessInfo(cfg.Business),
		USBTimeout:       time.Duration(cfg.Timeouts.USBSeconds) * time.Second,
		NetworkTimeout:   time.Duration(cfg.Timeouts.NetworkSeconds) * time.Second,
		SpoolerTimeout:   time.Duration(cfg.Timeouts.SpoolerSeconds) * time.Second,
		PDFTimeout:       time.Duration(cfg.Timeouts.PDFSeconds) * time.Second,
	}

	// With nothing configured, fall back to the saved default printer and
	// then to the OS default so a fresh install can still print.
	if settings.USBDevice == "" && len(settings.NetworkEndpoints) == 0 && settings.SpoolerPrinter == "" {
		if saved, err := directory.DefaultPrinter(); err == nil && saved != nil {
			loggerService.LogInfo("Using saved default printer", saved.Name)
			settings.SpoolerPrinter = saved.Name
		} else if detected, err := directory.DetectSystem(); err == nil {
			for _, p := range detected {
				if p.IsDefault {
					loggerService.LogInfo("Using system default printer", p.Name)
					settings.SpoolerPrinter = p.Name
					break
				}
			}
		}
	}

	dispatcher, err := printing.NewDispatcher(settings, loggerService)
	if err != nil {
		loggerService.LogFatal("Could not configure print transports", err)
	}

	srv := server.New(cfg.Server.Port, dispatcher, directory, loggerService)

	if cfg.Server.AnnounceMDNS {
		if err := srv.AnnounceMDNS(cfg.Server.InstanceName, cfg.Server.Port); err != nil {
			loggerService.LogWarning("mDNS announce failed", err.Error())
		}
	}

	go func() {
		defer loggerService.RecoverPanic()
		if err := srv.Start(); err != nil {
			loggerService.LogFatal("Server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	loggerService.LogInfo("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		loggerService.LogError("Shutdown error", err)
	}
	loggerService.LogInfo("Shutdown complete")
}
