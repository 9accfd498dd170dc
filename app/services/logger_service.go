package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// LoggerService handles application logging: one file per day under the
// data directory, mirrored to stdout.
type LoggerService struct {
	logDir     string
	logFile    *os.File
	logger     *log.Logger
	currentDay string
}

// NewLoggerService creates a logger writing under dataDir/logs.
func NewLoggerService(dataDir string) *LoggerService {
	service := &LoggerService{logDir: filepath.Join(dataDir, "logs")}
	service.initialize()
	return service
}

func (s *LoggerService) initialize() {
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
		s.logDir = "logs"
		os.MkdirAll(s.logDir, 0755)
	}

	if err := s.rotateLogFile(); err != nil {
		log.Printf("Warning: Could not create log file: %v. Logging to stdout only.", err)
		s.logger = log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
		return
	}

	multiWriter := io.MultiWriter(os.Stdout, s.logFile)
	s.logger = log.New(multiWriter, "", log.LstdFlags|log.Lshortfile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// rotateLogFile creates a new log file for the current day.
func (s *LoggerService) rotateLogFile() error {
	today := time.Now().Format("2006-01-02")
	if s.currentDay == today && s.logFile != nil {
		return nil
	}

	if s.logFile != nil {
		s.logFile.Close()
	}

	logFilePath := filepath.Join(s.logDir, fmt.Sprintf("%s.log", today))
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	s.logFile = file
	s.currentDay = today
	return nil
}

// LogInfo logs an informational message.
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.checkAndRotate()
	s.logger.Printf("[INFO] %s%s", message, detailSuffix(details))
}

// LogWarning logs a warning message.
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.checkAndRotate()
	s.logger.Printf("[WARNING] %s%s", message, detailSuffix(details))
}

// LogError logs an error message.
func (s *LoggerService) LogError(message string, err error, details ...string) {
	s.checkAndRotate()
	errorStr := ""
	if err != nil {
		errorStr = fmt.Sprintf(" | Error: %v", err)
	}
	s.logger.Printf("[ERROR] %s%s%s", message, errorStr, detailSuffix(details))
}

// LogFatal logs a fatal error and exits.
func (s *LoggerService) LogFatal(message string, err error) {
	s.checkAndRotate()
	errorStr := ""
	if err != nil {
		errorStr = fmt.Sprintf(" | Error: %v", err)
	}
	s.logger.Printf("[FATAL] %s%s", message, errorStr)
	s.logger.Printf("[FATAL] Stack trace:\n%s", string(debug.Stack()))
	if s.logFile != nil {
		s.logFile.Close()
	}
	os.Exit(1)
}

// RecoverPanic logs a recovered panic with its stack trace; use in
// goroutine defers.
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		s.checkAndRotate()
		s.logger.Printf("[PANIC] Recovered from panic: %v", r)
		s.logger.Printf("[PANIC] Stack trace:\n%s", string(debug.Stack()))
	}
}

// CleanOldLogs removes log files older than the given number of days.
func (s *LoggerService) CleanOldLogs(daysToKeep int) error {
	files, err := os.ReadDir(s.logDir)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".log" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.logDir, file.Name())
			s.LogInfo("Deleting old log file", path)
			os.Remove(path)
		}
	}
	return nil
}

// Close closes the log file.
func (s *LoggerService) Close() {
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// checkAndRotate switches to a new file when the day changes.
func (s *LoggerService) checkAndRotate() {
	today := time.Now().Format("2006-01-02")
	if s.currentDay != today {
		if err := s.rotateLogFile(); err == nil && s.logFile != nil {
			multiWriter := io.MultiWriter(os.Stdout, s.logFile)
			s.logger.SetOutput(multiWriter)
			log.SetOutput(multiWriter)
		}
	}
}

func detailSuffix(details []string) string {
	if len(details) == 0 {
		return ""
	}
	return " | " + details[0]
}
