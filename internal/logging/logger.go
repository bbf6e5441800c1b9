// Package logging provides config-driven categorized file logging for the
// evolution pipeline. Logs are written to .gep/logs/ with one file per
// category. Logging is gated by debug_mode in .gep/config.yaml; when false,
// every call is a silent no-op.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category identifies the pipeline stage or subsystem a log line belongs to.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup and configuration
	CategoryScan     Category = "scan"     // scanner stage
	CategorySignal   Category = "signal"   // signal generation stage
	CategoryIntent   Category = "intent"   // intent classification stage
	CategoryMutate   Category = "mutate"   // mutation stage
	CategoryValidate Category = "validate" // validation stage and sandbox
	CategorySolidify Category = "solidify" // solidification stage
	CategoryLoop     Category = "loop"     // orchestrator
	CategoryStore    Category = "store"    // gene/event persistence
)

// loggingConfig mirrors the logging section of config.Config to avoid a
// circular import.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Entry is a structured JSON log line.
type Entry struct {
	Timestamp int64          `json:"ts"` // Unix milliseconds
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger writes category-scoped log lines to its own file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	cfg       loggingConfig
	cfgMu     sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Call once at
// startup with the workspace path. Without debug mode this is a no-op and
// no files are created.
func Initialize(workspace string) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	cfgMu.Lock()
	logsDir = filepath.Join(workspace, ".gep", "logs")
	cfgMu.Unlock()

	if err := loadConfig(filepath.Join(workspace, ".gep", "config.yaml")); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}
	if !IsDebugMode() {
		return nil
	}

	dir := logsPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	cfgMu.RLock()
	level, json := cfg.Level, cfg.JSONFormat
	cfgMu.RUnlock()

	boot := Get(CategoryBoot)
	boot.Info("=== evolution pipeline logging initialized ===")
	boot.Info("logs directory: %s", dir)
	boot.Info("level: %s json=%v", level, json)
	return nil
}

// logsPath reads the logs directory under the config lock.
func logsPath() string {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return logsDir
}

func loadConfig(path string) error {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config means production mode: no logging.
			cfg = loggingConfig{}
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg = cf.Logging

	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// IsDebugMode reports whether logging is enabled at all.
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled reports whether lines in this category are written.
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()

	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Disabled categories
// get a no-op logger.
func Get(category Category) *Logger {
	dir := logsPath()
	if !IsCategoryEnabled(category) || dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// levelEnabled reports whether lines at this level pass the configured
// floor. Reads under cfgMu so Initialize can run concurrently with logging.
func levelEnabled(level int) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return logLevel <= level
}

func jsonFormat() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.JSONFormat
}

func (l *Logger) write(level, msg string) {
	if jsonFormat() {
		entry := Entry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     level,
			Message:   msg,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", level, msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || !levelEnabled(LevelDebug) {
		return
	}
	l.write("debug", fmt.Sprintf(format, args...))
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || !levelEnabled(LevelInfo) {
		return
	}
	l.write("info", fmt.Sprintf(format, args...))
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || !levelEnabled(LevelWarn) {
		return
	}
	l.write("warn", fmt.Sprintf(format, args...))
}

// Error logs at error level. Always written if the logger exists.
func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.write("error", fmt.Sprintf(format, args...))
}

// CloseAll closes every open log file. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================
// Quick logging without fetching a logger first; no-ops when the category is
// disabled.

// Boot logs to the boot category.
func Boot(format string, args ...any) { Get(CategoryBoot).Info(format, args...) }

// Scan logs to the scan category.
func Scan(format string, args ...any) { Get(CategoryScan).Info(format, args...) }

// ScanDebug logs debug to the scan category.
func ScanDebug(format string, args ...any) { Get(CategoryScan).Debug(format, args...) }

// Signal logs to the signal category.
func Signal(format string, args ...any) { Get(CategorySignal).Info(format, args...) }

// SignalDebug logs debug to the signal category.
func SignalDebug(format string, args ...any) { Get(CategorySignal).Debug(format, args...) }

// Intent logs to the intent category.
func Intent(format string, args ...any) { Get(CategoryIntent).Info(format, args...) }

// IntentDebug logs debug to the intent category.
func IntentDebug(format string, args ...any) { Get(CategoryIntent).Debug(format, args...) }

// Mutate logs to the mutate category.
func Mutate(format string, args ...any) { Get(CategoryMutate).Info(format, args...) }

// MutateDebug logs debug to the mutate category.
func MutateDebug(format string, args ...any) { Get(CategoryMutate).Debug(format, args...) }

// Validate logs to the validate category.
func Validate(format string, args ...any) { Get(CategoryValidate).Info(format, args...) }

// ValidateDebug logs debug to the validate category.
func ValidateDebug(format string, args ...any) { Get(CategoryValidate).Debug(format, args...) }

// ValidateWarn logs warning to the validate category.
func ValidateWarn(format string, args ...any) { Get(CategoryValidate).Warn(format, args...) }

// Solidify logs to the solidify category.
func Solidify(format string, args ...any) { Get(CategorySolidify).Info(format, args...) }

// SolidifyDebug logs debug to the solidify category.
func SolidifyDebug(format string, args ...any) { Get(CategorySolidify).Debug(format, args...) }

// Loop logs to the loop category.
func Loop(format string, args ...any) { Get(CategoryLoop).Info(format, args...) }

// LoopDebug logs debug to the loop category.
func LoopDebug(format string, args ...any) { Get(CategoryLoop).Debug(format, args...) }

// LoopError logs error to the loop category.
func LoopError(format string, args ...any) { Get(CategoryLoop).Error(format, args...) }

// Store logs to the store category.
func Store(format string, args ...any) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...any) { Get(CategoryStore).Debug(format, args...) }

// StoreError logs error to the store category.
func StoreError(format string, args ...any) { Get(CategoryStore).Error(format, args...) }
