package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	// LogLevelDebug includes detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo includes standard operational information.
	LogLevelInfo
	// LogLevelWarn includes warnings about potential issues.
	LogLevelWarn
	// LogLevelError includes only error messages.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "debug", "DEBUG":
		return LogLevelDebug, nil
	case "info", "INFO", "":
		return LogLevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return LogLevelWarn, nil
	case "error", "ERROR":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// rotateKeep is how many rotated log files are retained.
const rotateKeep = 5

// Logger provides leveled logging for the daemon, with optional JSON output
// and size-based rotation when writing to a file.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	level    LogLevel
	jsonMode bool

	filePath    string
	maxSize     int64 // bytes, 0 disables rotation
	currentSize int64
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Level    LogLevel
	FilePath string
	JSONMode bool
	MaxSize  int64
}

// NewLogger creates a new Logger. An empty FilePath logs to stderr.
func NewLogger(cfg LoggerConfig) (*Logger, error) {
	l := &Logger{
		writer:   os.Stderr,
		level:    cfg.Level,
		jsonMode: cfg.JSONMode,
		filePath: cfg.FilePath,
		maxSize:  cfg.MaxSize,
	}

	if cfg.FilePath == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if info, err := f.Stat(); err == nil {
		l.currentSize = info.Size()
	}
	l.writer = f

	return l, nil
}

// Close closes the logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.writer.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		return f.Close()
	}
	return nil
}

// logEntry represents a JSON log entry.
type logEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Device  string `json:"device,omitempty"`
}

func (l *Logger) log(level LogLevel, msg, device string) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(time.RFC3339)

	var line string
	if l.jsonMode {
		b, err := json.Marshal(logEntry{
			Time:    timestamp,
			Level:   level.String(),
			Message: msg,
			Device:  device,
		})
		if err != nil {
			line = fmt.Sprintf("%s [%s] %s\n", timestamp, level, msg)
		} else {
			line = string(b) + "\n"
		}
	} else if device != "" {
		line = fmt.Sprintf("%s [%s] %s: %s\n", timestamp, level, device, msg)
	} else {
		line = fmt.Sprintf("%s [%s] %s\n", timestamp, level, msg)
	}

	if l.maxSize > 0 && l.filePath != "" {
		l.currentSize += int64(len(line))
		if l.currentSize > l.maxSize {
			l.rotate()
		}
	}

	// Log write failures have nowhere to go
	_, _ = l.writer.Write([]byte(line))
}

func (l *Logger) rotate() {
	if f, ok := l.writer.(*os.File); ok {
		_ = f.Close()
	}

	rotatedPath := l.filePath + "." + time.Now().Format("20060102-150405")
	_ = os.Rename(l.filePath, rotatedPath)

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.writer = os.Stderr
		return
	}

	l.writer = f
	l.currentSize = 0

	l.cleanupOldLogs()
}

// cleanupOldLogs removes rotated files beyond the retention count.
func (l *Logger) cleanupOldLogs() {
	matches, err := filepath.Glob(l.filePath + ".*")
	if err != nil || len(matches) <= rotateKeep {
		return
	}

	sort.Strings(matches)
	for _, old := range matches[:len(matches)-rotateKeep] {
		_ = os.Remove(old)
	}
}

// Debug logs a debug message, optionally tagged with a device path.
func (l *Logger) Debug(msg string, device ...string) {
	l.log(LogLevelDebug, msg, first(device))
}

// Info logs an info message, optionally tagged with a device path.
func (l *Logger) Info(msg string, device ...string) {
	l.log(LogLevelInfo, msg, first(device))
}

// Warn logs a warning message, optionally tagged with a device path.
func (l *Logger) Warn(msg string, device ...string) {
	l.log(LogLevelWarn, msg, first(device))
}

// Error logs an error message, optionally tagged with a device path.
func (l *Logger) Error(msg string, device ...string) {
	l.log(LogLevelError, msg, first(device))
}

func first(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() LogLevel {
	return l.level
}
