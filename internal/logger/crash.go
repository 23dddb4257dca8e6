package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const (
	// CrashLogDir is the directory for crash logs relative to the data directory.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10
)

// CrashContext stores context for crash logging.
type CrashContext struct {
	mu            sync.RWMutex
	lastOperation string
	command       string
	version       string
	basePath      string
}

var globalContext = &CrashContext{}

// SetBasePath sets the base path for crash logs (the data directory).
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetLastOperation records the workflow operation in flight, e.g. "advance task 7".
func SetLastOperation(op string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.lastOperation = truncateForLog(strings.TrimSpace(op), 500)
}

func truncateForLog(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashLog represents a crash log entry.
type CrashLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	Command       string    `json:"command"`
	PanicValue    string    `json:"panic_value"`
	StackTrace    string    `json:"stack_trace"`
	LastOperation string    `json:"last_operation,omitempty"`
	GoVersion     string    `json:"go_version"`
	OS            string    `json:"os"`
	Arch          string    `json:"arch"`
}

// HandlePanic recovers from a panic, writes a crash log, and exits.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	if r := recover(); r != nil {
		log := createCrashLog(r)
		if err := writeCrashLog(log); err != nil {
			fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
			fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, debug.Stack())
		}

		fmt.Fprintf(os.Stderr, "\ntaskflow encountered an unexpected error.\n")
		fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n\n", getCrashLogPath(log.Timestamp))

		os.Exit(1)
	}
}

func createCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:     time.Now(),
		Version:       globalContext.version,
		Command:       globalContext.command,
		PanicValue:    fmt.Sprintf("%v", panicValue),
		StackTrace:    string(debug.Stack()),
		LastOperation: globalContext.lastOperation,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
}

func writeCrashLog(log CrashLog) error {
	dir := getCrashLogDir()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create crash log dir: %w", err)
	}

	if err := cleanOldCrashLogs(dir); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	if err := os.WriteFile(getCrashLogPath(log.Timestamp), []byte(formatCrashLog(log)), 0644); err != nil {
		return fmt.Errorf("write crash log: %w", err)
	}
	return nil
}

func getCrashLogDir() string {
	globalContext.mu.RLock()
	basePath := globalContext.basePath
	globalContext.mu.RUnlock()

	if basePath == "" {
		basePath = ".taskflow"
	}
	return filepath.Join(basePath, CrashLogDir)
}

func getCrashLogPath(t time.Time) string {
	filename := fmt.Sprintf("crash_%s.log", t.Format("20060102_150405"))
	return filepath.Join(getCrashLogDir(), filename)
}

func formatCrashLog(log CrashLog) string {
	var sb strings.Builder
	rule := strings.Repeat("-", 80) + "\n"

	sb.WriteString(strings.Repeat("=", 80) + "\n")
	sb.WriteString("TASKFLOW CRASH LOG\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(fmt.Sprintf("Timestamp: %s\n", log.Timestamp.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Version:   %s\n", log.Version))
	sb.WriteString(fmt.Sprintf("Command:   %s\n", log.Command))
	sb.WriteString(fmt.Sprintf("Go:        %s\n", log.GoVersion))
	sb.WriteString(fmt.Sprintf("OS/Arch:   %s/%s\n", log.OS, log.Arch))

	sb.WriteString("\n" + rule + "PANIC VALUE\n" + rule)
	sb.WriteString(log.PanicValue + "\n")

	sb.WriteString("\n" + rule + "STACK TRACE\n" + rule)
	sb.WriteString(log.StackTrace)

	if log.LastOperation != "" {
		sb.WriteString("\n" + rule + "LAST OPERATION\n" + rule)
		sb.WriteString(log.LastOperation + "\n")
	}

	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	sb.WriteString("END OF CRASH LOG\n")
	return sb.String()
}

// cleanOldCrashLogs keeps only the MaxCrashLogs most recent crash logs.
func cleanOldCrashLogs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var crashLogs []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			crashLogs = append(crashLogs, e)
		}
	}
	if len(crashLogs) <= MaxCrashLogs {
		return nil
	}

	// os.ReadDir sorts by name, and names embed the timestamp: oldest first.
	toRemove := len(crashLogs) - MaxCrashLogs
	for i := range toRemove {
		if err := os.Remove(filepath.Join(dir, crashLogs[i].Name())); err != nil {
			return err
		}
	}
	return nil
}
