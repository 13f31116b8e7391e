// Package debug is the server's own logging, as distinct from logging to
// the editor (publishDiagnostics is the editor channel). Everything here
// goes to a file, never to stdout: stdout carries the live JSON-RPC
// stream to the client, and writing debug text there would corrupt the
// protocol framing.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build flag, overridable via
// -ldflags "-X github.com/standardbeagle/solidity-lsp/internal/debug.EnableDebug=true".
var EnableDebug = "false"

// StdioMode marks that this process's stdio is occupied by the LSP
// JSON-RPC channel. When true, debug output is suppressed unless it is
// routed to a log file — the file is the only safe side channel left.
var StdioMode = false

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetStdioMode enables/disables stdio-occupied mode.
func SetStdioMode(enabled bool) {
	StdioMode = enabled
}

// SetDebugOutput sets a custom writer for debug output. Pass nil to disable.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile opens a fresh timestamped log file under
// os.TempDir()/soliditylsp-debug-logs and routes debug output to it.
// Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "soliditylsp-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// InitDebugLogAt routes debug output to the file at path instead of the
// default temp location.
func InitDebugLogAt(path string) error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled reports whether debug output should be produced. While
// stdio carries the JSON-RPC channel only a file-backed writer is safe;
// any other writer stays suppressed.
func IsDebugEnabled() bool {
	if StdioMode && !fileBacked() {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		return true
	}
	return false
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

func fileBacked() bool {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugFile != nil
}

// Printf writes a debug line when enabled.
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[DEBUG] "+format+"\n", args...)
	}
}

// Log writes a component-tagged debug line when enabled.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
	}
}

// LogCache logs an internal/cache event.
func LogCache(format string, args ...interface{}) { Log("CACHE", format, args...) }

// LogCompiler logs a compiler-driver invocation or failure.
func LogCompiler(format string, args ...interface{}) { Log("COMPILER", format, args...) }

// LogOrchestrator logs an orchestrator-level event (request handling, rename split).
func LogOrchestrator(format string, args ...interface{}) { Log("ORCH", format, args...) }

// LogLSP logs transport-level events (method dispatch, malformed requests).
func LogLSP(format string, args ...interface{}) { Log("LSP", format, args...) }

// CatastrophicError logs a swallowed failure: the request still returns
// an empty result, but the failure is not silent in the log.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if StdioMode && !fileBacked() {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[ERROR] %s\n", msg)
	}
}
