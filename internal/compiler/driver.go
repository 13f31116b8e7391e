// Package compiler is the compiler driver abstraction the orchestrator
// calls into. It never parses or validates the driver's command line —
// it only shells out and hands back raw bytes/diagnostics.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	coreerrors "github.com/standardbeagle/solidity-lsp/internal/errors"
)

// Diagnostic mirrors the shape the compiler driver emits for a single
// lint or build finding; it is forwarded to the editor largely verbatim.
type Diagnostic struct {
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Source   string `json:"source,omitempty"`
}

// Driver is the three async operations the orchestrator needs from the
// external build tool.
type Driver interface {
	LintDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error)
	BuildDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error)
	AST(ctx context.Context, absolutePath string) (json.RawMessage, error)
}

// ProcessDriver invokes an external compiler binary (by default `forge`,
// Foundry's build tool) as a child process per call: one Command per
// logical operation, stdout captured, non-zero exit treated as a
// CompilerFailure rather than panicking the caller.
type ProcessDriver struct {
	// Command is the compiler driver binary, e.g. "forge".
	Command string
	// ExtraArgs are configured arguments appended to every invocation.
	ExtraArgs []string
	// WorkDir is the directory the driver is invoked from (the project root).
	WorkDir string
}

// NewProcessDriver returns a driver that shells out to command from
// workDir, appending extraArgs to every invocation.
func NewProcessDriver(command string, extraArgs []string, workDir string) *ProcessDriver {
	return &ProcessDriver{Command: command, ExtraArgs: extraArgs, WorkDir: workDir}
}

func (d *ProcessDriver) run(ctx context.Context, args ...string) ([]byte, error) {
	full := make([]string, 0, len(args)+len(d.ExtraArgs))
	full = append(full, args...)
	full = append(full, d.ExtraArgs...)

	cmd := exec.CommandContext(ctx, d.Command, full...)
	cmd.Dir = d.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, coreerrors.CompilerFailure("ProcessDriver.run", err).WithPath(d.Command)
	}
	return stdout.Bytes(), nil
}

// LintDiagnostics runs the driver's lint subcommand for uri.
func (d *ProcessDriver) LintDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error) {
	out, err := d.run(ctx, "lint", "--json", uri)
	if err != nil {
		return nil, err
	}
	return parseDiagnostics(out)
}

// BuildDiagnostics runs the driver's build subcommand for uri.
func (d *ProcessDriver) BuildDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error) {
	out, err := d.run(ctx, "build", "--json", uri)
	if err != nil {
		return nil, err
	}
	return parseDiagnostics(out)
}

// AST requests the compiler's JSON AST for the compilation unit
// containing absolutePath.
func (d *ProcessDriver) AST(ctx context.Context, absolutePath string) (json.RawMessage, error) {
	out, err := d.run(ctx, "build", "--ast", "--silent", "--build-info")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func parseDiagnostics(out []byte) ([]Diagnostic, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var diags []Diagnostic
	if err := json.Unmarshal(out, &diags); err != nil {
		return nil, coreerrors.MalformedInput("parseDiagnostics", err)
	}
	return diags, nil
}
