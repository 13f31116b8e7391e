// Package orchestrator owns the AstCache, the compiler driver handle,
// and the per-request-category logic that wires span/ingest/refgraph/
// rename to the outside world.
package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"sort"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
	"github.com/standardbeagle/solidity-lsp/internal/cache"
	"github.com/standardbeagle/solidity-lsp/internal/compiler"
	"github.com/standardbeagle/solidity-lsp/internal/config"
	"github.com/standardbeagle/solidity-lsp/internal/debug"
	coreerrors "github.com/standardbeagle/solidity-lsp/internal/errors"
	"github.com/standardbeagle/solidity-lsp/internal/refgraph"
	"github.com/standardbeagle/solidity-lsp/internal/rename"
	"github.com/standardbeagle/solidity-lsp/internal/span"
)

// Diagnostic is the orchestrator-facing diagnostic shape, a thin re-export
// of the compiler package's type so callers don't need to import both.
type Diagnostic = compiler.Diagnostic

// ClientServerEditPlan is the split rename result: the client half is
// handed back in the LSP response for the editor to apply to its
// in-memory buffer; the server half has already been written to disk by
// the time this is returned.
type ClientServerEditPlan struct {
	// ClientEdits are the edits to the currently active document,
	// returned to the editor.
	ClientEdits []rename.TextEdit
	// ClientURI is the document ClientEdits applies to (empty if no
	// edits touch the active document).
	ClientURI string
	// ServerEditedURIs lists every other document the orchestrator
	// already wrote to disk.
	ServerEditedURIs []string
}

// Orchestrator coordinates the cache, the compiler driver, and the
// per-request query logic.
type Orchestrator struct {
	cache  *cache.AstCache
	driver compiler.Driver
	cfg    *config.Config
}

// New builds an Orchestrator around an AstCache and a compiler Driver. cfg
// may be nil (no exclude filtering is applied to PathIndex.requestPath
// candidates in that case); a real server passes the Config it loaded at
// startup so ExcludeGlobs (vendored libraries, build output) are honored.
func New(driver compiler.Driver, cfg *config.Config) *Orchestrator {
	return &Orchestrator{cache: cache.New(), driver: driver, cfg: cfg}
}

// isExcluded adapts cfg.IsExcluded to refgraph.ExcludeFunc, treating a nil
// cfg as "nothing is excluded".
func (o *Orchestrator) isExcluded(path string) bool {
	if o.cfg == nil {
		return false
	}
	return o.cfg.IsExcluded(path)
}

// DidOpen runs the three compiler queries concurrently, caches the AST on
// success, and returns the concatenation of lint and build diagnostics.
// Each query's failure is independent: one failing never masks the other.
func (o *Orchestrator) DidOpen(ctx context.Context, uri, text string) []Diagnostic {
	return o.refreshAndPublish(ctx, uri)
}

// DidSave behaves like DidOpen. If the editor didn't supply text, the
// compiler driver reads the file from disk itself (the driver takes a
// path/URI, not bytes), so there is nothing extra to do here either way.
func (o *Orchestrator) DidSave(ctx context.Context, uri string, text *string) []Diagnostic {
	return o.refreshAndPublish(ctx, uri)
}

func (o *Orchestrator) refreshAndPublish(ctx context.Context, uri string) []Diagnostic {
	type result struct {
		diags []Diagnostic
		ast   []byte
	}

	lintCh := make(chan []Diagnostic, 1)
	buildCh := make(chan []Diagnostic, 1)
	astCh := make(chan result, 1)

	go func() {
		diags, err := o.driver.LintDiagnostics(ctx, uri)
		if err != nil {
			debug.LogOrchestrator("lint failed for %s: %v", uri, err)
			lintCh <- nil
			return
		}
		lintCh <- diags
	}()
	go func() {
		diags, err := o.driver.BuildDiagnostics(ctx, uri)
		if err != nil {
			debug.LogOrchestrator("build failed for %s: %v", uri, err)
			buildCh <- nil
			return
		}
		buildCh <- diags
	}()
	go func() {
		path, err := refgraph.URIToPath(uri)
		if err != nil {
			astCh <- result{}
			return
		}
		ast, err := o.driver.AST(ctx, path)
		if err != nil {
			debug.LogOrchestrator("ast fetch failed for %s: %v", uri, err)
			astCh <- result{}
			return
		}
		astCh <- result{ast: ast}
	}()

	lint := <-lintCh
	build := <-buildCh
	astResult := <-astCh

	if astResult.ast != nil {
		o.cache.Put(uri, astResult.ast)
	}

	diagnostics := make([]Diagnostic, 0, len(lint)+len(build))
	diagnostics = append(diagnostics, lint...)
	diagnostics = append(diagnostics, build...)
	return diagnostics
}

// DidChange removes the cache entry for uri. The AST is not re-requested
// eagerly; the next position query repopulates it lazily.
func (o *Orchestrator) DidChange(uri string) {
	o.cache.Invalidate(uri)
}

// DidClose is a no-op beyond logging.
func (o *Orchestrator) DidClose(uri string) {
	debug.LogOrchestrator("didClose %s", uri)
}

// DidChangeConfiguration, DidChangeWorkspaceFolders, and
// DidChangeWatchedFiles are no-ops beyond logging.
func (o *Orchestrator) DidChangeConfiguration() { debug.LogOrchestrator("didChangeConfiguration") }
func (o *Orchestrator) DidChangeWorkspaceFolders() {
	debug.LogOrchestrator("didChangeWorkspaceFolders")
}
func (o *Orchestrator) DidChangeWatchedFiles() { debug.LogOrchestrator("didChangeWatchedFiles") }

// astFor checks the cache first; on hit, the caller gets a reference to
// already-cached bytes with no lock held across any compiler call (the
// RWMutex inside AstCache is only ever held for the duration of the map
// lookup itself, never across this function's own body). On miss, call
// the compiler driver and populate the cache — concurrent misses on the
// same document may each invoke the driver; the duplicate work is
// harmless since the driver is idempotent.
func (o *Orchestrator) astFor(ctx context.Context, uri string) ([]byte, error) {
	if ast, ok := o.cache.Get(uri); ok {
		return ast, nil
	}

	path, err := refgraph.URIToPath(uri)
	if err != nil {
		return nil, coreerrors.MalformedInput("astFor", err).WithPath(uri)
	}
	ast, err := o.driver.AST(ctx, path)
	if err != nil {
		return nil, err
	}
	o.cache.Put(uri, ast)
	return ast, nil
}

func readSource(uri string) ([]byte, error) {
	path, err := refgraph.URIToPath(uri)
	if err != nil {
		return nil, coreerrors.MalformedInput("readSource", err).WithPath(uri)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.IoFailure("readSource", err).WithPath(path)
	}
	return content, nil
}

// Definition resolves textDocument/definition: one hop via
// referencedDeclaration, same as Declaration (editors distinguish the
// request kind; the resolution rule is identical).
func (o *Orchestrator) Definition(ctx context.Context, uri string, pos astmodel.Position) (astmodel.Location, bool) {
	return o.gotoDeclaration(ctx, uri, pos)
}

// Declaration resolves textDocument/declaration.
func (o *Orchestrator) Declaration(ctx context.Context, uri string, pos astmodel.Position) (astmodel.Location, bool) {
	return o.gotoDeclaration(ctx, uri, pos)
}

func (o *Orchestrator) gotoDeclaration(ctx context.Context, uri string, pos astmodel.Position) (astmodel.Location, bool) {
	source, err := readSource(uri)
	if err != nil {
		debug.LogOrchestrator("declaration: %v", err)
		return astmodel.Location{}, false
	}
	ast, err := o.astFor(ctx, uri)
	if err != nil {
		debug.LogOrchestrator("declaration: %v", err)
		return astmodel.Location{}, false
	}
	return refgraph.GotoDeclaration(ast, uri, pos, source, o.isExcluded)
}

// References resolves textDocument/references.
func (o *Orchestrator) References(ctx context.Context, uri string, pos astmodel.Position) []astmodel.Location {
	source, err := readSource(uri)
	if err != nil {
		debug.LogOrchestrator("references: %v", err)
		return nil
	}
	ast, err := o.astFor(ctx, uri)
	if err != nil {
		debug.LogOrchestrator("references: %v", err)
		return nil
	}
	return refgraph.GotoReferences(ast, uri, pos, source, o.isExcluded)
}

// Rename resolves textDocument/rename: builds the full EditPlan via
// internal/rename, then splits it into the client half (the active
// document, returned for the editor to apply) and the server half (every
// other file, written to disk here). If any server-side write fails, the
// whole rename is aborted and (nil, nil) is returned — the client must
// not apply a partial result.
func (o *Orchestrator) Rename(ctx context.Context, uri string, pos astmodel.Position, newName string) (*ClientServerEditPlan, error) {
	source, err := readSource(uri)
	if err != nil {
		debug.LogOrchestrator("rename: %v", err)
		return nil, nil
	}
	ast, err := o.astFor(ctx, uri)
	if err != nil {
		debug.LogOrchestrator("rename: %v", err)
		return nil, nil
	}

	plan, err := rename.RenameSymbol(ast, uri, pos, source, newName, o.isExcluded)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	result := &ClientServerEditPlan{}
	serverChanges := make(map[string][]rename.TextEdit)

	for editURI, edits := range plan.Changes {
		if editURI == uri {
			result.ClientEdits = edits
			result.ClientURI = editURI
			continue
		}
		serverChanges[editURI] = edits
	}

	written, aborted := applyServerEdits(serverChanges)
	if aborted {
		return nil, nil
	}

	result.ServerEditedURIs = written
	return result, nil
}

// applyServerEdits writes every server-half change to disk. A file that
// is missing or otherwise unreadable is skipped — it does not abort the
// rename — while a write failure (the file is readable but e.g. not
// writable) aborts the whole plan, reported via the second return value.
func applyServerEdits(changes map[string][]rename.TextEdit) (written []string, aborted bool) {
	written = make([]string, 0, len(changes))
	for editURI, edits := range changes {
		err := applyEditsToDisk(editURI, edits)
		if err == nil {
			written = append(written, editURI)
			continue
		}

		var coreErr *coreerrors.CoreError
		if stderrors.As(err, &coreErr) && coreErr.Recoverable {
			debug.LogOrchestrator("rename: skipping unreadable file %s: %v", editURI, err)
			continue
		}

		debug.LogOrchestrator("rename: aborting, server write failed for %s: %v", editURI, err)
		return nil, true
	}
	return written, false
}

// applyEditsToDisk reads the file, sorts edits by start position
// descending (so earlier byte offsets in the file are unaffected by
// edits applied after them), splices each edit's [startByte, endByte)
// range with its newText, and writes back.
func applyEditsToDisk(uri string, edits []rename.TextEdit) error {
	path, err := refgraph.URIToPath(uri)
	if err != nil {
		return coreerrors.MalformedInput("applyEditsToDisk", err).WithPath(uri)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return coreerrors.IoFailure("applyEditsToDisk: read", err).WithPath(path)
	}

	sorted := make([]rename.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Start, sorted[j].Start
		if a.Line != b.Line {
			return a.Line > b.Line
		}
		return a.Character > b.Character
	})

	for _, e := range sorted {
		startByte, err := span.ByteOffsetOf(content, e.Start)
		if err != nil {
			return coreerrors.OutOfRange("applyEditsToDisk: start", err).WithPath(path)
		}
		endByte, err := span.ByteOffsetOf(content, e.End)
		if err != nil {
			return coreerrors.OutOfRange("applyEditsToDisk: end", err).WithPath(path)
		}

		spliced := make([]byte, 0, len(content)-(endByte-startByte)+len(e.NewText))
		spliced = append(spliced, content[:startByte]...)
		spliced = append(spliced, e.NewText...)
		spliced = append(spliced, content[endByte:]...)
		content = spliced
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return coreerrors.IoFailure("applyEditsToDisk: write", err).WithPath(path).WithRecoverable(false)
	}
	return nil
}
