// Package lspserver is the transport/dispatch glue: a jsonrpc2.Handler
// that decodes go.lsp.dev/protocol params, drives internal/orchestrator,
// and re-encodes the result. Kept intentionally thin — no request logic
// lives here beyond marshaling between wire types and astmodel types.
package lspserver

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
	"github.com/standardbeagle/solidity-lsp/internal/debug"
	"github.com/standardbeagle/solidity-lsp/internal/orchestrator"
	"github.com/standardbeagle/solidity-lsp/internal/rename"
	"github.com/standardbeagle/solidity-lsp/internal/version"
)

// Server dispatches LSP JSON-RPC requests to an Orchestrator. It
// implements jsonrpc2.Handler.
type Server struct {
	orch *orchestrator.Orchestrator
}

// New builds a Server around orch.
func New(orch *orchestrator.Orchestrator) *Server {
	return &Server{orch: orch}
}

// Handle implements jsonrpc2.Handler, dispatching by method name. Errors
// from this layer are protocol errors (malformed requests); failures
// inside the core itself never reach here as errors — they surface as
// empty results.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	result, err := s.dispatch(ctx, conn, req)
	if !req.Notif {
		if err != nil {
			respErr := &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
			if replyErr := conn.ReplyWithError(ctx, req.ID, respErr); replyErr != nil {
				debug.LogLSP("reply-with-error failed for %s: %v", req.Method, replyErr)
			}
			return
		}
		if replyErr := conn.Reply(ctx, req.ID, result); replyErr != nil {
			debug.LogLSP("reply failed for %s: %v", req.Method, replyErr)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	debug.LogLSP("dispatch %s", req.Method)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil, nil
	case "shutdown":
		return nil, nil
	case "exit":
		return nil, nil

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		uri := string(params.TextDocument.URI)
		diags := s.orch.DidOpen(ctx, uri, params.TextDocument.Text)
		s.publishDiagnostics(ctx, conn, uri, diags)
		return nil, nil

	case "textDocument/didSave":
		var params protocol.DidSaveTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		uri := string(params.TextDocument.URI)
		var text *string
		if params.Text != "" {
			text = &params.Text
		}
		diags := s.orch.DidSave(ctx, uri, text)
		s.publishDiagnostics(ctx, conn, uri, diags)
		return nil, nil

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		s.orch.DidChange(string(params.TextDocument.URI))
		return nil, nil

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		s.orch.DidClose(string(params.TextDocument.URI))
		return nil, nil

	case "workspace/didChangeConfiguration":
		s.orch.DidChangeConfiguration()
		return nil, nil
	case "workspace/didChangeWorkspaceFolders":
		s.orch.DidChangeWorkspaceFolders()
		return nil, nil
	case "workspace/didChangeWatchedFiles":
		s.orch.DidChangeWatchedFiles()
		return nil, nil

	case "textDocument/definition":
		var params protocol.DefinitionParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		loc, ok := s.orch.Definition(ctx, string(params.TextDocument.URI), fromProtocolPosition(params.Position))
		if !ok {
			return nil, nil
		}
		return toProtocolLocation(loc), nil

	case "textDocument/declaration":
		var params protocol.DeclarationParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		loc, ok := s.orch.Declaration(ctx, string(params.TextDocument.URI), fromProtocolPosition(params.Position))
		if !ok {
			return nil, nil
		}
		return toProtocolLocation(loc), nil

	case "textDocument/references":
		var params protocol.ReferenceParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		locs := s.orch.References(ctx, string(params.TextDocument.URI), fromProtocolPosition(params.Position))
		out := make([]protocol.Location, 0, len(locs))
		for _, loc := range locs {
			out = append(out, toProtocolLocation(loc))
		}
		return out, nil

	case "textDocument/rename":
		var params protocol.RenameParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		plan, err := s.orch.Rename(ctx, string(params.TextDocument.URI), fromProtocolPosition(params.Position), params.NewName)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, nil
		}
		return toWorkspaceEdit(plan), nil

	case "workspace/executeCommand":
		return nil, nil

	default:
		debug.LogLSP("unhandled method %s, falling through to protocol default", req.Method)
		return nil, nil
	}
}

func (s *Server) handleInitialize(req *jsonrpc2.Request) (*protocol.InitializeResult, error) {
	var params protocol.InitializeParams
	if err := unmarshal(req, &params); err != nil {
		return nil, err
	}

	yes := true
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync:    protocol.TextDocumentSyncKindFull,
			DefinitionProvider:  yes,
			DeclarationProvider: yes,
			ReferencesProvider:  yes,
			RenameProvider:      yes,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "soliditylsp",
			Version: version.Version,
		},
	}, nil
}

func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri string, diags []orchestrator.Diagnostic) {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Severity: protocol.DiagnosticSeverity(d.Severity),
			Message:  d.Message,
			Source:   d.Source,
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(d.Line), Character: uint32(d.Column)},
				End:   protocol.Position{Line: uint32(d.Line), Character: uint32(d.Column)},
			},
		})
	}
	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: out,
	}); err != nil {
		debug.LogLSP("publishDiagnostics notify failed for %s: %v", uri, err)
	}
}

func fromProtocolPosition(p protocol.Position) astmodel.Position {
	return astmodel.Position{Line: int(p.Line), Character: int(p.Character)}
}

func toProtocolPosition(p astmodel.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func toProtocolLocation(loc astmodel.Location) protocol.Location {
	return protocol.Location{
		URI: protocol.DocumentURI(loc.URI),
		Range: protocol.Range{
			Start: toProtocolPosition(loc.Start),
			End:   toProtocolPosition(loc.End),
		},
	}
}

// toWorkspaceEdit converts the orchestrator's client/server split into the
// WorkspaceEdit the LSP response carries: only the client half (the
// active document) is included, since the server half is already on disk
// by the time Rename returns.
func toWorkspaceEdit(plan *orchestrator.ClientServerEditPlan) protocol.WorkspaceEdit {
	if plan.ClientURI == "" || len(plan.ClientEdits) == 0 {
		return protocol.WorkspaceEdit{}
	}
	edits := make([]protocol.TextEdit, 0, len(plan.ClientEdits))
	for _, e := range plan.ClientEdits {
		edits = append(edits, toProtocolTextEdit(e))
	}
	return protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{
			protocol.DocumentURI(plan.ClientURI): edits,
		},
	}
}

func toProtocolTextEdit(e rename.TextEdit) protocol.TextEdit {
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: toProtocolPosition(e.Start),
			End:   toProtocolPosition(e.End),
		},
		NewText: e.NewText,
	}
}

func unmarshal(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	return json.Unmarshal(*req.Params, v)
}
