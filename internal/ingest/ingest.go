// Package ingest walks the compiler's JSON AST and produces a normalized
// FileTable plus PathIndex. It never aborts on malformed input;
// individual nodes are skipped.
package ingest

import (
	"encoding/json"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
	"github.com/standardbeagle/solidity-lsp/internal/span"
)

// childFields is the fixed, union set of child-bearing fields the
// compiler's AST node shapes use. Any other object field is never
// descended into (it can't carry further AST nodes).
var childFields = []string{
	"nodes", "body", "statements", "parameters", "returnParameters",
	"members", "modifiers", "baseContracts", "arguments", "expression",
	"leftExpression", "rightExpression", "condition", "trueBody",
	"falseBody", "initialValue", "typeName",
}

// CacheIDs walks root.sources (one entry per source path, each an array
// whose first element carries source_file.ast) and returns the
// normalized FileTable plus a PathIndex populated from the per-source
// path (the requestPath -> absolutePath half; the fileId half is filled
// in by the caller from build_infos, since that section lives outside
// `sources`).
func CacheIDs(sources map[string]json.RawMessage) (astmodel.FileTable, astmodel.PathIndex, error) {
	ft := make(astmodel.FileTable)
	pi := astmodel.NewPathIndex()

	if len(sources) == 0 {
		return ft, pi, nil
	}

	for path, raw := range sources {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
			continue
		}

		var first map[string]json.RawMessage
		if err := json.Unmarshal(arr[0], &first); err != nil {
			continue
		}

		sourceFileRaw, ok := first["source_file"]
		if !ok {
			continue
		}
		var sourceFile map[string]json.RawMessage
		if err := json.Unmarshal(sourceFileRaw, &sourceFile); err != nil {
			continue
		}

		astRaw, ok := sourceFile["ast"]
		if !ok {
			continue
		}
		var ast map[string]interface{}
		if err := json.Unmarshal(astRaw, &ast); err != nil {
			continue
		}

		nodes := make(map[astmodel.NodeID]astmodel.NodeInfo)
		walk(ast, nodes)
		if len(nodes) > 0 {
			ft[path] = nodes
		}

		pi.RequestPathToAbs[path] = path
	}

	return ft, pi, nil
}

// walk depth-first traverses node (and everything reachable through
// childFields) collecting one NodeInfo per visited object that has an
// integer "id" and a string "src". Unknown nodeTypes are not an error;
// missing/malformed fields just skip that node.
func walk(node interface{}, out map[astmodel.NodeID]astmodel.NodeInfo) {
	switch v := node.(type) {
	case map[string]interface{}:
		if info, ok := extractNodeInfo(v); ok {
			out[info.ID] = info
		}
		for _, field := range childFields {
			if child, ok := v[field]; ok {
				walk(child, out)
			}
		}
	case []interface{}:
		for _, item := range v {
			walk(item, out)
		}
	}
}

func extractNodeInfo(obj map[string]interface{}) (astmodel.NodeInfo, bool) {
	idFloat, ok := obj["id"].(float64)
	if !ok {
		return astmodel.NodeInfo{}, false
	}
	srcStr, ok := obj["src"].(string)
	if !ok {
		return astmodel.NodeInfo{}, false
	}
	src, err := span.ParseSpan(srcStr)
	if err != nil {
		// A malformed src span skips the node, never aborts the walk.
		return astmodel.NodeInfo{}, false
	}

	info := astmodel.NodeInfo{
		ID:  astmodel.NodeID(idFloat),
		Src: src,
	}

	if nameLocStr, ok := obj["nameLocation"].(string); ok {
		if nameLoc, err := span.ParseSpan(nameLocStr); err == nil {
			info.NameLocation = &nameLoc
			info.HasNameLocation = true
		}
	}

	if refFloat, ok := obj["referencedDeclaration"].(float64); ok {
		info.ReferencedDeclaration = astmodel.NodeID(refFloat)
		info.HasReferencedDeclaration = true
	}

	if nodeType, ok := obj["nodeType"].(string); ok {
		info.NodeType = nodeType
	}

	return info, true
}
