// Package refgraph builds the declaration<->usages adjacency from a
// FileTable and answers the position/id/location queries built on top of
// it (byteToId, idToLocation, gotoReferences, gotoDeclaration).
package refgraph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
	"github.com/standardbeagle/solidity-lsp/internal/debug"
	"github.com/standardbeagle/solidity-lsp/internal/ingest"
	"github.com/standardbeagle/solidity-lsp/internal/span"
)

// ReferenceGraph is an undirected adjacency map: NodeID -> set of NodeID.
type ReferenceGraph map[astmodel.NodeID]map[astmodel.NodeID]struct{}

// AllReferences builds the symmetric adjacency: for every node with a
// referencedDeclaration d, both (d -> self) and (self -> d) are inserted.
// Symmetric by construction so gotoReferences needs no case split between
// starting at a use or at a declaration.
func AllReferences(ft astmodel.FileTable) ReferenceGraph {
	g := make(ReferenceGraph)
	add := func(a, b astmodel.NodeID) {
		if g[a] == nil {
			g[a] = make(map[astmodel.NodeID]struct{})
		}
		g[a][b] = struct{}{}
	}

	for _, nodes := range ft {
		for id, info := range nodes {
			if info.HasReferencedDeclaration {
				add(info.ReferencedDeclaration, id)
				add(id, info.ReferencedDeclaration)
			}
		}
	}
	return g
}

// ByteToID returns the id of the node in absPath whose span contains
// byteOffset and is shortest (most specific token). On equal lengths the
// lowest id wins, so repeated calls over the same table always resolve
// the same node despite Go's randomized map iteration.
func ByteToID(ft astmodel.FileTable, absPath string, byteOffset int) (astmodel.NodeID, bool) {
	nodes, ok := ft[absPath]
	if !ok {
		return 0, false
	}

	var bestID astmodel.NodeID
	bestLen := -1
	found := false
	for id, info := range nodes {
		if !info.Src.Contains(byteOffset) {
			continue
		}
		length := info.Src.Length
		if !found || length < bestLen || (length == bestLen && id < bestID) {
			bestID = id
			bestLen = length
			found = true
		}
	}
	return bestID, found
}

// IDToLocation resolves id to a Location: prefers nameLocation over src,
// resolves the span's fileId via pi, reads the file once to turn the byte
// span into line/column positions. Missing files cause a graceful miss,
// never an abort.
func IDToLocation(ft astmodel.FileTable, pi astmodel.PathIndex, id astmodel.NodeID) (astmodel.Location, bool) {
	var target *astmodel.NodeInfo
	for _, nodes := range ft {
		if info, ok := nodes[id]; ok {
			info := info
			target = &info
			break
		}
	}
	if target == nil {
		return astmodel.Location{}, false
	}

	sp := target.Src
	if target.HasNameLocation {
		sp = *target.NameLocation
	}

	path, ok := pi.FileIDToPath[sp.FileID]
	if !ok {
		return astmodel.Location{}, false
	}

	absPath := path
	if !filepath.IsAbs(absPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return astmodel.Location{}, false
		}
		absPath = filepath.Join(cwd, path)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		debug.LogLSP("idToLocation: could not read %s: %v", absPath, err)
		return astmodel.Location{}, false
	}

	startPos, err := span.PositionOf(content, sp.Offset)
	if err != nil {
		return astmodel.Location{}, false
	}
	endPos, err := span.PositionOf(content, sp.End())
	if err != nil {
		return astmodel.Location{}, false
	}

	return astmodel.Location{
		URI:   pathToURI(absPath),
		Start: startPos,
		End:   endPos,
	}, true
}

// parsedAST is the subset of the compiler's top-level JSON this package needs.
type parsedAST struct {
	Sources    map[string]json.RawMessage `json:"sources"`
	BuildInfos []buildInfo                `json:"build_infos"`
}

type buildInfo struct {
	SourceIDToPath map[string]string `json:"source_id_to_path"`
}

// Parse extracts FileTable, PathIndex, and ReferenceGraph from a raw
// compiler AST payload. Returns ok=false when `sources` or `build_infos`
// is missing.
func Parse(ast []byte) (astmodel.FileTable, astmodel.PathIndex, ReferenceGraph, bool) {
	var doc parsedAST
	if err := json.Unmarshal(ast, &doc); err != nil {
		return nil, astmodel.PathIndex{}, nil, false
	}
	if doc.Sources == nil || len(doc.BuildInfos) == 0 {
		return nil, astmodel.PathIndex{}, nil, false
	}

	ft, pi, err := ingest.CacheIDs(doc.Sources)
	if err != nil {
		return nil, astmodel.PathIndex{}, nil, false
	}

	for idStr, path := range doc.BuildInfos[0].SourceIDToPath {
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			continue
		}
		pi.FileIDToPath[id] = path
	}

	graph := AllReferences(ft)
	return ft, pi, graph, true
}

// ExcludeFunc reports whether an absolute path should never be considered
// when resolving an editor-supplied URI (config.Config.IsExcluded's
// signature; kept as a plain func type here so this package does not
// import internal/config).
type ExcludeFunc func(absPath string) bool

// firstExclude returns the first ExcludeFunc supplied, or nil if none was.
func firstExclude(isExcluded []ExcludeFunc) ExcludeFunc {
	if len(isExcluded) == 0 {
		return nil
	}
	return isExcluded[0]
}

// GotoReferences resolves fileURI/position to a node, determines its
// target declaration, and returns every location in the declaration's
// reference set (declaration plus all uses), deduplicated by
// (uri, start, end). isExcluded, when supplied, rejects a resolved path
// that matches the caller's configured exclude globs.
func GotoReferences(ast []byte, fileURI string, pos astmodel.Position, sourceBytes []byte, isExcluded ...ExcludeFunc) []astmodel.Location {
	ft, pi, graph, ok := Parse(ast)
	if !ok {
		return nil
	}

	absPath, ok := resolveRequestPath(pi, fileURI, firstExclude(isExcluded))
	if !ok {
		return nil
	}

	byteOffset, err := span.ByteOffsetOf(sourceBytes, pos)
	if err != nil {
		return nil
	}

	nodeID, ok := ByteToID(ft, absPath, byteOffset)
	if !ok {
		return nil
	}

	target := nodeID
	if nodes, ok := ft[absPath]; ok {
		if info, ok := nodes[nodeID]; ok && info.HasReferencedDeclaration {
			target = info.ReferencedDeclaration
		}
	}

	results := map[astmodel.NodeID]struct{}{target: {}}
	for id := range graph[target] {
		results[id] = struct{}{}
	}

	seen := make(map[astmodel.LocationKey]struct{})
	var locations []astmodel.Location
	for id := range results {
		loc, ok := IDToLocation(ft, pi, id)
		if !ok {
			continue
		}
		key := loc.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		locations = append(locations, loc)
	}

	sortLocations(locations)
	return locations
}

// GotoDeclaration follows referencedDeclaration one hop (no transitive
// walk): if the clicked node has one, return the declaration's location;
// otherwise the clicked node is already a declaration, return its own
// location. isExcluded behaves as in GotoReferences.
func GotoDeclaration(ast []byte, fileURI string, pos astmodel.Position, sourceBytes []byte, isExcluded ...ExcludeFunc) (astmodel.Location, bool) {
	ft, pi, _, ok := Parse(ast)
	if !ok {
		return astmodel.Location{}, false
	}

	absPath, ok := resolveRequestPath(pi, fileURI, firstExclude(isExcluded))
	if !ok {
		return astmodel.Location{}, false
	}

	byteOffset, err := span.ByteOffsetOf(sourceBytes, pos)
	if err != nil {
		return astmodel.Location{}, false
	}

	nodeID, ok := ByteToID(ft, absPath, byteOffset)
	if !ok {
		return astmodel.Location{}, false
	}

	target := nodeID
	if nodes, ok := ft[absPath]; ok {
		if info, ok := nodes[nodeID]; ok && info.HasReferencedDeclaration {
			target = info.ReferencedDeclaration
		}
	}

	return IDToLocation(ft, pi, target)
}

// resolveRequestPath resolves an editor-supplied file:// URI to the
// FileTable's canonical absolute path form via pi.RequestPathToAbs,
// falling back to trying the raw filesystem path directly (e.g. the
// editor's URI already matches the compiler's own path convention).
// A candidate matching isExcluded (vendored libraries, build output) is
// rejected outright, the same as an unresolvable path.
func resolveRequestPath(pi astmodel.PathIndex, fileURI string, isExcluded ExcludeFunc) (string, bool) {
	raw, err := uriToPath(fileURI)
	if err != nil {
		return "", false
	}
	if abs, ok := pi.RequestPathToAbs[raw]; ok {
		if isExcluded != nil && isExcluded(abs) {
			return "", false
		}
		return abs, true
	}
	// The editor's path may differ from the compiler's by symlink form.
	if resolved, err := filepath.EvalSymlinks(raw); err == nil {
		if abs, ok := pi.RequestPathToAbs[resolved]; ok {
			if isExcluded != nil && isExcluded(abs) {
				return "", false
			}
			return abs, true
		}
	}
	if isExcluded != nil && isExcluded(raw) {
		return "", false
	}
	return raw, true
}

func sortLocations(locs []astmodel.Location) {
	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.URI != b.URI {
			return a.URI < b.URI
		}
		if a.Start.Line != b.Start.Line {
			return a.Start.Line < b.Start.Line
		}
		return a.Start.Character < b.Start.Character
	})
}

