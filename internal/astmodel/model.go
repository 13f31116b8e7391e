// Package astmodel holds the shared data model: the normalized view the
// AST ingestor produces and every other component consumes. Nothing here
// parses JSON or walks a tree; that's internal/ingest.
package astmodel

// NodeID is a compilation-wide unique 64-bit node identifier.
type NodeID uint64

// Position is a zero-based (line, character) pair. Character counts
// bytes on that line, matching the compiler's own convention, not the
// UTF-16 code units LSP defaults to.
type Position struct {
	Line      int
	Character int
}

// Span is the compiler's (offset, length, fileId) triple, parsed from its
// colon-delimited text form "offset:length:fileId".
type Span struct {
	Offset int
	Length int
	FileID int
}

// End returns the half-open span's exclusive end offset.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Contains reports whether byteOffset falls in the half-open range
// [Offset, Offset+Length).
func (s Span) Contains(byteOffset int) bool {
	return s.Offset <= byteOffset && byteOffset < s.End()
}

// NodeInfo is the normalized record the AST ingestor keeps per node.
type NodeInfo struct {
	ID   NodeID
	Src  Span

	// NameLocation is the narrower span covering only the name token,
	// when the construct has one. Absent otherwise.
	NameLocation    *Span
	HasNameLocation bool

	// ReferencedDeclaration is the ID of the declaration this node refers
	// to, when the node is a use site. Absent for declarations themselves.
	ReferencedDeclaration    NodeID
	HasReferencedDeclaration bool

	// NodeType is retained only for diagnostics; the reference graph
	// never inspects it.
	NodeType string
}

// Location is a resolved, already-human-readable span: a file URI plus a
// line/column range, ready to hand to the editor.
type Location struct {
	URI   string
	Start Position
	End   Position
}

// LocationKey is the dedup key for a resolved location: (uri, startLine,
// startChar, endLine, endChar).
type LocationKey struct {
	URI        string
	StartLine  int
	StartChar  int
	EndLine    int
	EndChar    int
}

func (l Location) Key() LocationKey {
	return LocationKey{
		URI:       l.URI,
		StartLine: l.Start.Line,
		StartChar: l.Start.Character,
		EndLine:   l.End.Line,
		EndChar:   l.End.Character,
	}
}

// FileTable maps an absolute file path to its NodeID -> NodeInfo table.
// One entry per source file in the current compilation unit.
type FileTable map[string]map[NodeID]NodeInfo

// PathIndex is two maps maintained together: the compiler's fileId ->
// absolute path table, and the editor-supplied-path resolution table.
type PathIndex struct {
	// FileIDToPath maps the compiler's build-info fileId to an absolute path.
	FileIDToPath map[int]string
	// RequestPathToAbs resolves an editor-supplied path (which may differ
	// by symlink or relative form) to the FileTable's canonical absolute form.
	RequestPathToAbs map[string]string
}

// NewPathIndex returns an empty, ready-to-populate PathIndex.
func NewPathIndex() PathIndex {
	return PathIndex{
		FileIDToPath:     make(map[int]string),
		RequestPathToAbs: make(map[string]string),
	}
}
