// Package rename plans symbol renames: it extracts the identifier token
// at a cursor, collects its reference set via internal/refgraph, narrows
// each reference's range to the bare identifier, and produces a
// multi-file EditPlan.
//
// The cursor's own location is already part of gotoReferences' result
// (it is either the declaration or a use site), so it is never appended
// as an extra edit — doing so would duplicate edits on that range.
package rename

import (
	"os"
	"strings"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
	"github.com/standardbeagle/solidity-lsp/internal/debug"
	"github.com/standardbeagle/solidity-lsp/internal/refgraph"
)

// TextEdit is one identifier-range replacement within a single file.
type TextEdit struct {
	Start   astmodel.Position
	End     astmodel.Position
	NewText string
}

// EditPlan groups TextEdits by the URI of the file they apply to.
type EditPlan struct {
	Changes map[string][]TextEdit
}

func isIdentChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// lineAt returns the content of the nth line (0-based). Lines are
// separated by single newline bytes; a trailing newline does not
// introduce a synthetic extra line.
func lineAt(content []byte, lineNo int) (string, bool) {
	line := 0
	for i := 0; i <= len(content); i++ {
		if line == lineNo {
			end := i
			for end < len(content) && content[end] != '\n' {
				end++
			}
			return string(content[i:end]), true
		}
		if i == len(content) {
			return "", false
		}
		if content[i] == '\n' {
			line++
		}
	}
	return "", false
}

// identifierAt extracts the identifier at position by expanding left and
// right over [A-Za-z0-9_]. Rejects a match starting with a digit.
// Returns ("", false) when there is no token at the cursor.
func identifierAt(content []byte, pos astmodel.Position) (string, bool) {
	line, ok := lineAt(content, pos.Line)
	if !ok {
		return "", false
	}
	if pos.Character < 0 || pos.Character > len(line) {
		return "", false
	}

	start, end := pos.Character, pos.Character
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	for end < len(line) && isIdentChar(line[end]) {
		end++
	}
	if start == end {
		return "", false
	}
	if isDigit(line[start]) {
		return "", false
	}
	return line[start:end], true
}

// narrowToIdentifier finds the first occurrence of identifier within the
// raw range's text (single line only) and produces a new range of exactly
// len(identifier) starting there. Falls back to the original range when
// no occurrence exists or the range spans multiple lines.
func narrowToIdentifier(content []byte, start, end astmodel.Position, identifier string) (astmodel.Position, astmodel.Position) {
	if start.Line != end.Line {
		return start, end
	}
	line, ok := lineAt(content, start.Line)
	if !ok {
		return start, end
	}
	if start.Character < 0 || end.Character > len(line) || start.Character > end.Character {
		return start, end
	}

	rangeText := line[start.Character:end.Character]
	idx := strings.Index(rangeText, identifier)
	if idx < 0 {
		return start, end
	}

	newStart := astmodel.Position{Line: start.Line, Character: start.Character + idx}
	newEnd := astmodel.Position{Line: start.Line, Character: newStart.Character + len(identifier)}
	if newEnd.Character > end.Character {
		return start, end
	}
	return newStart, newEnd
}

// RenameSymbol builds the EditPlan for renaming the identifier at
// (fileURI, position) to newName. Returns (nil, nil) when there is no
// identifier at the cursor (whitespace, punctuation, or a token starting
// with a digit) — a soft miss, not an error. isExcluded, when supplied,
// is forwarded to refgraph.GotoReferences to keep vendored or
// build-output paths out of the reference set.
func RenameSymbol(ast []byte, fileURI string, position astmodel.Position, sourceBytes []byte, newName string, isExcluded ...refgraph.ExcludeFunc) (*EditPlan, error) {
	identifier, ok := identifierAt(sourceBytes, position)
	if !ok {
		return nil, nil
	}

	locations := refgraph.GotoReferences(ast, fileURI, position, sourceBytes, isExcluded...)
	if len(locations) == 0 {
		return nil, nil
	}

	plan := &EditPlan{Changes: make(map[string][]TextEdit)}

	for _, loc := range locations {
		path, err := uriToPath(loc.URI)
		if err != nil {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			// An unreadable file skips its location, never the whole plan.
			debug.Log("RENAME", "skipping unreadable reference location %s: %v", path, err)
			continue
		}

		start, end := narrowToIdentifier(content, loc.Start, loc.End, identifier)

		edit := TextEdit{Start: start, End: end, NewText: newName}
		plan.Changes[loc.URI] = append(plan.Changes[loc.URI], edit)
	}

	if len(plan.Changes) == 0 {
		return nil, nil
	}
	return plan, nil
}

func uriToPath(fileURI string) (string, error) {
	return refgraph.URIToPath(fileURI)
}
