package rename

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
)

func writeFixture(t *testing.T, source string, nodes []map[string]interface{}) (astJSON []byte, sourceBytes []byte, uri string) {
	t.Helper()
	dir := t.TempDir()
	absPath := filepath.Join(dir, "C.sol")
	require.NoError(t, os.WriteFile(absPath, []byte(source), 0644))

	nodesIface := make([]interface{}, len(nodes))
	for i, n := range nodes {
		nodesIface[i] = n
	}

	ast := map[string]interface{}{
		"sources": map[string]interface{}{
			absPath: []interface{}{
				map[string]interface{}{
					"source_file": map[string]interface{}{
						"ast": map[string]interface{}{
							"id":    1,
							"src":   fmt.Sprintf("0:%d:0", len(source)),
							"nodes": nodesIface,
						},
					},
				},
			},
		},
		"build_infos": []interface{}{
			map[string]interface{}{"source_id_to_path": map[string]interface{}{"0": absPath}},
		},
	}

	data, err := json.Marshal(ast)
	require.NoError(t, err)
	return data, []byte(source), "file://" + absPath
}

func span(offset, length int) string { return fmt.Sprintf("%d:%d:0", offset, length) }

func find(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func posAt(content string, offset int) astmodel.Position {
	line, char := 0, 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return astmodel.Position{Line: line, Character: char}
}

func TestRenameSymbolBasic(t *testing.T) {
	source := "contract C {\n    function add_vote(string memory name) public {\n        name;\n    }\n}\n"
	declOff := find(source, "name)") // points at "name" just before ")"
	useOff := find(source, "name;")

	astJSON, src, uri := writeFixture(t, source, []map[string]interface{}{
		{"id": 2, "nodeType": "VariableDeclaration", "src": span(declOff, 4), "nameLocation": span(declOff, 4)},
		{"id": 3, "nodeType": "Identifier", "src": span(useOff, 4), "referencedDeclaration": 2},
	})

	plan, err := RenameSymbol(astJSON, uri, posAt(source, declOff), src, "new_name")
	require.NoError(t, err)
	require.NotNil(t, plan)

	for _, edits := range plan.Changes {
		for _, e := range edits {
			assert.Equal(t, "new_name", e.NewText)
		}
	}
}

func TestRenameSymbolNoIdentifierAtCursor(t *testing.T) {
	source := "// just a comment\ncontract C {}\n"
	astJSON, src, uri := writeFixture(t, source, nil)

	plan, err := RenameSymbol(astJSON, uri, astmodel.Position{Line: 0, Character: 0}, src, "x")
	require.NoError(t, err)
	assert.Nil(t, plan, "cursor on whitespace/comment punctuation must yield no plan")
}

func TestRenameSymbolDigitLeadingTokenRejected(t *testing.T) {
	source := "uint256 123abc = 0;\n"
	// position inside "123abc" — but per rule, since it starts with a digit, no identifier.
	pos := posAt(source, find(source, "123abc"))
	ident, ok := identifierAt([]byte(source), pos)
	assert.False(t, ok, "got %q", ident)
}

func TestRenameQualifiedTypeReferenceLeavesQualifierAlone(t *testing.T) {
	// Renaming "Name" referenced through "IC.Name" must edit the struct
	// declaration and the bare "Name" inside the qualified reference, and
	// never the "IC" qualifier.
	source := "interface IC {\n    struct Name { uint256 x; }\n}\ncontract C {\n    IC.Name n;\n}\n"
	declOff := find(source, "Name {")
	refExprOff := find(source, "IC.Name")
	refExprLen := len("IC.Name")

	astJSON, src, uri := writeFixture(t, source, []map[string]interface{}{
		{"id": 2, "nodeType": "StructDefinition", "src": span(declOff, 4), "nameLocation": span(declOff, 4)},
		{"id": 3, "nodeType": "UserDefinedTypeName", "src": span(refExprOff, refExprLen), "referencedDeclaration": 2},
	})

	plan, err := RenameSymbol(astJSON, uri, posAt(source, declOff), src, "NewStruct")
	require.NoError(t, err)
	require.NotNil(t, plan)

	declLine := posAt(source, declOff).Line
	refLine := posAt(source, refExprOff).Line
	qualifierCol := posAt(source, refExprOff).Character

	var editLines []int
	for _, edits := range plan.Changes {
		for _, e := range edits {
			editLines = append(editLines, e.Start.Line)
			assert.Equal(t, 4, e.End.Character-e.Start.Character)
			if e.Start.Line == refLine {
				assert.Greater(t, e.Start.Character, qualifierCol+2, "the edit must start past the 'IC.' qualifier")
			}
		}
	}
	assert.ElementsMatch(t, []int{declLine, refLine}, editLines)
}

func TestNarrowedRenameOfMemberName(t *testing.T) {
	// "name.id" — renaming "id" must narrow to exactly 2 characters, not the
	// whole member-access expression span the compiler may emit for the use.
	source := "contract C {\n    struct S { uint256 id; }\n    function f(S memory name) public {\n        name.id;\n    }\n}\n"
	declOff := find(source, "id;")
	useExprOff := find(source, "name.id")
	useExprLen := len("name.id")

	astJSON, src, uri := writeFixture(t, source, []map[string]interface{}{
		{"id": 2, "nodeType": "VariableDeclaration", "src": span(declOff, 2), "nameLocation": span(declOff, 2)},
		{"id": 3, "nodeType": "MemberAccess", "src": span(useExprOff, useExprLen), "referencedDeclaration": 2},
	})

	plan, err := RenameSymbol(astJSON, uri, posAt(source, declOff), src, "new_id")
	require.NoError(t, err)
	require.NotNil(t, plan)

	for _, edits := range plan.Changes {
		for _, e := range edits {
			length := e.End.Character - e.Start.Character
			assert.Equal(t, 2, length, "narrowed range must cover only 'id', not the containing expression")
			assert.Equal(t, "new_id", e.NewText)
		}
	}
}
