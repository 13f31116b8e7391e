package refgraph

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

// buildFixture writes sourceText to a temp file and returns an AST JSON
// payload plus the source bytes, with declSpan/useSpan given as
// "offset:length" pairs against sourceText (fileId is always 0).
func buildFixture(t *testing.T, sourceText string, declOffset, declLen, useOffset, useLen int) (astJSON []byte, sourceBytes []byte, absPath string) {
	t.Helper()
	dir := t.TempDir()
	absPath = filepath.Join(dir, "Reference.sol")
	require.NoError(t, os.WriteFile(absPath, []byte(sourceText), 0644))

	ast := map[string]interface{}{
		"sources": map[string]interface{}{
			absPath: []interface{}{
				map[string]interface{}{
					"source_file": map[string]interface{}{
						"ast": map[string]interface{}{
							"id":  1,
							"src": fmt.Sprintf("0:%d:0", len(sourceText)),
							"nodes": []interface{}{
								map[string]interface{}{
									"id":           2,
									"nodeType":     "VariableDeclaration",
									"src":          fmt.Sprintf("%d:%d:0", declOffset, declLen),
									"nameLocation": fmt.Sprintf("%d:%d:0", declOffset, declLen),
									"name":         "myValue",
								},
								map[string]interface{}{
									"id":                    3,
									"nodeType":              "Identifier",
									"src":                   fmt.Sprintf("%d:%d:0", useOffset, useLen),
									"referencedDeclaration": 2,
								},
							},
						},
					},
				},
			},
		},
		"build_infos": []interface{}{
			map[string]interface{}{
				"source_id_to_path": map[string]interface{}{"0": absPath},
			},
		},
	}

	data, err := json.Marshal(ast)
	require.NoError(t, err)
	return data, []byte(sourceText), absPath
}

const refSource = "contract C {\n    uint256 public myValue;\n\n    function set(uint256 _value) public {\n        myValue = _value;\n    }\n}\n"

func TestGotoReferencesSymmetry(t *testing.T) {
	// "myValue" declaration token starts where "myValue" first appears (decl),
	// and the use site is the second occurrence inside set().
	declOffset := indexOf(t, refSource, "myValue")
	useOffset := indexOf(t, refSource, "myValue", declOffset+1)
	length := len("myValue")

	astJSON, src, absPath := buildFixture(t, refSource, declOffset, length, useOffset, length)
	uri := pathToURI(absPath)

	declPos, err := offsetToPos(src, declOffset)
	require.NoError(t, err)
	usePos, err := offsetToPos(src, useOffset)
	require.NoError(t, err)

	fromUse := GotoReferences(astJSON, uri, usePos, src)
	fromDecl := GotoReferences(astJSON, uri, declPos, src)

	require.GreaterOrEqual(t, len(fromUse), 2)
	assert.ElementsMatch(t, locKeys(fromUse), locKeys(fromDecl), "starting from use or declaration must yield the identical set")
}

func TestAllReferencesIsSymmetric(t *testing.T) {
	ft := astmodel.FileTable{
		"/a.sol": {
			1: astmodel.NodeInfo{ID: 1, Src: astmodel.Span{Offset: 0, Length: 5}},
			2: astmodel.NodeInfo{ID: 2, Src: astmodel.Span{Offset: 10, Length: 5}, ReferencedDeclaration: 1, HasReferencedDeclaration: true},
			3: astmodel.NodeInfo{ID: 3, Src: astmodel.Span{Offset: 20, Length: 5}, ReferencedDeclaration: 1, HasReferencedDeclaration: true},
		},
	}
	g := AllReferences(ft)
	for a, neighbors := range g {
		for b := range neighbors {
			_, ok := g[b][a]
			assert.True(t, ok, "edge %v -> %v must have a reciprocal %v -> %v", a, b, b, a)
		}
	}
}

func TestByteToIDPrefersShortestSpan(t *testing.T) {
	ft := astmodel.FileTable{
		"/a.sol": {
			// Outer contract body [0, 100)
			1: astmodel.NodeInfo{ID: 1, Src: astmodel.Span{Offset: 0, Length: 100}},
			// Inner function body [10, 50)
			2: astmodel.NodeInfo{ID: 2, Src: astmodel.Span{Offset: 10, Length: 40}},
			// Innermost identifier [20, 27)
			3: astmodel.NodeInfo{ID: 3, Src: astmodel.Span{Offset: 20, Length: 7}},
		},
	}

	id, ok := ByteToID(ft, "/a.sol", 22)
	require.True(t, ok)
	assert.Equal(t, astmodel.NodeID(3), id, "the shortest enclosing span must win, never a container")
}

func TestGotoDeclarationFromUseReturnsDeclaration(t *testing.T) {
	declOffset := indexOf(t, refSource, "myValue")
	useOffset := indexOf(t, refSource, "myValue", declOffset+1)
	length := len("myValue")

	astJSON, src, absPath := buildFixture(t, refSource, declOffset, length, useOffset, length)
	uri := pathToURI(absPath)

	usePos, err := offsetToPos(src, useOffset)
	require.NoError(t, err)

	loc, ok := GotoDeclaration(astJSON, uri, usePos, src)
	require.True(t, ok)

	declPos, err := offsetToPos(src, declOffset)
	require.NoError(t, err)
	assert.Equal(t, declPos, loc.Start, "clicking a use must land on the declaration's name")
}

func TestGotoDeclarationOnDeclarationReturnsItself(t *testing.T) {
	declOffset := indexOf(t, refSource, "myValue")
	useOffset := indexOf(t, refSource, "myValue", declOffset+1)
	length := len("myValue")

	astJSON, src, absPath := buildFixture(t, refSource, declOffset, length, useOffset, length)
	uri := pathToURI(absPath)

	declPos, err := offsetToPos(src, declOffset)
	require.NoError(t, err)

	loc, ok := GotoDeclaration(astJSON, uri, declPos, src)
	require.True(t, ok)
	assert.Equal(t, declPos, loc.Start)
}

func TestGotoReferencesEmptyOnMissingSources(t *testing.T) {
	locs := GotoReferences([]byte(`{"not_sources": true}`), "file:///nope.sol", astmodel.Position{}, []byte(""))
	assert.Empty(t, locs)
}

func TestGotoReferencesOutOfRangePosition(t *testing.T) {
	astJSON, src, absPath := buildFixture(t, refSource, 10, 3, 20, 3)
	uri := pathToURI(absPath)

	locs := GotoReferences(astJSON, uri, astmodel.Position{Line: 9999, Character: 0}, src)
	assert.Empty(t, locs, "position past end-of-content must be a soft miss, not a panic")
}

func indexOf(t *testing.T, s, substr string, from ...int) int {
	t.Helper()
	start := 0
	if len(from) > 0 {
		start = from[0]
	}
	idx := -1
	for i := start; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "fixture source must contain %q", substr)
	return idx
}

func offsetToPos(content []byte, offset int) (astmodel.Position, error) {
	line, char := 0, 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return astmodel.Position{Line: line, Character: char}, nil
}

func locKeys(locs []astmodel.Location) []astmodel.LocationKey {
	keys := make([]astmodel.LocationKey, len(locs))
	for i, l := range locs {
		keys[i] = l.Key()
	}
	return keys
}
