package compiler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/standardbeagle/solidity-lsp/internal/errors"
)

// fakeBinary writes a tiny shell script under dir that echoes fixed
// stdout regardless of its arguments, and returns its path.
func fakeBinary(t *testing.T, dir, name, stdout string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake shell script driver requires a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestProcessDriverLintDiagnosticsParsesOutput(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "fakeforge", `[{"severity":1,"message":"unused variable","line":3,"column":5}]`, 0)

	d := NewProcessDriver(bin, nil, dir)
	diags, err := d.LintDiagnostics(context.Background(), "file:///x.sol")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "unused variable", diags[0].Message)
	assert.Equal(t, 3, diags[0].Line)
}

func TestProcessDriverNonZeroExitIsCompilerFailure(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "fakeforge", ``, 1)

	d := NewProcessDriver(bin, nil, dir)
	_, err := d.BuildDiagnostics(context.Background(), "file:///x.sol")
	require.Error(t, err)
	assert.True(t, coreerrors.New(coreerrors.KindCompilerFailure, "", nil).Is(err))
}

func TestParseDiagnosticsEmptyOutputIsNotAnError(t *testing.T) {
	diags, err := parseDiagnostics([]byte("   \n"))
	require.NoError(t, err)
	assert.Nil(t, diags)
}

func TestParseDiagnosticsMalformedJSONIsMalformedInput(t *testing.T) {
	_, err := parseDiagnostics([]byte("not json"))
	require.Error(t, err)
	assert.True(t, coreerrors.New(coreerrors.KindMalformedInput, "", nil).Is(err))
}
