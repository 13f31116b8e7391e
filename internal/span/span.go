// Package span converts between line/column positions and byte offsets
// in UTF-8 source text, and parses the compiler's "offset:length:fileId"
// span strings. This is the leaf component every other package builds on.
package span

import (
	"strconv"
	"strings"

	coreerrors "github.com/standardbeagle/solidity-lsp/internal/errors"

	"github.com/standardbeagle/solidity-lsp/internal/astmodel"
)

// lineCount reports how many lines content.lines()-style splitting would
// produce: newline-separated segments, where a trailing newline does not
// introduce a synthetic extra (empty) line.
func lineCount(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for i, b := range content {
		if b == '\n' && i != len(content)-1 {
			n++
		}
	}
	return n
}

// ByteOffsetOf converts pos to a byte offset into content by summing
// len(line_i)+1 for every line before pos.Line, then adding
// pos.Character bytes on the target line. Fails when pos.Line is past
// the last line or pos.Character is past the end of that line; a
// position must never spill over onto the following line.
func ByteOffsetOf(content []byte, pos astmodel.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, coreerrors.OutOfRange("ByteOffsetOf", nil)
	}

	if pos.Line >= lineCount(content) {
		return 0, coreerrors.OutOfRange("ByteOffsetOf", nil)
	}

	offset := 0
	line := 0
	for i := 0; i < len(content) && line < pos.Line; i++ {
		if content[i] == '\n' {
			line++
			offset = i + 1
		}
	}

	lineEnd := offset
	for lineEnd < len(content) && content[lineEnd] != '\n' {
		lineEnd++
	}
	if pos.Character > lineEnd-offset {
		return 0, coreerrors.OutOfRange("ByteOffsetOf", nil)
	}
	return offset + pos.Character, nil
}

// PositionOf is the inverse of ByteOffsetOf: it walks bytes, incrementing
// the line counter on '\n' and resetting the character counter.
func PositionOf(content []byte, offset int) (astmodel.Position, error) {
	if offset < 0 || offset > len(content) {
		return astmodel.Position{}, coreerrors.OutOfRange("PositionOf", nil)
	}

	line := 0
	char := 0
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

// ParseSpan splits s on ':' and requires exactly three integer parts:
// offset, length, fileId.
func ParseSpan(s string) (astmodel.Span, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return astmodel.Span{}, coreerrors.MalformedInput("ParseSpan", nil).WithPath(s)
	}

	offset, err := strconv.Atoi(parts[0])
	if err != nil || offset < 0 {
		return astmodel.Span{}, coreerrors.MalformedInput("ParseSpan", err).WithPath(s)
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil || length < 0 {
		return astmodel.Span{}, coreerrors.MalformedInput("ParseSpan", err).WithPath(s)
	}
	fileID, err := strconv.Atoi(parts[2])
	if err != nil || fileID < 0 {
		return astmodel.Span{}, coreerrors.MalformedInput("ParseSpan", err).WithPath(s)
	}

	return astmodel.Span{Offset: offset, Length: length, FileID: fileID}, nil
}
