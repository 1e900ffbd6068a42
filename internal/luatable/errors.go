package luatable

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every *ParseError.
var ErrSyntax = errors.New("lua table syntax error")

// ParseError reports malformed input. Offset is a byte offset; Line and
// Column are 1-based, Column counted in bytes.
type ParseError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d (offset %d): %s", e.Line, e.Column, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

func newParseError(src string, offset int, format string, args ...any) *ParseError {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if nl := strings.LastIndexByte(src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return &ParseError{
		Offset: offset,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}
