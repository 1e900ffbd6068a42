package koreader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingStructure = errors.New("missing metadata structure")
	ErrBadTimestamp     = errors.New("bad highlight timestamp")
)

type ErrorKind int

const (
	MissingStructure ErrorKind = iota + 1
	BadTimestamp
)

func (k ErrorKind) String() string {
	switch k {
	case MissingStructure:
		return "missing structure"
	case BadTimestamp:
		return "bad timestamp"
	default:
		return "unknown"
	}
}

// ExtractError describes why a metadata tree could not be turned into a
// book. Index is the 1-based position of the offending highlight, or 0 when
// the error concerns the book as a whole.
type ExtractError struct {
	Kind   ErrorKind
	Path   string
	Field  string
	Index  int
	Value  string
	Reason string
}

func (e *ExtractError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Index > 0 {
		fmt.Fprintf(&b, ", highlight %d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field %q", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " = %q", e.Value)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ExtractError) Unwrap() error {
	switch e.Kind {
	case MissingStructure:
		return ErrMissingStructure
	case BadTimestamp:
		return ErrBadTimestamp
	default:
		return nil
	}
}
