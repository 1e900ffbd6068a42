package luatable

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\xef\xbb\xbf"

// DefaultMaxDepth bounds table nesting unless WithMaxDepth overrides it.
const DefaultMaxDepth = 500

// Option configures Decode.
type Option func(*decoder)

// WithMaxDepth sets the maximum table nesting depth. The top-level table is
// depth 1. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(d *decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// Decode parses a serialized table such as the content of a KOReader
// metadata file:
//
//	-- we can read Lua syntax here!
//	return {
//	    ["doc_props"] = { ["title"] = "Dune" },
//	}
//
// The input must hold exactly one table constructor, optionally preceded by
// "return". Nesting is tracked on an explicit stack, so deep input fails
// with a *ParseError instead of exhausting the goroutine stack.
func Decode(src string, opts ...Option) (Value, error) {
	d := &decoder{src: src, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d.document()
}

type decoder struct {
	src      string
	pos      int
	maxDepth int
}

// frame is a table under construction.
type frame struct {
	start      int
	items      []Value
	mapping    *Mapping
	positional int
	pending    *Field // key waiting for a nested table value
	needSep    bool
}

func (f *frame) add(key *Field, v Value) {
	if key == nil {
		f.positional++
		if f.mapping == nil {
			f.items = append(f.items, v)
			return
		}
		f.mapping.set(Field{Key: strconv.Itoa(f.positional), Numeric: true, Value: v})
		return
	}
	if f.mapping == nil {
		f.mapping = &Mapping{}
		for i, item := range f.items {
			f.mapping.set(Field{Key: strconv.Itoa(i + 1), Numeric: true, Value: item})
		}
		f.items = nil
	}
	key.Value = v
	f.mapping.set(*key)
}

func (f *frame) finish() Value {
	if f.mapping != nil {
		return f.mapping
	}
	if len(f.items) > 0 {
		return Sequence(f.items)
	}
	return &Mapping{}
}

func (d *decoder) errorf(offset int, format string, args ...any) error {
	return newParseError(d.src, offset, format, args...)
}

func (d *decoder) document() (Value, error) {
	if strings.HasPrefix(d.src, utf8BOM) {
		d.pos = len(utf8BOM)
	}
	if err := d.skipSpace(); err != nil {
		return nil, err
	}
	if d.hasKeyword("return") {
		d.pos += len("return")
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.src) {
		return nil, d.errorf(d.pos, "expected a table, found end of input")
	}
	if d.src[d.pos] != '{' {
		return nil, d.errorf(d.pos, "expected a table, found %s", d.describe(d.pos))
	}

	root, err := d.table()
	if err != nil {
		return nil, err
	}

	if err := d.skipSpace(); err != nil {
		return nil, err
	}
	if d.pos < len(d.src) && d.src[d.pos] == ';' {
		d.pos++
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
	}
	if d.pos < len(d.src) {
		return nil, d.errorf(d.pos, "unexpected %s after top-level table", d.describe(d.pos))
	}
	return root, nil
}

// table parses a table constructor starting at '{' without recursion.
func (d *decoder) table() (Value, error) {
	stack := []*frame{{start: d.pos}}
	d.pos++

	for {
		top := stack[len(stack)-1]
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.pos >= len(d.src) {
			open := newParseError(d.src, top.start, "")
			return nil, d.errorf(d.pos, "unexpected end of input: table opened at line %d, column %d is not closed", open.Line, open.Column)
		}

		c := d.src[d.pos]
		if c == '}' {
			d.pos++
			v := top.finish()
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return v, nil
			}
			parent := stack[len(stack)-1]
			parent.add(parent.pending, v)
			parent.pending = nil
			parent.needSep = true
			continue
		}

		if top.needSep {
			if c == ',' || c == ';' {
				d.pos++
				top.needSep = false
				continue
			}
			return nil, d.errorf(d.pos, "expected ',' or '}', found %s", d.describe(d.pos))
		}
		if c == ',' || c == ';' {
			return nil, d.errorf(d.pos, "unexpected %q", c)
		}

		key, err := d.key()
		if err != nil {
			return nil, err
		}
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.pos >= len(d.src) {
			return nil, d.errorf(d.pos, "unexpected end of input: expected a value")
		}

		if d.src[d.pos] == '{' {
			if len(stack) >= d.maxDepth {
				return nil, d.errorf(d.pos, "table nesting exceeds maximum depth %d", d.maxDepth)
			}
			top.pending = key
			stack = append(stack, &frame{start: d.pos})
			d.pos++
			continue
		}

		v, err := d.scalar()
		if err != nil {
			return nil, err
		}
		top.add(key, v)
		top.needSep = true
	}
}

// key consumes an explicit key ("[expr] =" or "name =") if one is present.
// It returns nil for positional entries.
func (d *decoder) key() (*Field, error) {
	c := d.src[d.pos]

	if c == '[' && !d.longBracketAhead() {
		start := d.pos
		d.pos++
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.pos >= len(d.src) {
			return nil, d.errorf(d.pos, "unexpected end of input in table key")
		}
		kv, err := d.scalar()
		if err != nil {
			return nil, err
		}
		field := &Field{}
		switch k := kv.(type) {
		case String:
			field.Key = string(k)
		case Number:
			field.Key = canonicalNumberKey(k)
			field.Numeric = true
		case Bool:
			field.Key = strconv.FormatBool(bool(k))
		default:
			return nil, d.errorf(start, "invalid table key %s", kv.Kind())
		}
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.pos >= len(d.src) || d.src[d.pos] != ']' {
			return nil, d.errorf(d.pos, "expected ']' to close table key")
		}
		d.pos++
		if err := d.expectAssign(); err != nil {
			return nil, err
		}
		return field, nil
	}

	if isIdentStart(c) {
		start := d.pos
		name := d.ident()
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.pos < len(d.src) && d.src[d.pos] == '=' && !strings.HasPrefix(d.src[d.pos:], "==") {
			d.pos++
			return &Field{Key: name}, nil
		}
		// Not a key: rewind so the value parser sees the identifier.
		d.pos = start
	}
	return nil, nil
}

func (d *decoder) expectAssign() error {
	if err := d.skipSpace(); err != nil {
		return err
	}
	if d.pos >= len(d.src) || d.src[d.pos] != '=' {
		return d.errorf(d.pos, "expected '=' after table key")
	}
	d.pos++
	return nil
}

func canonicalNumberKey(n Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return n.Text
}

// scalar parses any non-table value.
func (d *decoder) scalar() (Value, error) {
	c := d.src[d.pos]
	switch {
	case c == '"' || c == '\'':
		s, err := d.shortString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case c == '[' && d.longBracketAhead():
		s, err := d.longString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case isDigit(c) || c == '-' || c == '.':
		return d.number()
	case isIdentStart(c):
		start := d.pos
		switch name := d.ident(); name {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "nil":
			return Null{}, nil
		default:
			return nil, d.errorf(start, "unexpected identifier %q", name)
		}
	case c == '{':
		return nil, d.errorf(d.pos, "table not allowed here")
	default:
		return nil, d.errorf(d.pos, "unexpected %s", d.describe(d.pos))
	}
}

func (d *decoder) number() (Value, error) {
	start := d.pos
	if d.src[d.pos] == '-' {
		d.pos++
	}
	digitsStart := d.pos
	if strings.HasPrefix(d.src[d.pos:], "0x") || strings.HasPrefix(d.src[d.pos:], "0X") {
		d.pos += 2
		for d.pos < len(d.src) && isHexDigit(d.src[d.pos]) {
			d.pos++
		}
		if d.pos == digitsStart+2 {
			return nil, d.errorf(start, "malformed number")
		}
	} else {
		for d.pos < len(d.src) && isDigit(d.src[d.pos]) {
			d.pos++
		}
		if d.pos < len(d.src) && d.src[d.pos] == '.' {
			d.pos++
			for d.pos < len(d.src) && isDigit(d.src[d.pos]) {
				d.pos++
			}
		}
		mantissa := d.src[digitsStart:d.pos]
		if mantissa == "" || mantissa == "." {
			return nil, d.errorf(start, "malformed number")
		}
		if d.pos < len(d.src) && (d.src[d.pos] == 'e' || d.src[d.pos] == 'E') {
			d.pos++
			if d.pos < len(d.src) && (d.src[d.pos] == '+' || d.src[d.pos] == '-') {
				d.pos++
			}
			expStart := d.pos
			for d.pos < len(d.src) && isDigit(d.src[d.pos]) {
				d.pos++
			}
			if d.pos == expStart {
				return nil, d.errorf(start, "malformed number")
			}
		}
	}
	if d.pos < len(d.src) && (isIdentStart(d.src[d.pos]) || isDigit(d.src[d.pos]) || d.src[d.pos] == '.') {
		return nil, d.errorf(start, "malformed number near %q", d.src[start:d.pos+1])
	}
	return Number{Text: d.src[start:d.pos]}, nil
}

func (d *decoder) shortString() (string, error) {
	quote := d.src[d.pos]
	start := d.pos
	d.pos++
	var b strings.Builder
	for {
		if d.pos >= len(d.src) {
			return "", d.errorf(start, "unterminated string literal")
		}
		c := d.src[d.pos]
		switch {
		case c == quote:
			d.pos++
			return b.String(), nil
		case c == '\\':
			if err := d.escape(&b); err != nil {
				return "", err
			}
		case c < 0x20 || c == 0x7f:
			return "", d.errorf(d.pos, "unescaped control character 0x%02x in string literal", c)
		default:
			b.WriteByte(c)
			d.pos++
		}
	}
}

func (d *decoder) escape(b *strings.Builder) error {
	start := d.pos
	d.pos++
	if d.pos >= len(d.src) {
		return d.errorf(start, "unterminated string literal")
	}
	c := d.src[d.pos]
	switch c {
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'v':
		b.WriteByte('\v')
	case '\\', '"', '\'':
		b.WriteByte(c)
	case '\n', '\r':
		// Backslash-newline; \r\n and \n\r count as one line break.
		b.WriteByte('\n')
		if d.pos+1 < len(d.src) {
			next := d.src[d.pos+1]
			if (next == '\n' || next == '\r') && next != c {
				d.pos++
			}
		}
	case 'z':
		d.pos++
		for d.pos < len(d.src) && isSpace(d.src[d.pos]) {
			d.pos++
		}
		return nil
	case 'x':
		if d.pos+2 >= len(d.src) || !isHexDigit(d.src[d.pos+1]) || !isHexDigit(d.src[d.pos+2]) {
			return d.errorf(start, "invalid \\x escape")
		}
		v, _ := strconv.ParseUint(d.src[d.pos+1:d.pos+3], 16, 8)
		b.WriteByte(byte(v))
		d.pos += 3
		return nil
	case 'u':
		end := strings.IndexByte(d.src[d.pos:], '}')
		if d.pos+1 >= len(d.src) || d.src[d.pos+1] != '{' || end < 0 {
			return d.errorf(start, "invalid \\u escape")
		}
		hex := d.src[d.pos+2 : d.pos+end]
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || hex == "" || v > utf8.MaxRune {
			return d.errorf(start, "invalid \\u escape")
		}
		b.WriteRune(rune(v))
		d.pos += end + 1
		return nil
	default:
		if !isDigit(c) {
			return d.errorf(start, "invalid escape sequence \\%c", c)
		}
		n := 0
		for n < 3 && d.pos+n < len(d.src) && isDigit(d.src[d.pos+n]) {
			n++
		}
		v, _ := strconv.Atoi(d.src[d.pos : d.pos+n])
		if v > 255 {
			return d.errorf(start, "decimal escape too large")
		}
		b.WriteByte(byte(v))
		d.pos += n
		return nil
	}
	d.pos++
	return nil
}

// longBracketAhead reports whether a long bracket ("[[", "[=[", ...) opens
// at the current position.
func (d *decoder) longBracketAhead() bool {
	_, ok := d.longBracketLevel(d.pos)
	return ok
}

func (d *decoder) longBracketLevel(at int) (int, bool) {
	if at >= len(d.src) || d.src[at] != '[' {
		return 0, false
	}
	i := at + 1
	for i < len(d.src) && d.src[i] == '=' {
		i++
	}
	if i < len(d.src) && d.src[i] == '[' {
		return i - at - 1, true
	}
	return 0, false
}

func (d *decoder) longString() (string, error) {
	start := d.pos
	level, _ := d.longBracketLevel(d.pos)
	d.pos += level + 2
	// A newline right after the opening bracket is not part of the string.
	if strings.HasPrefix(d.src[d.pos:], "\r\n") {
		d.pos += 2
	} else if d.pos < len(d.src) && (d.src[d.pos] == '\n' || d.src[d.pos] == '\r') {
		d.pos++
	}
	closing := "]" + strings.Repeat("=", level) + "]"
	end := strings.Index(d.src[d.pos:], closing)
	if end < 0 {
		return "", d.errorf(start, "unterminated long string")
	}
	s := d.src[d.pos : d.pos+end]
	d.pos += end + len(closing)
	return s, nil
}

// skipSpace skips whitespace and comments.
func (d *decoder) skipSpace() error {
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if isSpace(c) {
			d.pos++
			continue
		}
		if c == '-' && strings.HasPrefix(d.src[d.pos:], "--") {
			start := d.pos
			d.pos += 2
			if level, ok := d.longBracketLevel(d.pos); ok {
				closing := "]" + strings.Repeat("=", level) + "]"
				end := strings.Index(d.src[d.pos:], closing)
				if end < 0 {
					return d.errorf(start, "unterminated block comment")
				}
				d.pos += end + len(closing)
				continue
			}
			for d.pos < len(d.src) && d.src[d.pos] != '\n' {
				d.pos++
			}
			continue
		}
		return nil
	}
	return nil
}

func (d *decoder) ident() string {
	start := d.pos
	for d.pos < len(d.src) && (isIdentStart(d.src[d.pos]) || isDigit(d.src[d.pos])) {
		d.pos++
	}
	return d.src[start:d.pos]
}

func (d *decoder) hasKeyword(kw string) bool {
	if !strings.HasPrefix(d.src[d.pos:], kw) {
		return false
	}
	end := d.pos + len(kw)
	return end >= len(d.src) || !(isIdentStart(d.src[end]) || isDigit(d.src[end]))
}

func (d *decoder) describe(at int) string {
	if at >= len(d.src) {
		return "end of input"
	}
	r, _ := utf8.DecodeRuneInString(d.src[at:])
	return strconv.QuoteRune(r)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
