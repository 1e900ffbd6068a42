package luatable

import (
	"strconv"
	"strings"
)

// Encode serializes a value tree in the layout KOReader uses for its
// sidecar files: one field per line, string keys in brackets, trailing
// commas. Decode(Encode(v)) yields a tree Equal to v for any tree without
// empty sequences (an empty table always decodes as a Mapping).
func Encode(v Value) string {
	var b strings.Builder
	b.WriteString("-- we can read Lua syntax here!\nreturn ")
	encodeValue(&b, v, 0)
	b.WriteString("\n")
	return b.String()
}

func encodeValue(b *strings.Builder, v Value, indent int) {
	switch t := v.(type) {
	case nil, Null:
		b.WriteString("nil")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(t)))
	case Number:
		b.WriteString(t.Text)
	case String:
		b.WriteString(quote(string(t)))
	case Sequence:
		b.WriteString("{\n")
		for _, item := range t {
			writeIndent(b, indent+1)
			encodeValue(b, item, indent+1)
			b.WriteString(",\n")
		}
		writeIndent(b, indent)
		b.WriteString("}")
	case *Mapping:
		b.WriteString("{\n")
		for _, f := range t.Fields {
			writeIndent(b, indent+1)
			b.WriteString("[")
			if f.Numeric {
				b.WriteString(f.Key)
			} else {
				b.WriteString(quote(f.Key))
			}
			b.WriteString("] = ")
			encodeValue(b, f.Value, indent+1)
			b.WriteString(",\n")
		}
		writeIndent(b, indent)
		b.WriteString("}")
	}
}

func writeIndent(b *strings.Builder, n int) {
	for range n {
		b.WriteString("    ")
	}
}

// quote renders s as a double-quoted Lua string. Control bytes are written
// as three-digit decimal escapes so a following digit cannot extend them.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			d := strconv.Itoa(int(c))
			b.WriteString(`\`)
			b.WriteString(strings.Repeat("0", 3-len(d)))
			b.WriteString(d)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
