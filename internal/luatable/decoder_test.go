package luatable

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `-- we can read Lua syntax here!
return {
    ["annotations"] = {
        [1] = {
            ["chapter"] = "Chapter 1",
            ["datetime"] = "2026-01-25 10:30:00",
            ["pageno"] = 42,
            ["text"] = "This is a highlighted text",
        },
        [2] = {
            ["chapter"] = "Chapter 2",
            ["datetime"] = "2026-01-26 14:00:00",
            ["note"] = "a \"quoted\" note\nsecond line",
            ["pageno"] = 100,
            ["text"] = "Another highlight",
        },
    },
    ["doc_props"] = {
        ["authors"] = "Test Author",
        ["title"] = "Test Book",
    },
    ["percent_finished"] = 0.4215,
    ["summary"] = {
        ["status"] = "reading",
    },
}
`

func TestDecode_KOReaderMetadata(t *testing.T) {
	v, err := Decode(sampleMetadata)
	require.NoError(t, err)

	root, ok := v.(*Mapping)
	require.True(t, ok, "root should be a mapping, got %s", v.Kind())
	assert.Equal(t, 4, root.Len())

	props, ok := root.GetMapping("doc_props")
	require.True(t, ok)
	title, ok := props.GetString("title")
	assert.True(t, ok)
	assert.Equal(t, "Test Book", title)

	annotations, ok := root.GetMapping("annotations")
	require.True(t, ok)
	require.Equal(t, 2, annotations.Len())
	assert.True(t, annotations.Fields[0].Numeric)
	assert.Equal(t, "1", annotations.Fields[0].Key)

	second, ok := annotations.Fields[1].Value.(*Mapping)
	require.True(t, ok)
	note, ok := second.GetString("note")
	assert.True(t, ok)
	assert.Equal(t, "a \"quoted\" note\nsecond line", note)

	page, ok := second.Get("pageno")
	require.True(t, ok)
	n, err := page.(Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	pct, ok := root.Get("percent_finished")
	require.True(t, ok)
	f, err := pct.(Number).Float64()
	require.NoError(t, err)
	assert.InDelta(t, 0.4215, f, 1e-9)
}

func TestDecode_Scalars(t *testing.T) {
	v, err := Decode(`{ true, false, nil, -12, 3.5e2, 0x1F, -0.25, 'single', "double" }`)
	require.NoError(t, err)

	seq, ok := v.(Sequence)
	require.True(t, ok)
	require.Len(t, seq, 9)

	assert.Equal(t, Bool(true), seq[0])
	assert.Equal(t, Bool(false), seq[1])
	assert.Equal(t, Null{}, seq[2])

	i, err := seq[3].(Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-12), i)

	f, err := seq[4].(Number).Float64()
	require.NoError(t, err)
	assert.Equal(t, 350.0, f)

	hex, err := seq[5].(Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(31), hex)

	f, err = seq[6].(Number).Float64()
	require.NoError(t, err)
	assert.Equal(t, -0.25, f)

	assert.Equal(t, String("single"), seq[7])
	assert.Equal(t, String("double"), seq[8])
}

func TestDecode_LargeIntegerKeepsPrecision(t *testing.T) {
	v, err := Decode(`{ ["time"] = 1737800000123456789 }`)
	require.NoError(t, err)

	raw, ok := v.(*Mapping).Get("time")
	require.True(t, ok)
	n, err := raw.(Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1737800000123456789), n)
}

func TestDecode_StringEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"named escapes", `{ "a\tb\\c\"d\'e" }`, "a\tb\\c\"d'e"},
		{"decimal escape", `{ "\65\066\0677" }`, "ABC7"},
		{"hex escape", `{ "\x41\x42" }`, "AB"},
		{"unicode escape", `{ "caf\u{E9}" }`, "café"},
		{"backslash newline", "{ \"one\\\ntwo\" }", "one\ntwo"},
		{"z skips whitespace", "{ \"one\\z\n      two\" }", "onetwo"},
		{"utf-8 passthrough", `{ "Тест 書" }`, "Тест 書"},
		{"long bracket", "{ [[\nfirst\nsecond]] }", "first\nsecond"},
		{"leveled long bracket", `{ [==[a]]b]==] }`, "a]]b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.input)
			require.NoError(t, err)
			seq, ok := v.(Sequence)
			require.True(t, ok)
			require.Len(t, seq, 1)
			assert.Equal(t, String(tt.want), seq[0])
		})
	}
}

func TestDecode_TolerantSyntax(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"trailing comma", `{ ["a"] = 1, }`},
		{"semicolon separators", `{ ["a"] = 1; ["b"] = 2; }`},
		{"identifier keys", `{ a = 1, b_2 = "x" }`},
		{"line comments", "-- header\nreturn { -- inline\n [\"a\"] = 1, -- trailing\n}\n-- footer"},
		{"block comment", "--[[ multi\nline ]] return { --[==[ x ]==] [\"a\"] = 1 }"},
		{"trailing semicolon", `return { ["a"] = 1 };`},
		{"no return keyword", `{ ["a"] = 1 }`},
		{"byte order mark", "\xef\xbb\xbfreturn { [\"a\"] = 1 }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.input)
			require.NoError(t, err)
			m, ok := v.(*Mapping)
			require.True(t, ok)
			_, ok = m.Get("a")
			assert.True(t, ok)
		})
	}
}

func TestDecode_NumericKeysDistinctFromSequence(t *testing.T) {
	v, err := Decode(`{ [1] = "a", [2] = "b" }`)
	require.NoError(t, err)
	m, ok := v.(*Mapping)
	require.True(t, ok, "explicit numeric keys must decode as a mapping")
	assert.True(t, m.Fields[0].Numeric)

	v, err = Decode(`{ ["1"] = "a" }`)
	require.NoError(t, err)
	assert.False(t, v.(*Mapping).Fields[0].Numeric)

	v, err = Decode(`{ "a", "b" }`)
	require.NoError(t, err)
	_, ok = v.(Sequence)
	assert.True(t, ok)
}

func TestDecode_MixedTableGetsImplicitIndices(t *testing.T) {
	v, err := Decode(`{ "first", ["name"] = "x", "second" }`)
	require.NoError(t, err)

	m, ok := v.(*Mapping)
	require.True(t, ok)
	require.Equal(t, 3, m.Len())
	assert.Equal(t, Field{Key: "1", Numeric: true, Value: String("first")}, m.Fields[0])
	assert.Equal(t, "name", m.Fields[1].Key)
	assert.Equal(t, Field{Key: "2", Numeric: true, Value: String("second")}, m.Fields[2])
}

func TestDecode_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	v, err := Decode(`{ ["a"] = 1, ["b"] = 2, ["a"] = 3 }`)
	require.NoError(t, err)

	m := v.(*Mapping)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "a", m.Fields[0].Key)
	assert.Equal(t, Number{Text: "3"}, m.Fields[0].Value)
}

func TestDecode_EmptyTable(t *testing.T) {
	v, err := Decode(`return {}`)
	require.NoError(t, err)
	m, ok := v.(*Mapping)
	require.True(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		message string
	}{
		{"unterminated string", "return {\n [\"a\"] = \"oops }", 2, "unterminated string literal"},
		{"missing closing brace", "return {\n [\"a\"] = {\n  [\"b\"] = 1,\n }\n", 5, "is not closed"},
		{"extra closing brace", "return { [\"a\"] = 1 } }", 1, "after top-level table"},
		{"raw newline in string", "return { \"line\nbreak\" }", 1, "unescaped control character 0x0a"},
		{"raw tab in string", "return { \"a\tb\" }", 1, "unescaped control character 0x09"},
		{"scalar at top level", "return 42", 1, "expected a table"},
		{"two tables", "return {} {}", 1, "after top-level table"},
		{"empty input", "   ", 1, "expected a table"},
		{"missing separator", "{ [\"a\"] = 1 [\"b\"] = 2 }", 1, "expected ',' or '}'"},
		{"bad escape", `{ "\q" }`, 1, "invalid escape"},
		{"malformed number", `{ 12abc }`, 1, "malformed number"},
		{"unknown identifier", `{ maybe }`, 1, "unexpected identifier"},
		{"missing equals", `{ ["a"] 1 }`, 1, "expected '='"},
		{"table as key", `{ [{}] = 1 }`, 1, "table not allowed here"},
		{"unterminated block comment", "--[[ never closed\nreturn {}", 1, "unterminated block comment"},
		{"leading comma", `{ , }`, 1, "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Msg, tt.message)
			assert.GreaterOrEqual(t, perr.Offset, 0)
			assert.LessOrEqual(t, perr.Offset, len(tt.input))
		})
	}
}

func TestDecode_ErrorPosition(t *testing.T) {
	input := "return {\n    [\"a\"] = @,\n}"
	_, err := Decode(input)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, 13, perr.Column)
	assert.Equal(t, strings.Index(input, "@"), perr.Offset)
}

func TestDecode_TruncatedMidTable(t *testing.T) {
	truncated := sampleMetadata[:strings.Index(sampleMetadata, "[\"doc_props\"]")+20]
	_, err := Decode(truncated)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, len(truncated), perr.Offset)
}

func TestDecode_MaxDepth(t *testing.T) {
	nested := func(depth int) string {
		return strings.Repeat("{", depth) + strings.Repeat("}", depth)
	}

	_, err := Decode(nested(DefaultMaxDepth))
	assert.NoError(t, err)

	_, err = Decode(nested(DefaultMaxDepth + 1))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Msg, "maximum depth")

	_, err = Decode(nested(10), WithMaxDepth(5))
	assert.Error(t, err)
}

func TestDecode_DeepNestingDoesNotRecurse(t *testing.T) {
	const depth = 200_000
	v, err := Decode(strings.Repeat("{", depth)+strings.Repeat("}", depth), WithMaxDepth(depth))
	require.NoError(t, err)
	assert.Equal(t, KindSequence, v.Kind())

	_, err = Decode(strings.Repeat("{", depth), WithMaxDepth(depth))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestRoundTrip(t *testing.T) {
	trees := []Value{
		&Mapping{},
		Sequence{Number{Text: "1"}, Number{Text: "-2.5"}, String("x")},
		&Mapping{Fields: []Field{
			{Key: "doc_props", Value: &Mapping{Fields: []Field{
				{Key: "title", Value: String("Quotes \" and \\ slashes")},
				{Key: "authors", Value: String("Line\nbreaks\tand\x01control\x7f9")},
			}}},
			{Key: "annotations", Value: &Mapping{Fields: []Field{
				{Key: "1", Numeric: true, Value: &Mapping{Fields: []Field{
					{Key: "datetime", Value: String("2026-01-25 10:30:00")},
					{Key: "pageno", Value: Number{Text: "42"}},
					{Key: "highlighted", Value: Bool(true)},
					{Key: "removed", Value: Null{}},
				}}},
				{Key: "2", Numeric: true, Value: Sequence{Bool(false), String("")}},
			}}},
			{Key: "1", Value: String("string key that looks numeric")},
			{Key: "ratio", Value: Number{Text: "1e-3"}},
		}},
	}

	for i, tree := range trees {
		encoded := Encode(tree)
		decoded, err := Decode(encoded)
		require.NoError(t, err, "tree %d:\n%s", i, encoded)
		assert.True(t, Equal(tree, decoded), "tree %d did not round-trip:\n%s", i, encoded)
	}
}

func TestRoundTrip_DeepTree(t *testing.T) {
	var tree Value = String("leaf")
	for i := 0; i < 300; i++ {
		tree = &Mapping{Fields: []Field{{Key: "child", Value: tree}}}
	}

	decoded, err := Decode(Encode(tree))
	require.NoError(t, err)
	assert.True(t, Equal(tree, decoded))
}

func TestMapping_Lookup(t *testing.T) {
	m := &Mapping{Fields: []Field{
		{Key: "1", Numeric: true, Value: String("numeric")},
		{Key: "author", Value: String("A")},
		{Key: "1", Value: String("string")},
	}}

	v, key, ok := m.Lookup("authors", "author")
	assert.True(t, ok)
	assert.Equal(t, "author", key)
	assert.Equal(t, String("A"), v)

	_, _, ok = m.Lookup("missing")
	assert.False(t, ok)

	v, ok = m.Get("1")
	assert.True(t, ok)
	assert.Equal(t, String("string"), v, "string keys win over numeric ones")

	_, ok = m.GetMapping("author")
	assert.False(t, ok, "typed accessors report a kind mismatch as a miss")
}

func TestItems(t *testing.T) {
	assert.Len(t, Items(Sequence{String("a"), String("b")}), 2)
	assert.Len(t, Items(&Mapping{Fields: []Field{{Key: "x", Value: Null{}}}}), 1)
	assert.Nil(t, Items(String("not a table")))
}
