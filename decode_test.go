package resp3_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/quick"

	"github.com/mediocregopher/radix/v3/resp/resp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nussjustin/resp3"
)

func assertValue(tb testing.TB, expected, got resp3.Value) {
	tb.Helper()

	if !expected.Equal(got) {
		tb.Errorf("got\n%s\nexpected\n%s", got, expected)
	}
}

func assertValues(tb testing.TB, expected, got []resp3.Value) {
	tb.Helper()

	if len(expected) != len(got) {
		tb.Fatalf("got %d values, expected %d: %v", len(got), len(expected), got)
	}
	for i := range expected {
		assertValue(tb, expected[i], got[i])
	}
}

func TestDecodeValue(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Expected resp3.Value
		In       string
	}{
		{
			Name:     "simple string",
			Expected: resp3.SimpleString("OK"),
			In:       "+OK\r\n",
		},
		{
			Name:     "empty simple string",
			Expected: resp3.SimpleString(""),
			In:       "+\r\n",
		},
		{
			Name:     "simple error",
			Expected: resp3.SimpleError("ERR bad"),
			In:       "-ERR bad\r\n",
		},
		{
			Name:     "number",
			Expected: resp3.Number(1000),
			In:       ":1000\r\n",
		},
		{
			Name:     "negative number",
			Expected: resp3.Number(-5),
			In:       ":-5\r\n",
		},
		{
			Name:     "max number",
			Expected: resp3.Number(math.MaxInt64),
			In:       ":9223372036854775807\r\n",
		},
		{
			Name:     "min number",
			Expected: resp3.Number(math.MinInt64),
			In:       ":-9223372036854775808\r\n",
		},
		{
			Name:     "blob string",
			Expected: resp3.BlobString("hello"),
			In:       "$5\r\nhello\r\n",
		},
		{
			Name:     "empty blob string",
			Expected: resp3.BlobString(""),
			In:       "$0\r\n\r\n",
		},
		{
			Name:     "blob string with CRLF",
			Expected: resp3.BlobString("foo\r\nbar"),
			In:       "$8\r\nfoo\r\nbar\r\n",
		},
		{
			Name:     "blob string with type tags",
			Expected: resp3.BlobString("*1\r\n:2"),
			In:       "$6\r\n*1\r\n:2\r\n",
		},
		{
			Name:     "large blob string",
			Expected: resp3.BlobString(strings.Repeat("hello world", 1000)),
			In:       "$11000\r\n" + strings.Repeat("hello world", 1000) + "\r\n",
		},
		{
			Name:     "null blob string",
			Expected: resp3.Null(),
			In:       "$-1\r\n",
		},
		{
			Name:     "verbatim string",
			Expected: resp3.Value{Type: resp3.TypeVerbatimString, Bytes: []byte("txt:Some string")},
			In:       "=15\r\ntxt:Some string\r\n",
		},
		{
			Name:     "blob error",
			Expected: resp3.Value{Type: resp3.TypeBlobError, Bytes: []byte("SYNTAX invalid\r\nsyntax")},
			In:       "!22\r\nSYNTAX invalid\r\nsyntax\r\n",
		},
		{
			Name:     "null",
			Expected: resp3.Null(),
			In:       "_\r\n",
		},
		{
			Name:     "double",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: 1.23},
			In:       ",1.23\r\n",
		},
		{
			Name:     "double exponent",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: -1.5e10},
			In:       ",-1.5e10\r\n",
		},
		{
			Name:     "double inf",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.Inf(1)},
			In:       ",inf\r\n",
		},
		{
			Name:     "double -inf",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.Inf(-1)},
			In:       ",-inf\r\n",
		},
		{
			Name:     "double nan",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.NaN()},
			In:       ",nan\r\n",
		},
		{
			Name:     "double +inf",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.Inf(1)},
			In:       ",+inf\r\n",
		},
		{
			Name:     "double hex",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.NaN()},
			In:       ",0x1p4\r\n",
		},
		{
			Name:     "double Infinity",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.NaN()},
			In:       ",Infinity\r\n",
		},
		{
			Name:     "malformed double",
			Expected: resp3.Value{Type: resp3.TypeDouble, Float: math.NaN()},
			In:       ",1.2.3\r\n",
		},
		{
			Name:     "boolean true",
			Expected: resp3.Value{Type: resp3.TypeBoolean, Bool: true},
			In:       "#t\r\n",
		},
		{
			Name:     "boolean false",
			Expected: resp3.Value{Type: resp3.TypeBoolean, Bool: false},
			In:       "#f\r\n",
		},
		{
			Name:     "big number",
			Expected: resp3.Value{Type: resp3.TypeBigNumber, Bytes: []byte("12345678901234567890")},
			In:       "(12345678901234567890\r\n",
		},
		{
			Name:     "empty array",
			Expected: resp3.Value{Type: resp3.TypeArray, Elems: []resp3.Value{}},
			In:       "*0\r\n",
		},
		{
			Name:     "null array",
			Expected: resp3.Null(),
			In:       "*-1\r\n",
		},
		{
			Name:     "array",
			Expected: resp3.Array(resp3.BlobString("ECHO"), resp3.BlobString("hey")),
			In:       "*2\r\n$4\r\nECHO\r\n$3\r\nhey\r\n",
		},
		{
			Name: "nested array",
			Expected: resp3.Array(
				resp3.Array(resp3.Number(1), resp3.Number(2), resp3.Number(3)),
				resp3.Array(resp3.SimpleString("Hello"), resp3.SimpleError("World")),
			),
			In: "*2\r\n*3\r\n:1\r\n:2\r\n:3\r\n*2\r\n+Hello\r\n-World\r\n",
		},
		{
			Name: "array with null element",
			Expected: resp3.Array(
				resp3.BlobString("hello"), resp3.Null(), resp3.BlobString("world"),
			),
			In: "*3\r\n$5\r\nhello\r\n$-1\r\n$5\r\nworld\r\n",
		},
		{
			Name: "map",
			Expected: resp3.Value{Type: resp3.TypeMap, Pairs: []resp3.Pair{
				{Key: resp3.SimpleString("first"), Value: resp3.Number(1)},
				{Key: resp3.SimpleString("second"), Value: resp3.Number(2)},
			}},
			In: "%2\r\n+first\r\n:1\r\n+second\r\n:2\r\n",
		},
		{
			Name: "map with aggregate values",
			Expected: resp3.Value{Type: resp3.TypeMap, Pairs: []resp3.Pair{
				{Key: resp3.BlobString("list"), Value: resp3.Array(resp3.Number(1), resp3.Array(resp3.Number(2)))},
				{Key: resp3.Array(resp3.Number(3)), Value: resp3.Value{Type: resp3.TypeMap, Pairs: []resp3.Pair{
					{Key: resp3.Null(), Value: resp3.Value{Type: resp3.TypeBoolean, Bool: true}},
				}}},
			}},
			In: "%2\r\n$4\r\nlist\r\n*2\r\n:1\r\n*1\r\n:2\r\n*1\r\n:3\r\n%1\r\n_\r\n#t\r\n",
		},
		{
			Name:     "set",
			Expected: resp3.Value{Type: resp3.TypeSet, Elems: []resp3.Value{resp3.BlobString("a"), resp3.Number(1)}},
			In:       "~2\r\n$1\r\na\r\n:1\r\n",
		},
		{
			Name: "push",
			Expected: resp3.Value{Type: resp3.TypePush, Elems: []resp3.Value{
				resp3.BlobString("message"), resp3.BlobString("channel"), resp3.BlobString("payload"),
			}},
			In: ">3\r\n$7\r\nmessage\r\n$7\r\nchannel\r\n$7\r\npayload\r\n",
		},
	} {
		test := test

		t.Run(test.Name, func(t *testing.T) {
			got, n, err := resp3.DecodeValue([]byte(test.In + "+trailing\r\n"))
			require.NoError(t, err)
			assert.Equal(t, len(test.In), n)
			assertValue(t, test.Expected, got)
		})
	}
}

func TestDecodeValueIncomplete(t *testing.T) {
	for _, in := range []string{
		"",
		"+",
		"+OK",
		"+OK\r",
		":12",
		"$5",
		"$5\r\n",
		"$5\r\nhel",
		"$5\r\nhello",
		"$5\r\nhello\r",
		"*2\r\n",
		"*2\r\n:1\r\n",
		"*2\r\n:1\r\n*1\r\n",
		"%1\r\n+a\r\n",
		"=7\r\ntxt:fo",
		"!3\r\nER",
	} {
		in := in

		t.Run(in, func(t *testing.T) {
			_, n, err := resp3.DecodeValue([]byte(in))
			assert.Equal(t, resp3.ErrIncomplete, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestDecodeValueMalformed(t *testing.T) {
	for _, test := range []struct {
		Name   string
		Err    error
		Offset int
		In     string
	}{
		{
			Name: "unknown type",
			Err:  resp3.ErrUnexpectedType,
			In:   "A\r\n",
		},
		{
			Name:   "unknown nested type",
			Err:    resp3.ErrUnexpectedType,
			Offset: 8,
			In:     "*2\r\n:1\r\n?\r\n",
		},
		{
			Name:   "no \\r",
			Err:    resp3.ErrUnexpectedEOL,
			Offset: 3,
			In:     "+OK\n",
		},
		{
			Name: "invalid integer",
			Err:  resp3.ErrInvalidInteger,
			In:   ":12a\r\n",
		},
		{
			Name: "integer overflow",
			Err:  resp3.ErrInvalidInteger,
			In:   ":9223372036854775808\r\n",
		},
		{
			Name: "invalid boolean",
			Err:  resp3.ErrInvalidBoolean,
			In:   "#x\r\n",
		},
		{
			Name: "invalid blob string length",
			Err:  resp3.ErrInvalidBulkStringLength,
			In:   "$abc\r\n",
		},
		{
			Name: "negative blob string length",
			Err:  resp3.ErrInvalidBulkStringLength,
			In:   "$-2\r\n",
		},
		{
			Name: "null blob error",
			Err:  resp3.ErrInvalidBulkStringLength,
			In:   "!-1\r\n",
		},
		{
			Name:   "content too long",
			Err:    resp3.ErrUnexpectedEOL,
			Offset: 9,
			In:     "$5\r\nhello world\r\n",
		},
		{
			Name: "invalid array length",
			Err:  resp3.ErrInvalidArrayLength,
			In:   "*a\r\n",
		},
		{
			Name: "negative array length",
			Err:  resp3.ErrInvalidArrayLength,
			In:   "*-2\r\n",
		},
		{
			Name: "streamed array",
			Err:  resp3.ErrInvalidArrayLength,
			In:   "*?\r\n",
		},
		{
			Name: "invalid map length",
			Err:  resp3.ErrInvalidMapLength,
			In:   "%x\r\n",
		},
		{
			Name:   "nested too deep",
			Err:    resp3.ErrNestingTooDeep,
			Offset: resp3.MaxDepth * 4,
			In:     strings.Repeat("*1\r\n", resp3.MaxDepth+1) + ":1\r\n",
		},
		{
			Name:   "nested too deep in map",
			Err:    resp3.ErrNestingTooDeep,
			Offset: resp3.MaxDepth * 4,
			In:     strings.Repeat("%1\r\n", resp3.MaxDepth+1),
		},
	} {
		test := test

		t.Run(test.Name, func(t *testing.T) {
			_, _, err := resp3.DecodeValue([]byte(test.In))
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.Err), "got error %v, expected %v", err, test.Err)

			var perr *resp3.ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, test.Offset, perr.Offset)
		})
	}
}

func TestDecodeValueMaxDepth(t *testing.T) {
	in := strings.Repeat("*1\r\n", resp3.MaxDepth) + ":1\r\n"

	v, n, err := resp3.DecodeValue([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, len(in), n)

	for i := 0; i < resp3.MaxDepth; i++ {
		require.Len(t, v.Elems, 1)
		v = v.Elems[0]
	}
	assertValue(t, resp3.Number(1), v)

	// depth is tracked per value
	got, rest, err := resp3.Decode([]byte(in + in))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, rest)
}

func TestDecodeOrder(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Expected []resp3.Value
		In       string
	}{
		{
			Name: "empty",
			In:   "",
		},
		{
			Name:     "pipelined replies",
			Expected: []resp3.Value{resp3.SimpleString("OK"), resp3.Number(3), resp3.BlobString("v"), resp3.Null()},
			In:       "+OK\r\n:3\r\n$1\r\nv\r\n_\r\n",
		},
		{
			Name: "array followed by message",
			Expected: []resp3.Value{
				resp3.Array(resp3.Number(1), resp3.Number(2)),
				resp3.SimpleString("next"),
			},
			In: "*2\r\n:1\r\n:2\r\n+next\r\n",
		},
		{
			Name: "map followed by messages",
			Expected: []resp3.Value{
				{Type: resp3.TypeMap, Pairs: []resp3.Pair{{Key: resp3.SimpleString("k"), Value: resp3.Number(1)}}},
				resp3.Number(2),
				resp3.Number(3),
			},
			In: "%1\r\n+k\r\n:1\r\n:2\r\n:3\r\n",
		},
		{
			Name: "deeply nested arrays",
			Expected: []resp3.Value{
				resp3.Array(resp3.Array(resp3.Array(resp3.Number(1)), resp3.Number(2)), resp3.Number(3)),
				resp3.Array(resp3.Number(4)),
				resp3.SimpleError("ERR last"),
			},
			In: "*2\r\n*2\r\n*1\r\n:1\r\n:2\r\n:3\r\n*1\r\n:4\r\n-ERR last\r\n",
		},
		{
			Name: "consecutive empty aggregates",
			Expected: []resp3.Value{
				{Type: resp3.TypeArray, Elems: []resp3.Value{}},
				{Type: resp3.TypeMap, Pairs: []resp3.Pair{}},
				{Type: resp3.TypeArray, Elems: []resp3.Value{}},
			},
			In: "*0\r\n%0\r\n*0\r\n",
		},
	} {
		test := test

		t.Run(test.Name, func(t *testing.T) {
			got, rest, err := resp3.Decode([]byte(test.In))
			require.NoError(t, err)
			assert.Empty(t, rest)
			assertValues(t, test.Expected, got)
		})
	}
}

func TestDecodeRest(t *testing.T) {
	got, rest, err := resp3.Decode([]byte("+a\r\n*2\r\n:1\r\n$5\r\nhel"))
	require.NoError(t, err)
	assertValues(t, []resp3.Value{resp3.SimpleString("a")}, got)
	assertBytes(t, rest, "*2\r\n:1\r\n$5\r\nhel")

	got, rest, err = resp3.Decode(append(rest, "lo\r\n:7\r\n"...))
	require.NoError(t, err)
	assert.Empty(t, rest)
	assertValues(t, []resp3.Value{
		resp3.Array(resp3.Number(1), resp3.BlobString("hello")),
		resp3.Number(7),
	}, got)
}

func TestDecodeMalformed(t *testing.T) {
	got, rest, err := resp3.Decode([]byte("+a\r\n:1\r\n@oops\r\n:2\r\n"))
	assertValues(t, []resp3.Value{resp3.SimpleString("a"), resp3.Number(1)}, got)
	assertBytes(t, rest, "@oops\r\n:2\r\n")

	var perr *resp3.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 8, perr.Offset)
	assert.Equal(t, resp3.ErrUnexpectedType, perr.Err)
}

func TestDecodeDoesNotAlias(t *testing.T) {
	in := []byte("*2\r\n$3\r\nfoo\r\n+bar\r\n")

	got, _, err := resp3.Decode(in)
	require.NoError(t, err)

	for i := range in {
		in[i] = 'x'
	}
	assertValues(t, []resp3.Value{resp3.Array(resp3.BlobString("foo"), resp3.SimpleString("bar"))}, got)
}

// TestDecodeCommandRoundTrip decodes encoded commands, which are valid arrays of blob strings.
func TestDecodeCommandRoundTrip(t *testing.T) {
	f := func(args []string, trailing string) bool {
		if len(args) == 0 {
			return true
		}

		b, err := resp3.AppendCommand(nil, args)
		if err != nil {
			return false
		}
		b, _ = resp3.AppendCommand(b, resp3.Command{trailing})

		got, rest, err := resp3.Decode(b)
		if err != nil || len(rest) != 0 || len(got) != 2 {
			return false
		}

		elems := make([]resp3.Value, len(args))
		for i, arg := range args {
			elems[i] = resp3.BlobString(arg)
		}
		return got[0].Equal(resp3.Array(elems...)) && got[1].Equal(resp3.Array(resp3.BlobString(trailing)))
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// TestDecodeOtherWriter decodes replies marshaled by an independent RESP2 implementation.
func TestDecodeOtherWriter(t *testing.T) {
	var buf bytes.Buffer
	for _, m := range []interface {
		MarshalRESP(w io.Writer) error
	}{
		resp2.SimpleString{S: "OK"},
		resp2.Error{E: errors.New("ERR unknown command 'FOO'")},
		resp2.Int{I: math.MaxInt64},
		resp2.BulkString{S: "hello\r\nworld"},
		resp2.BulkStringBytes{B: nil},
		resp2.ArrayHeader{N: 2},
		resp2.Int{I: -1},
		resp2.Any{I: []string{"a", "b"}},
	} {
		require.NoError(t, m.MarshalRESP(&buf))
	}

	got, rest, err := resp3.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assertValues(t, []resp3.Value{
		resp3.SimpleString("OK"),
		resp3.SimpleError("ERR unknown command 'FOO'"),
		resp3.Number(math.MaxInt64),
		resp3.BlobString("hello\r\nworld"),
		resp3.Null(),
		resp3.Array(resp3.Number(-1), resp3.Array(resp3.BlobString("a"), resp3.BlobString("b"))),
	}, got)
}

func BenchmarkDecode(b *testing.B) {
	for _, test := range []struct {
		Name string
		In   string
	}{
		{
			Name: "simple",
			In:   "+OK\r\n",
		},
		{
			Name: "pipeline",
			In:   strings.Repeat(":1\r\n$5\r\nhello\r\n", 100),
		},
		{
			Name: "nested",
			In:   strings.Repeat("*2\r\n", 100) + strings.Repeat(":1\r\n", 101),
		},
	} {
		in := []byte(test.In)

		b.Run(test.Name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, _, err := resp3.Decode(in); err != nil {
					b.Fatalf("decode failed: %s", err)
				}
			}
		})
	}
}
