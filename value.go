package resp3

import (
	"bytes"
	"math/big"
	"strconv"
	"strings"
)

// Command is a single Redis command as an ordered list of binary safe arguments, starting with the command name.
type Command []string

// String returns the arguments joined by spaces. It is meant for logs and error messages only.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// Value is a single decoded RESP value.
//
// Which fields are set depends on Type:
//
//	TypeSimpleString, TypeBlobString, TypeVerbatimString  Bytes
//	TypeSimpleError, TypeBlobError                         Bytes
//	TypeBigNumber                                          Bytes, holding the decimal text
//	TypeNumber                                             Int
//	TypeDouble                                             Float
//	TypeBoolean                                            Bool
//	TypeArray, TypeSet, TypePush                           Elems
//	TypeMap                                                Pairs
//	TypeNull                                               none
type Value struct {
	Type  Type
	Bytes []byte
	Int   int64
	Float float64
	Bool  bool
	Elems []Value
	Pairs []Pair
}

// Pair is a single key-value entry of a map.
type Pair struct {
	Key   Value
	Value Value
}

// IsNull reports whether v is a null value.
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// IsError reports whether v is a simple or blob error.
func (v Value) IsError() bool {
	return v.Type == TypeSimpleError || v.Type == TypeBlobError
}

// IsString reports whether v holds a simple, blob or verbatim string.
func (v Value) IsString() bool {
	switch v.Type {
	case TypeSimpleString, TypeBlobString, TypeVerbatimString:
		return true
	default:
		return false
	}
}

// IsAggregate reports whether v is an array, set, push or map.
func (v Value) IsAggregate() bool {
	switch v.Type {
	case TypeArray, TypeSet, TypePush, TypeMap:
		return true
	default:
		return false
	}
}

// Err returns the error reply held by v as *Error or nil if v is not an error.
func (v Value) Err() error {
	if !v.IsError() {
		return nil
	}
	return &Error{Blob: v.Type == TypeBlobError, Message: string(v.Bytes)}
}

// Text returns the payload of a string value. For verbatim strings the format prefix is removed.
func (v Value) Text() (string, bool) {
	switch v.Type {
	case TypeSimpleString, TypeBlobString:
		return string(v.Bytes), true
	case TypeVerbatimString:
		_, text, _ := v.Verbatim()
		return text, true
	default:
		return "", false
	}
}

// Verbatim splits a verbatim string into its three byte format (for example "txt" or "mkd") and the text.
func (v Value) Verbatim() (format, text string, ok bool) {
	if v.Type != TypeVerbatimString {
		return "", "", false
	}
	if len(v.Bytes) < 4 || v.Bytes[3] != ':' {
		return "", string(v.Bytes), true
	}
	return string(v.Bytes[:3]), string(v.Bytes[4:]), true
}

// BigInt parses the decimal text of a big number.
func (v Value) BigInt() (*big.Int, bool) {
	if v.Type != TypeBigNumber {
		return nil, false
	}
	return new(big.Int).SetString(string(v.Bytes), 10)
}

// String returns a human readable representation of v in the style of redis-cli.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb, "")
	return sb.String()
}

func (v Value) format(sb *strings.Builder, indent string) {
	switch v.Type {
	case TypeSimpleString:
		sb.Write(v.Bytes)
	case TypeBlobString, TypeVerbatimString:
		text, _ := v.Text()
		sb.WriteString(strconv.Quote(text))
	case TypeSimpleError, TypeBlobError:
		sb.WriteString("(error) ")
		sb.Write(v.Bytes)
	case TypeNumber:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case TypeDouble:
		sb.WriteString("(double) ")
		sb.WriteString(formatDouble(v.Float))
	case TypeBigNumber:
		sb.WriteString("(big number) ")
		sb.Write(v.Bytes)
	case TypeBoolean:
		if v.Bool {
			sb.WriteString("(true)")
		} else {
			sb.WriteString("(false)")
		}
	case TypeNull:
		sb.WriteString("(nil)")
	case TypeArray, TypeSet, TypePush:
		if len(v.Elems) == 0 {
			sb.WriteString("(empty ")
			sb.WriteString(v.Type.String())
			sb.WriteByte(')')
			return
		}
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteByte('\n')
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			sb.WriteString(prefix)
			e.format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	case TypeMap:
		if len(v.Pairs) == 0 {
			sb.WriteString("(empty map)")
			return
		}
		for i, p := range v.Pairs {
			if i > 0 {
				sb.WriteByte('\n')
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + "# "
			sb.WriteString(prefix)
			p.Key.format(sb, indent+strings.Repeat(" ", len(prefix)))
			sb.WriteString(" => ")
			p.Value.format(sb, indent+strings.Repeat(" ", len(prefix)+4))
		}
	default:
		sb.WriteString("(invalid)")
	}
}

// Equal reports whether v and o hold the same type and payload. Doubles compare NaN as equal to NaN.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}

	switch v.Type {
	case TypeNumber:
		return v.Int == o.Int
	case TypeDouble:
		if v.Float != v.Float {
			return o.Float != o.Float
		}
		return v.Float == o.Float
	case TypeBoolean:
		return v.Bool == o.Bool
	case TypeNull:
		return true
	case TypeArray, TypeSet, TypePush:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.Pairs) != len(o.Pairs) {
			return false
		}
		for i := range v.Pairs {
			if !v.Pairs[i].Key.Equal(o.Pairs[i].Key) || !v.Pairs[i].Value.Equal(o.Pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.Bytes, o.Bytes)
	}
}

// Error is an error reply sent by the server.
type Error struct {
	// Blob is true if the error was sent as blob error instead of a simple error.
	Blob bool

	// Message is the full error message including the error code, e.g. "ERR unknown command".
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Prefix returns the error code at the start of the message, e.g. ERR or WRONGTYPE.
func (e *Error) Prefix() string {
	if i := strings.IndexByte(e.Message, ' '); i >= 0 {
		return e.Message[:i]
	}
	return e.Message
}

// Convenience constructors, mostly useful for servers and tests.

// SimpleString returns a simple string value.
func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Bytes: []byte(s)} }

// BlobString returns a blob string value.
func BlobString(s string) Value { return Value{Type: TypeBlobString, Bytes: []byte(s)} }

// SimpleError returns a simple error value.
func SimpleError(s string) Value { return Value{Type: TypeSimpleError, Bytes: []byte(s)} }

// Number returns a number value.
func Number(n int64) Value { return Value{Type: TypeNumber, Int: n} }

// Null returns a null value.
func Null() Value { return Value{Type: TypeNull} }

// Array returns an array value of the given elements.
func Array(elems ...Value) Value { return Value{Type: TypeArray, Elems: elems} }
