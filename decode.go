package resp3

import (
	"bytes"
	"errors"
	"math"
	"strconv"
)

// DecodeValue decodes the first top-level value in b and returns it together with the number of bytes consumed.
//
// If b does not contain a complete value, ErrIncomplete is returned. If b is malformed the error is a *ProtocolError.
//
// The returned value does not reference b.
func DecodeValue(b []byte) (Value, int, error) {
	d := decoder{b: b}
	v, err := d.value()
	if err != nil {
		return Value{}, 0, err
	}
	return v, d.off, nil
}

// Decode decodes all complete top-level values in b in the order in which they appear.
//
// A trailing incomplete value is not an error. Its bytes are returned as rest, so that the caller can append more
// data and decode again. If b ends on a value boundary, rest is empty.
//
// On malformed input Decode returns the values decoded before the malformed one together with a *ProtocolError.
func Decode(b []byte) (values []Value, rest []byte, err error) {
	d := decoder{b: b}
	for d.off < len(d.b) {
		start := d.off

		v, err := d.value()
		if err == ErrIncomplete {
			d.off = start
			break
		}
		if err != nil {
			return values, b[start:], err
		}

		values = append(values, v)
	}
	return values, b[d.off:], nil
}

// MaxDepth is the maximum nesting depth of aggregates accepted by the decoder.
const MaxDepth = 512

type decoder struct {
	b     []byte
	off   int
	depth int
}

func (d *decoder) fail(offset int, err error) error {
	return &ProtocolError{Offset: offset, Err: err}
}

// line returns the bytes between the current offset and the next \r\n and moves the offset past the \r\n.
func (d *decoder) line() ([]byte, error) {
	i := bytes.IndexByte(d.b[d.off:], '\n')
	if i < 0 {
		return nil, ErrIncomplete
	}
	if i == 0 || d.b[d.off+i-1] != '\r' {
		return nil, d.fail(d.off+i, ErrUnexpectedEOL)
	}
	line := d.b[d.off : d.off+i-1]
	d.off += i + 1
	return line, nil
}

// payload returns the next n bytes followed by \r\n.
func (d *decoder) payload(n int) ([]byte, error) {
	if n > len(d.b)-d.off-2 {
		return nil, ErrIncomplete
	}
	end := d.off + n
	if d.b[end] != '\r' || d.b[end+1] != '\n' {
		return nil, d.fail(end, ErrUnexpectedEOL)
	}
	p := bytes.Clone(d.b[d.off:end])
	d.off = end + 2
	return p, nil
}

// parseLength parses a length header, which is either -1 or a non-negative decimal number. It does not allocate.
func parseLength(line []byte) (int, bool) {
	if len(line) == 2 && line[0] == '-' && line[1] == '1' {
		return -1, true
	}
	if len(line) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range line {
		if c < '0' || c > '9' || n > (math.MaxInt-9)/10 {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// parseDouble accepts inf, +inf, -inf and decimal literals with an optional exponent. Anything else, including nan,
// becomes NaN instead of an error.
func parseDouble(line []byte) float64 {
	switch string(line) {
	case "inf", "+inf":
		return math.Inf(1)
	case "-inf":
		return math.Inf(-1)
	}
	for _, c := range line {
		if (c < '0' || c > '9') && c != '-' && c != '+' && c != '.' && c != 'e' && c != 'E' {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(string(line), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// minElemSize is the size of the smallest encoded value ("_\r\n"). It limits preallocation for aggregates.
const minElemSize = 3

func (d *decoder) capFor(n int) int {
	if m := (len(d.b) - d.off) / minElemSize; n > m {
		return m
	}
	return n
}

func (d *decoder) value() (Value, error) {
	start := d.off
	if start >= len(d.b) {
		return Value{}, ErrIncomplete
	}

	t := types[d.b[start]]
	if t == TypeInvalid {
		return Value{}, d.fail(start, ErrUnexpectedType)
	}
	d.off++

	line, err := d.line()
	if err != nil {
		return Value{}, err
	}

	switch t {
	case TypeSimpleString, TypeSimpleError, TypeBigNumber:
		return Value{Type: t, Bytes: bytes.Clone(line)}, nil
	case TypeNumber:
		n, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, d.fail(start, ErrInvalidInteger)
		}
		return Value{Type: t, Int: n}, nil
	case TypeDouble:
		return Value{Type: t, Float: parseDouble(line)}, nil
	case TypeBoolean:
		switch string(line) {
		case "t":
			return Value{Type: t, Bool: true}, nil
		case "f":
			return Value{Type: t, Bool: false}, nil
		default:
			return Value{}, d.fail(start, ErrInvalidBoolean)
		}
	case TypeNull:
		return Value{Type: t}, nil
	case TypeBlobString, TypeBlobError, TypeVerbatimString:
		n, ok := parseLength(line)
		if !ok || (n == -1 && t != TypeBlobString) {
			return Value{}, d.fail(start, ErrInvalidBulkStringLength)
		}
		if n == -1 {
			return Value{Type: TypeNull}, nil
		}
		p, err := d.payload(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Bytes: p}, nil
	case TypeArray, TypeSet, TypePush:
		n, ok := parseLength(line)
		if !ok {
			return Value{}, d.fail(start, ErrInvalidArrayLength)
		}
		if n == -1 {
			return Value{Type: TypeNull}, nil
		}
		if d.depth >= MaxDepth {
			return Value{}, d.fail(start, ErrNestingTooDeep)
		}
		d.depth++
		elems := make([]Value, 0, d.capFor(n))
		for i := 0; i < n; i++ {
			e, err := d.value()
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, e)
		}
		d.depth--
		return Value{Type: t, Elems: elems}, nil
	case TypeMap:
		n, ok := parseLength(line)
		if !ok {
			return Value{}, d.fail(start, ErrInvalidMapLength)
		}
		if n == -1 {
			return Value{Type: TypeNull}, nil
		}
		if d.depth >= MaxDepth {
			return Value{}, d.fail(start, ErrNestingTooDeep)
		}
		d.depth++
		pairs := make([]Pair, 0, d.capFor(n)/2)
		for i := 0; i < n; i++ {
			k, err := d.value()
			if err != nil {
				return Value{}, err
			}
			v, err := d.value()
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
		d.depth--
		return Value{Type: t, Pairs: pairs}, nil
	default:
		return Value{}, d.fail(start, ErrUnexpectedType)
	}
}
