package resp3

import (
	"io"
	"math"
	"strconv"
)

// AppendCommand appends the wire encoding of cmd to dst and returns the extended slice.
//
// The command is encoded as an array of blob strings. If cmd is empty, ErrEmptyCommand is returned and dst is
// returned unchanged.
func AppendCommand(dst []byte, cmd Command) ([]byte, error) {
	if len(cmd) == 0 {
		return dst, ErrEmptyCommand
	}

	dst = append(dst, byte(TypeArray))
	dst = strconv.AppendInt(dst, int64(len(cmd)), 10)
	dst = append(dst, '\r', '\n')
	for _, arg := range cmd {
		dst = appendBlob(dst, TypeBlobString, arg)
	}
	return dst, nil
}

// Encode returns the concatenated wire encoding of the given commands.
//
// At least one command must be given and no command may be empty. Nothing is encoded if any command is invalid.
func Encode(cmds ...Command) ([]byte, error) {
	if len(cmds) == 0 {
		return nil, ErrEmptyPipeline
	}

	var dst []byte
	for _, cmd := range cmds {
		var err error
		if dst, err = AppendCommand(dst, cmd); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendBlob(dst []byte, prefix Type, s string) []byte {
	dst = append(dst, byte(prefix))
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, '\r', '\n')
	dst = append(dst, s...)
	return append(dst, '\r', '\n')
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// Writer wraps an io.Writer and provides methods for writing the RESP protocol.
//
// Every method except WriteValue results in exactly one call to the Write method of the underlying io.Writer.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a *Writer that uses the given io.Writer for writes.
func NewWriter(w io.Writer) *Writer {
	var rw Writer
	rw.Reset(w)
	return &rw
}

var _ io.Writer = (*Writer)(nil)

// Reset sets the underlying io.Writer to w and resets all internal state.
func (rw *Writer) Reset(w io.Writer) {
	rw.buf = rw.buf[:0]
	rw.w = w
}

func (rw *Writer) flush() (int, error) {
	return rw.w.Write(rw.buf)
}

func (rw *Writer) writeLine(prefix Type, s string) (int, error) {
	rw.buf = rw.buf[:0]
	rw.buf = append(rw.buf, byte(prefix))
	rw.buf = append(rw.buf, s...)
	rw.buf = append(rw.buf, '\r', '\n')

	return rw.flush()
}

func (rw *Writer) writeNumber(prefix Type, n int64) (int, error) {
	rw.buf = rw.buf[:0]
	rw.buf = append(rw.buf, byte(prefix))
	rw.buf = strconv.AppendInt(rw.buf, n, 10)
	rw.buf = append(rw.buf, '\r', '\n')

	return rw.flush()
}

func (rw *Writer) writeBlob(prefix Type, s string) (int, error) {
	rw.buf = appendBlob(rw.buf[:0], prefix, s)

	return rw.flush()
}

// Write allows writing raw data to the underlying io.Writer.
//
// It implements the io.Writer interface.
func (rw *Writer) Write(dst []byte) (int, error) {
	return rw.w.Write(dst)
}

// WriteCommand writes cmd as an array of blob strings.
//
// If cmd is empty, ErrEmptyCommand is returned and nothing is written.
func (rw *Writer) WriteCommand(cmd Command) (int, error) {
	buf, err := AppendCommand(rw.buf[:0], cmd)
	if err != nil {
		return 0, err
	}
	rw.buf = buf

	return rw.flush()
}

// WriteCommands writes all commands using a single write.
//
// If no command is given or any command is empty, an error is returned and nothing is written.
func (rw *Writer) WriteCommands(cmds ...Command) (int, error) {
	if len(cmds) == 0 {
		return 0, ErrEmptyPipeline
	}

	rw.buf = rw.buf[:0]
	for _, cmd := range cmds {
		buf, err := AppendCommand(rw.buf, cmd)
		if err != nil {
			return 0, err
		}
		rw.buf = buf
	}

	return rw.flush()
}

// WriteArrayHeader writes an array header for an array of length n.
//
// If n is < 0, ErrInvalidArrayLength is returned. Use WriteNull to write a null array.
func (rw *Writer) WriteArrayHeader(n int) (int, error) {
	if n < 0 {
		return 0, ErrInvalidArrayLength
	}
	return rw.writeNumber(TypeArray, int64(n))
}

// WriteSetHeader writes a set header for a set with n elements.
func (rw *Writer) WriteSetHeader(n int) (int, error) {
	if n < 0 {
		return 0, ErrInvalidArrayLength
	}
	return rw.writeNumber(TypeSet, int64(n))
}

// WritePushHeader writes a push header for a push message with n elements.
func (rw *Writer) WritePushHeader(n int) (int, error) {
	if n < 0 {
		return 0, ErrInvalidArrayLength
	}
	return rw.writeNumber(TypePush, int64(n))
}

// WriteMapHeader writes a map header for a map with n key-value pairs.
func (rw *Writer) WriteMapHeader(n int) (int, error) {
	if n < 0 {
		return 0, ErrInvalidMapLength
	}
	return rw.writeNumber(TypeMap, int64(n))
}

// WriteBigNumber writes the decimal string s unvalidated as a big number.
func (rw *Writer) WriteBigNumber(s string) (int, error) {
	return rw.writeLine(TypeBigNumber, s)
}

// WriteBlobError writes s as binary safe error.
func (rw *Writer) WriteBlobError(s string) (int, error) {
	return rw.writeBlob(TypeBlobError, s)
}

// WriteBlobString writes s as blob string.
func (rw *Writer) WriteBlobString(s string) (int, error) {
	return rw.writeBlob(TypeBlobString, s)
}

// WriteBoolean writes b as #t or #f.
func (rw *Writer) WriteBoolean(b bool) (int, error) {
	if b {
		return rw.writeLine(TypeBoolean, "t")
	}
	return rw.writeLine(TypeBoolean, "f")
}

// WriteDouble writes f as double, using inf, -inf and nan for the special values.
func (rw *Writer) WriteDouble(f float64) (int, error) {
	return rw.writeLine(TypeDouble, formatDouble(f))
}

var nullBytes = []byte("_\r\n")

// WriteNull writes a RESP3 null.
func (rw *Writer) WriteNull() (int, error) {
	return rw.w.Write(nullBytes)
}

// WriteNumber writes the number n.
func (rw *Writer) WriteNumber(n int64) (int, error) {
	return rw.writeNumber(TypeNumber, n)
}

// WriteSimpleError writes the string s unvalidated as a simple error.
func (rw *Writer) WriteSimpleError(s string) (int, error) {
	return rw.writeLine(TypeSimpleError, s)
}

// WriteSimpleString writes the string s unvalidated as a simple string.
func (rw *Writer) WriteSimpleString(s string) (int, error) {
	return rw.writeLine(TypeSimpleString, s)
}

// WriteVerbatimString writes s as verbatim string with the given three byte format.
func (rw *Writer) WriteVerbatimString(format, s string) (int, error) {
	return rw.writeBlob(TypeVerbatimString, format+":"+s)
}

// WriteValue writes v including all nested values. Aggregates are written using one write per element.
func (rw *Writer) WriteValue(v Value) (int, error) {
	switch v.Type {
	case TypeSimpleString, TypeSimpleError, TypeBigNumber:
		return rw.writeLine(v.Type, string(v.Bytes))
	case TypeBlobString, TypeBlobError, TypeVerbatimString:
		return rw.writeBlob(v.Type, string(v.Bytes))
	case TypeNumber:
		return rw.WriteNumber(v.Int)
	case TypeDouble:
		return rw.WriteDouble(v.Float)
	case TypeBoolean:
		return rw.WriteBoolean(v.Bool)
	case TypeNull:
		return rw.WriteNull()
	case TypeArray, TypeSet, TypePush:
		n, err := rw.writeNumber(v.Type, int64(len(v.Elems)))
		if err != nil {
			return n, err
		}
		for _, e := range v.Elems {
			m, err := rw.WriteValue(e)
			n += m
			if err != nil {
				return n, err
			}
		}
		return n, nil
	case TypeMap:
		n, err := rw.WriteMapHeader(len(v.Pairs))
		if err != nil {
			return n, err
		}
		for _, p := range v.Pairs {
			m, err := rw.WriteValue(p.Key)
			n += m
			if err != nil {
				return n, err
			}
			m, err = rw.WriteValue(p.Value)
			n += m
			if err != nil {
				return n, err
			}
		}
		return n, nil
	default:
		return 0, ErrUnexpectedType
	}
}
