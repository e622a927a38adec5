package resp3

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrEmptyCommand is returned when encoding or sending a command without any arguments.
	ErrEmptyCommand = errors.New("command must have at least one argument")

	// ErrEmptyPipeline is returned when encoding or sending a pipeline without any commands.
	ErrEmptyPipeline = errors.New("pipeline must contain at least one command")

	// ErrIncomplete is returned by DecodeValue when the buffer ends before the value is complete.
	ErrIncomplete = errors.New("incomplete message")

	// ErrInvalidArrayLength is returned when reading an array, set or push header with an invalid length.
	ErrInvalidArrayLength = errors.New("array length must be >= -1")

	// ErrInvalidMapLength is returned when reading a map header with an invalid length.
	ErrInvalidMapLength = errors.New("map length must be >= -1")

	// ErrInvalidBulkStringLength is returned when reading a length-prefixed string with an invalid length.
	ErrInvalidBulkStringLength = errors.New("bulk string length must be >= -1")

	// ErrInvalidBoolean is returned when decoding a boolean that is neither t nor f.
	ErrInvalidBoolean = errors.New("invalid boolean")

	// ErrInvalidInteger is returned when decoding an invalid integer.
	ErrInvalidInteger = errors.New("invalid integer")

	// ErrUnexpectedEOL is returned when a line or a length-prefixed payload does not end in \r\n.
	ErrUnexpectedEOL = errors.New("missing or invalid EOL")

	// ErrUnexpectedType is returned when encountering an unknown type.
	ErrUnexpectedType = errors.New("encountered unexpected RESP type")

	// ErrNestingTooDeep is returned when aggregates are nested deeper than MaxDepth.
	ErrNestingTooDeep = errors.New("aggregates nested too deeply")
)

// ProtocolError is returned when a reply can not be decoded.
//
// A ProtocolError means the stream is out of sync and the connection it was read from must not be used anymore.
type ProtocolError struct {
	// Offset is the position of the offending value relative to the start of the decoded buffer.
	Offset int

	// Err is one of the Err* variables of this package.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return "resp3: malformed reply at offset " + strconv.Itoa(e.Offset) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Type is an enum of the known RESP types with the values of the constants being the single-byte prefix characters.
type Type byte

const (
	// TypeInvalid is used for unknown or invalid types.
	TypeInvalid Type = 0
	// TypeArray signifies a RESP array.
	TypeArray Type = '*'
	// TypeBigNumber signifies an arbitrary precision integer.
	TypeBigNumber Type = '('
	// TypeBlobError signifies a binary safe error.
	TypeBlobError Type = '!'
	// TypeBlobString signifies a binary safe string, also known as bulk string.
	TypeBlobString Type = '$'
	// TypeBoolean signifies a boolean.
	TypeBoolean Type = '#'
	// TypeDouble signifies a floating point number.
	TypeDouble Type = ','
	// TypeMap signifies an ordered collection of key-value pairs.
	TypeMap Type = '%'
	// TypeNull signifies a null value.
	TypeNull Type = '_'
	// TypeNumber signifies a 64 bit signed integer.
	TypeNumber Type = ':'
	// TypePush signifies out of band data.
	TypePush Type = '>'
	// TypeSet signifies an unordered collection of values.
	TypeSet Type = '~'
	// TypeSimpleError signifies an error string.
	TypeSimpleError Type = '-'
	// TypeSimpleString signifies a simple string.
	TypeSimpleString Type = '+'
	// TypeVerbatimString signifies a binary safe string with a format prefix.
	TypeVerbatimString Type = '='
)

var _ fmt.Stringer = TypeInvalid

var types = [256]Type{
	TypeArray:          TypeArray,
	TypeBigNumber:      TypeBigNumber,
	TypeBlobError:      TypeBlobError,
	TypeBlobString:     TypeBlobString,
	TypeBoolean:        TypeBoolean,
	TypeDouble:         TypeDouble,
	TypeMap:            TypeMap,
	TypeNull:           TypeNull,
	TypeNumber:         TypeNumber,
	TypePush:           TypePush,
	TypeSet:            TypeSet,
	TypeSimpleError:    TypeSimpleError,
	TypeSimpleString:   TypeSimpleString,
	TypeVerbatimString: TypeVerbatimString,
}

var typeNames = map[Type]string{
	TypeInvalid:        "invalid",
	TypeArray:          "array",
	TypeBigNumber:      "big number",
	TypeBlobError:      "blob error",
	TypeBlobString:     "blob string",
	TypeBoolean:        "boolean",
	TypeDouble:         "double",
	TypeMap:            "map",
	TypeNull:           "null",
	TypeNumber:         "number",
	TypePush:           "push",
	TypeSet:            "set",
	TypeSimpleError:    "simple error",
	TypeSimpleString:   "simple string",
	TypeVerbatimString: "verbatim string",
}

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Type(" + strconv.Quote(string(t)) + ")"
}

// ReaderWriter embeds a Reader and a Writer in a single allocation for an io.ReadWriter.
//
// A single Reader and a single Writer method can be called concurrently, given the Read and Write methods of the
// underlying io.ReadWriter are safe for concurrent use.
type ReaderWriter struct {
	Reader
	Writer
}

// NewReaderWriter returns a new ReaderWriter that uses the given io.ReadWriter.
func NewReaderWriter(rw io.ReadWriter) *ReaderWriter {
	var rrw ReaderWriter
	rrw.Reset(rw)
	return &rrw
}

// Reset resets the embedded Reader and Writer to use the given io.ReadWriter.
//
// Reset must not be called concurrently with any other method
func (rrw *ReaderWriter) Reset(rw io.ReadWriter) {
	rrw.Reader.Reset(rw)
	rrw.Writer.Reset(rw)
}
