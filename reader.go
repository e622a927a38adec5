package resp3

import (
	"bytes"
	"io"
	"math"
)

// DefaultReadSize is the minimum number of bytes requested from the underlying io.Reader by a single read.
const DefaultReadSize = 4096

// maxEmptyReads limits the number of consecutive reads without data and without error.
const maxEmptyReads = 100

// Reader wraps an io.Reader and decodes RESP values from it.
//
// Reader accumulates data from the underlying io.Reader until a complete value is available, so values can be of
// any size and split over any number of reads.
type Reader struct {
	r        io.Reader
	err      error
	readSize int

	// buf[off:] holds data that was read but not yet decoded.
	buf []byte
	off int

	// progress of the value at buf[off:]
	scan frame
}

// frame tracks how much of an incomplete value was already seen, so that data is not scanned again after each read.
type frame struct {
	started bool
	pos     int // relative to Reader.off
	pending int // number of values still missing
}

// complete skips over the headers and payloads in b, starting where the last call stopped. It reports true when the
// value is complete or when it finds something it can not skip, in which case the decoder reports the error.
//
// complete does not allocate.
func (f *frame) complete(b []byte) bool {
	if !f.started {
		f.started = true
		f.pending = 1
	}

	for f.pending > 0 {
		if f.pos >= len(b) {
			return false
		}

		t := types[b[f.pos]]
		if t == TypeInvalid {
			return true
		}

		i := bytes.IndexByte(b[f.pos:], '\n')
		if i < 0 {
			return false
		}
		if i < 2 || b[f.pos+i-1] != '\r' {
			return true
		}
		line := b[f.pos+1 : f.pos+i-1]
		next := f.pos + i + 1

		switch t {
		case TypeBlobString, TypeBlobError, TypeVerbatimString:
			n, ok := parseLength(line)
			if !ok {
				return true
			}
			if n >= 0 {
				if n > len(b)-next-2 {
					return false
				}
				next += n + 2
			}
		case TypeArray, TypeSet, TypePush, TypeMap:
			n, ok := parseLength(line)
			if !ok {
				return true
			}
			if t == TypeMap && n > 0 {
				if n > math.MaxInt/2 {
					return true
				}
				n *= 2
			}
			if n > 0 {
				if n > math.MaxInt-f.pending {
					return true
				}
				f.pending += n
			}
		}

		f.pos = next
		f.pending--
	}
	return true
}

// NewReader returns a *Reader that uses the given io.Reader for reads.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, DefaultReadSize)
}

// NewReaderSize returns a *Reader that requests at least size bytes per read from r.
//
// If size is <= 0, DefaultReadSize is used.
func NewReaderSize(r io.Reader, size int) *Reader {
	var rr Reader
	rr.readSize = size
	rr.Reset(r)
	return &rr
}

var _ io.Reader = (*Reader)(nil)

// Reset sets the underlying io.Reader to r and discards all buffered data.
func (rr *Reader) Reset(r io.Reader) {
	if rr.readSize <= 0 {
		rr.readSize = DefaultReadSize
	}
	rr.r = r
	rr.err = nil
	rr.buf = rr.buf[:0]
	rr.off = 0
	rr.scan = frame{}
}

// Buffered returns the number of bytes that were read from the underlying io.Reader but not yet consumed.
func (rr *Reader) Buffered() int {
	return len(rr.buf) - rr.off
}

// Read reads raw data into dst, returning buffered data first.
//
// It implements the io.Reader interface.
func (rr *Reader) Read(dst []byte) (int, error) {
	if rr.Buffered() > 0 {
		n := copy(dst, rr.buf[rr.off:])
		rr.off += n
		rr.scan = frame{}
		return n, nil
	}
	if rr.err != nil {
		err := rr.err
		rr.err = nil
		return 0, err
	}
	return rr.r.Read(dst)
}

// fill compacts the buffer and appends the result of a single successful read from the underlying io.Reader.
func (rr *Reader) fill() error {
	if rr.err != nil {
		err := rr.err
		rr.err = nil
		return err
	}

	if rr.off > 0 {
		n := copy(rr.buf, rr.buf[rr.off:])
		rr.buf = rr.buf[:n]
		rr.off = 0
	}

	if cap(rr.buf)-len(rr.buf) < rr.readSize {
		buf := make([]byte, len(rr.buf), 2*cap(rr.buf)+rr.readSize)
		copy(buf, rr.buf)
		rr.buf = buf
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := rr.r.Read(rr.buf[len(rr.buf):cap(rr.buf)])
		rr.buf = rr.buf[:len(rr.buf)+n]
		if n > 0 {
			rr.err = err
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}

// ReadValue reads the next top-level value.
//
// The value is decoded only once all of it was read, so the time spent on a value grows linearly with its size, no
// matter how many reads it takes.
//
// If the stream ends before the value is complete, io.ErrUnexpectedEOF is returned. If the stream ends before any
// byte of the value was read, io.EOF is returned.
func (rr *Reader) ReadValue() (Value, error) {
	for {
		if rr.scan.complete(rr.buf[rr.off:]) {
			v, n, err := DecodeValue(rr.buf[rr.off:])
			if err != ErrIncomplete {
				rr.scan = frame{}
				if err != nil {
					return Value{}, err
				}
				rr.off += n
				return v, nil
			}
		}

		if err := rr.fill(); err != nil {
			if err == io.EOF && rr.Buffered() > 0 {
				err = io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
	}
}

// ReadValues reads the next n top-level values.
//
// On error the values read so far are returned together with the error.
func (rr *Reader) ReadValues(n int) ([]Value, error) {
	values := make([]Value, 0, n)
	for len(values) < n {
		v, err := rr.ReadValue()
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}
