// Package resp3 implements encoding of Redis commands and decoding of RESP2 and RESP3 replies.
//
// Commands are always sent as arrays of bulk strings. Replies are decoded into Value, a tagged union over all RESP3
// types. Error replies are returned as values and not as Go errors, use Value.Err to convert them.
//
// Decode works on byte slices and reports incomplete trailing messages instead of failing, which allows callers to
// accumulate reads until a reply is complete. Reader implements this accumulation on top of an io.Reader.
//
// Writer and Reader can be reused via the corresponding Reset method and duplex connections are supported using a
// ReaderWriter type that wraps a Reader and a Writer in a single allocation.
package resp3
