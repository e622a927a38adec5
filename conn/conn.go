// Package conn implements a sequencer that sends commands over a single connection and pairs them with their replies.
//
// A Conn allows only one write and read cycle at a time. Callers are admitted in the order in which they called Do
// or Pipeline, so replies are always matched to the commands that produced them.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nussjustin/resp3"
)

var (
	// ErrBroken is returned by all operations after a transport or protocol error.
	ErrBroken = errors.New("conn: connection broken")

	// ErrClosed is returned by all operations after Close was called.
	ErrClosed = errors.New("conn: connection closed")

	// ErrTrailingData is returned when the server sent more data than there were commands.
	ErrTrailingData = errors.New("conn: unexpected data after reply")
)

// ShortReplyError is returned when the connection ends before a reply for every command was read.
type ShortReplyError struct {
	// Want is the number of commands sent.
	Want int

	// Got is the number of replies that were read completely.
	Got int
}

// Error implements the error interface.
func (e *ShortReplyError) Error() string {
	return "conn: got " + strconv.Itoa(e.Got) + " replies for " + strconv.Itoa(e.Want) + " commands"
}

// Unwrap returns io.ErrUnexpectedEOF.
func (e *ShortReplyError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

// Option configures a Conn.
type Option func(*Conn)

// WithReadBufferSize sets the minimum number of bytes requested per read. The default is resp3.DefaultReadSize.
func WithReadBufferSize(n int) Option {
	return func(c *Conn) {
		c.readSize = n
	}
}

// Conn sends commands over a single stream. It is safe for concurrent use.
type Conn struct {
	rwc      io.ReadWriteCloser
	readSize int

	// only used by the admitted operation
	r *resp3.Reader
	w *resp3.Writer

	mu     sync.Mutex
	tail   chan struct{} // closed once the last admitted operation is done
	err    error
	closed bool
}

// New returns a Conn that uses the given stream.
//
// If rwc implements SetDeadline, like net.Conn, contexts passed to Do and Pipeline can interrupt reads and writes.
// Otherwise a context is only checked while waiting for admission.
func New(rwc io.ReadWriteCloser, opts ...Option) *Conn {
	c := &Conn{rwc: rwc}
	for _, opt := range opts {
		opt(c)
	}

	c.r = resp3.NewReaderSize(rwc, c.readSize)
	c.w = resp3.NewWriter(rwc)

	c.tail = make(chan struct{})
	close(c.tail)
	return c
}

// Dial connects to the given address using net.Dialer and returns a Conn for the connection.
func Dial(ctx context.Context, network, address string, opts ...Option) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return New(nc, opts...), nil
}

// Close closes the underlying stream. Operations waiting for admission fail with ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	return c.rwc.Close()
}

// Err returns nil if the connection is usable. Otherwise it returns ErrClosed or an error wrapping both ErrBroken and
// the error that broke the connection.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.err != nil:
		return fmt.Errorf("%w: %w", ErrBroken, c.err)
	default:
		return nil
	}
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// Do sends a single command and returns its reply.
//
// Error replies are returned as values. Use resp3.Value.Err to convert them.
func (c *Conn) Do(ctx context.Context, cmd resp3.Command) (resp3.Value, error) {
	if len(cmd) == 0 {
		return resp3.Value{}, resp3.ErrEmptyCommand
	}

	values, err := c.exchange(ctx, []resp3.Command{cmd})
	if err != nil {
		return resp3.Value{}, err
	}
	return values[0], nil
}

// Pipeline sends all commands using a single write and returns one reply per command in the same order.
//
// If the connection ends before all replies are read, a *ShortReplyError is returned.
func (c *Conn) Pipeline(ctx context.Context, cmds ...resp3.Command) ([]resp3.Value, error) {
	if len(cmds) == 0 {
		return nil, resp3.ErrEmptyPipeline
	}
	for _, cmd := range cmds {
		if len(cmd) == 0 {
			return nil, resp3.ErrEmptyCommand
		}
	}

	return c.exchange(ctx, cmds)
}

// ticket is a place in the admission queue.
type ticket struct {
	prev <-chan struct{}
	next chan struct{}
}

// reserve appends a ticket to the admission queue.
func (c *Conn) reserve() ticket {
	next := make(chan struct{})

	c.mu.Lock()
	prev := c.tail
	c.tail = next
	c.mu.Unlock()

	return ticket{prev: prev, next: next}
}

// wait blocks until all operations admitted before t are done. The returned function must be called once the
// operation is done.
//
// If ctx is done first, the place in the queue is handed to the next ticket as soon as the previous one is done.
func (t ticket) wait(ctx context.Context) (func(), error) {
	select {
	case <-t.prev:
		return func() { close(t.next) }, nil
	case <-ctx.Done():
		go func() {
			<-t.prev
			close(t.next)
		}()
		return nil, ctx.Err()
	}
}

func (c *Conn) exchange(ctx context.Context, cmds []resp3.Command) ([]resp3.Value, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}

	release, err := c.reserve().wait(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := c.watch(ctx)
	values, err := c.roundTrip(cmds)
	if err = done(err); err != nil {
		c.fail(err)
		return nil, err
	}
	return values, nil
}

func (c *Conn) roundTrip(cmds []resp3.Command) ([]resp3.Value, error) {
	if _, err := c.w.WriteCommands(cmds...); err != nil {
		return nil, err
	}

	values, err := c.r.ReadValues(len(cmds))
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return nil, &ShortReplyError{Want: len(cmds), Got: len(values)}
	case err != nil:
		return nil, err
	case c.r.Buffered() > 0:
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, c.r.Buffered())
	default:
		return values, nil
	}
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// aLongTimeAgo is a non-zero time in the past used to interrupt blocked reads and writes.
var aLongTimeAgo = time.Unix(1, 0)

// watch arranges for ctx to interrupt I/O on the stream. The returned function must be called with the result of
// the I/O and returns the error to report.
func (c *Conn) watch(ctx context.Context) func(error) error {
	d, ok := c.rwc.(deadliner)
	if !ok || ctx.Done() == nil {
		return func(err error) error { return err }
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = d.SetDeadline(deadline)
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = d.SetDeadline(aLongTimeAgo)
		close(fired)
	})

	return func(err error) error {
		if !stop() {
			<-fired
		}
		_ = d.SetDeadline(time.Time{})

		if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
}
