// Package client implements a small Redis client on top of a single conn.Conn.
//
// Besides passing arbitrary commands through using Do and Pipeline, a Client provides typed methods for common
// commands that convert replies into Go values.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nussjustin/resp3"
	"github.com/nussjustin/resp3/command"
	"github.com/nussjustin/resp3/conn"
)

// UnexpectedReplyError is returned by typed methods when a reply has a type or value the method can not handle.
type UnexpectedReplyError struct {
	// Command that was sent.
	Command resp3.Command

	// Reply is the reply that was received for Command.
	Reply resp3.Value
}

// Error implements the error interface.
func (e *UnexpectedReplyError) Error() string {
	if len(e.Command) == 0 {
		return fmt.Sprintf("client: unexpected reply: %s", e.Reply)
	}
	return fmt.Sprintf("client: unexpected reply to %s: %s", e.Command[0], e.Reply)
}

// Client sends commands over a single connection. It is safe for concurrent use.
type Client struct {
	conn *conn.Conn

	now   func() time.Time
	newID func() string
}

// New returns a Client using the given connection.
func New(c *conn.Conn) *Client {
	return &Client{conn: c, now: time.Now, newID: uuid.NewString}
}

// Dial connects to the server configured by opts and authenticates if opts.Password is set.
//
// If the server rejects the credentials, the returned error is a *resp3.Error.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	var connOpts []conn.Option
	if opts.ReadBufferSize > 0 {
		connOpts = append(connOpts, conn.WithReadBufferSize(opts.ReadBufferSize))
	}

	cc, err := conn.Dial(ctx, "tcp", opts.Addr(), connOpts...)
	if err != nil {
		return nil, err
	}

	c := New(cc)

	if opts.Password != "" {
		cmd := command.Auth(opts.Password)
		if opts.Username != "" {
			cmd = command.AuthUser(opts.Username, opts.Password)
		}

		if err := c.expectOK(ctx, cmd); err != nil {
			_ = cc.Close()
			return nil, err
		}
	}

	return c, nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *conn.Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends cmd and returns the reply. Error replies are returned as values.
func (c *Client) Do(ctx context.Context, cmd resp3.Command) (resp3.Value, error) {
	return c.conn.Do(ctx, cmd)
}

// Pipeline sends all commands using a single write and returns the replies in order. Error replies are returned as
// values.
func (c *Client) Pipeline(ctx context.Context, cmds ...resp3.Command) ([]resp3.Value, error) {
	return c.conn.Pipeline(ctx, cmds...)
}

// do sends cmd and converts error replies to errors.
func (c *Client) do(ctx context.Context, cmd resp3.Command) (resp3.Value, error) {
	v, err := c.conn.Do(ctx, cmd)
	if err != nil {
		return resp3.Value{}, err
	}
	if err := v.Err(); err != nil {
		return resp3.Value{}, err
	}
	return v, nil
}

func (c *Client) expectOK(ctx context.Context, cmd resp3.Command) error {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return err
	}
	if v.Type != resp3.TypeSimpleString || string(v.Bytes) != "OK" {
		return &UnexpectedReplyError{Command: cmd, Reply: v}
	}
	return nil
}

func (c *Client) expectString(ctx context.Context, cmd resp3.Command) (string, bool, error) {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return "", false, err
	}
	if v.IsNull() {
		return "", false, nil
	}
	s, ok := v.Text()
	if !ok {
		return "", false, &UnexpectedReplyError{Command: cmd, Reply: v}
	}
	return s, true, nil
}

func (c *Client) expectNumber(ctx context.Context, cmd resp3.Command) (int64, error) {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if v.Type != resp3.TypeNumber {
		return 0, &UnexpectedReplyError{Command: cmd, Reply: v}
	}
	return v.Int, nil
}

// Set sets key to value.
func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.expectOK(ctx, command.Set(key, value))
}

// SetEx sets key to value and lets it expire after ttl, truncated to whole seconds.
func (c *Client) SetEx(ctx context.Context, key string, ttl time.Duration, value string) error {
	return c.expectOK(ctx, command.SetEx(key, int64(ttl/time.Second), value))
}

// Get returns the value of key. If key does not exist, found is false.
func (c *Client) Get(ctx context.Context, key string) (value string, found bool, err error) {
	return c.expectString(ctx, command.Get(key))
}

// HGet returns the value of field in the hash stored at key. If either does not exist, found is false.
func (c *Client) HGet(ctx context.Context, key, field string) (value string, found bool, err error) {
	return c.expectString(ctx, command.HGet(key, field))
}

// HSet sets field in the hash stored at key and returns the number of fields that were added.
func (c *Client) HSet(ctx context.Context, key, field, value string) (int64, error) {
	return c.expectNumber(ctx, command.HSet(key, field, value))
}

// Del removes the given keys and returns the number of keys that existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return c.expectNumber(ctx, command.Del(keys...))
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	cmd := command.Ping()

	v, err := c.do(ctx, cmd)
	if err != nil {
		return err
	}
	if s, _ := v.Text(); s != "PONG" {
		return &UnexpectedReplyError{Command: cmd, Reply: v}
	}
	return nil
}
