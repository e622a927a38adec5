// Package redistest provides an in-process Redis server for tests.
package redistest

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/tidwall/resp"

	"github.com/nussjustin/resp3"
)

// ErrCloseConn can be returned by a Handler to close the connection without writing a reply.
var ErrCloseConn = errors.New("redistest: close connection")

// Handler handles a single command by writing exactly one reply to w.
type Handler interface {
	ServeRESP(cmd []string, w *resp3.Writer) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(cmd []string, w *resp3.Writer) error

// ServeRESP calls f(cmd, w).
func (f HandlerFunc) ServeRESP(cmd []string, w *resp3.Writer) error {
	return f(cmd, w)
}

// Server reads commands from its connections and passes them to a Handler one at a time.
//
// Commands are parsed using github.com/tidwall/resp so that the encoder under test is checked against an independent
// implementation.
type Server struct {
	handler Handler
	ln      net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	commands [][]string
	closed   bool

	wg sync.WaitGroup
}

// NewServer returns a Server using h. Connections are added using Listen or Pipe.
func NewServer(h Handler) *Server {
	return &Server{handler: h, conns: make(map[net.Conn]struct{})}
}

// Listen starts accepting TCP connections on a random port of the loopback interface.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			s.serve(nc)
		}
	}()
	return nil
}

// Addr returns the address passed to Listen or nil if the server is not listening.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Pipe returns the client end of a synchronous in-memory connection served by s.
func (s *Server) Pipe() net.Conn {
	client, server := net.Pipe()
	s.serve(server)
	return client
}

// Commands returns all commands received so far, in the order in which they were read.
func (s *Server) Commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]string(nil), s.commands...)
}

// Close stops the listener and closes all connections.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for nc := range s.conns {
		_ = nc.Close()
	}
	s.mu.Unlock()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) serve(nc net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = nc.Close()
		return
	}
	s.conns[nc] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.conns, nc)
			s.mu.Unlock()
			_ = nc.Close()
		}()

		rd := resp.NewReader(nc)
		w := resp3.NewWriter(nc)
		for {
			v, _, err := rd.ReadValue()
			if err != nil {
				return
			}

			cmd := make([]string, 0, len(v.Array()))
			for _, arg := range v.Array() {
				cmd = append(cmd, arg.String())
			}

			s.mu.Lock()
			s.commands = append(s.commands, cmd)
			s.mu.Unlock()

			if err := s.handler.ServeRESP(cmd, w); err != nil {
				return
			}
		}
	}()
}

// Echo replies to every command with an array holding its arguments as blob strings.
var Echo = HandlerFunc(func(cmd []string, w *resp3.Writer) error {
	elems := make([]resp3.Value, len(cmd))
	for i, arg := range cmd {
		elems[i] = resp3.BlobString(arg)
	}
	_, err := w.WriteValue(resp3.Array(elems...))
	return err
})

// Raw returns a handler that writes the given raw replies, one per command, and closes the connection once all
// replies were used.
func Raw(replies ...string) Handler {
	var mu sync.Mutex
	return HandlerFunc(func(_ []string, w *resp3.Writer) error {
		mu.Lock()
		defer mu.Unlock()

		if len(replies) == 0 {
			return ErrCloseConn
		}
		reply := replies[0]
		replies = replies[1:]

		if _, err := io.WriteString(w, reply); err != nil {
			return err
		}
		return nil
	})
}

func wrongArgs(w *resp3.Writer, name string) error {
	_, err := w.WriteSimpleError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
	return err
}
