package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultHostname is used when Options.Hostname is empty.
	DefaultHostname = "localhost"

	// DefaultPort is used when Options.Port is 0.
	DefaultPort = 6379
)

// ErrInvalidURL is returned by ParseURL for URLs that can not be used to connect to a server.
var ErrInvalidURL = errors.New("client: invalid URL")

// Options configures a connection created by Dial.
type Options struct {
	// Hostname of the server. Defaults to DefaultHostname.
	Hostname string

	// Port of the server. Defaults to DefaultPort.
	Port int

	// Username used for authentication. Only used if Password is set.
	Username string

	// Password used for authentication. If empty, no AUTH command is sent.
	Password string

	// DialTimeout limits the time spent connecting and authenticating. Zero means no timeout.
	DialTimeout time.Duration

	// ReadBufferSize is passed to conn.WithReadBufferSize if greater than 0.
	ReadBufferSize int
}

// Addr returns the host and port to connect to, using the defaults for unset fields.
func (o Options) Addr() string {
	host, port := o.Hostname, o.Port
	if host == "" {
		host = DefaultHostname
	}
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ParseURL parses a URL of the form redis://[[username]:password@]host[:port] into Options.
//
// Fields missing from the URL are left empty.
func ParseURL(s string) (Options, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Options{}, err
	}
	if u.Scheme != "redis" {
		return Options{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Path != "" && u.Path != "/" {
		return Options{}, fmt.Errorf("%w: unsupported path %q", ErrInvalidURL, u.Path)
	}

	o := Options{Hostname: u.Hostname()}

	if p := u.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil || port == 0 {
			return Options{}, fmt.Errorf("%w: invalid port %q", ErrInvalidURL, p)
		}
		o.Port = int(port)
	}

	if u.User != nil {
		o.Username = u.User.Username()
		o.Password, _ = u.User.Password()
	}

	return o, nil
}
