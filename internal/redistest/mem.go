package redistest

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nussjustin/resp3"
)

// Mem is a Handler implementing a small subset of Redis commands on in-memory data.
//
// Supported are AUTH, PING, ECHO, GET, SET, SETEX, DEL, HGET, HSET, ZADD, ZCOUNT, ZREMRANGEBYSCORE, ZRANGE (without
// options) and EXPIRE. Expiration times are recorded but never enforced and authentication is shared by all
// connections.
type Mem struct {
	// Password, if set, must be sent using AUTH before any other command is accepted.
	Password string

	mu      sync.Mutex
	authed  bool
	strings map[string]string
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
	ttls    map[string]int64
}

var _ Handler = (*Mem)(nil)

// NewMem returns an empty Mem.
func NewMem() *Mem {
	return &Mem{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
		ttls:    make(map[string]int64),
	}
}

// TTL returns the last expiration in seconds set for key.
func (m *Mem) TTL(key string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ttl, ok := m.ttls[key]
	return ttl, ok
}

const (
	errNoAuth    = "NOAUTH Authentication required."
	errWrongType = "WRONGTYPE Operation against a key holding the wrong kind of value"
	errNotInt    = "ERR value is not an integer or out of range"
	errNotFloat  = "ERR min or max is not a float"
)

func (m *Mem) exists(key string) bool {
	_, s := m.strings[key]
	_, h := m.hashes[key]
	_, z := m.zsets[key]
	return s || h || z
}

func parseScore(s string) (float64, bool) {
	switch strings.ToLower(s) {
	case "+inf", "inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil && !math.IsNaN(f)
}

// ServeRESP implements the Handler interface.
func (m *Mem) ServeRESP(cmd []string, w *resp3.Writer) error {
	if len(cmd) == 0 {
		_, err := w.WriteSimpleError("ERR empty command")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.ToUpper(cmd[0])
	args := cmd[1:]

	if m.Password != "" && !m.authed && name != "AUTH" {
		_, err := w.WriteSimpleError(errNoAuth)
		return err
	}

	var err error
	switch name {
	case "AUTH":
		if len(args) < 1 || len(args) > 2 {
			return wrongArgs(w, name)
		}
		if m.Password == "" {
			_, err = w.WriteSimpleError("ERR AUTH <password> called without any password configured for the default user.")
		} else if args[len(args)-1] != m.Password {
			_, err = w.WriteSimpleError("WRONGPASS invalid username-password pair or user is disabled.")
		} else {
			m.authed = true
			_, err = w.WriteSimpleString("OK")
		}
	case "PING":
		if len(args) == 1 {
			_, err = w.WriteBlobString(args[0])
		} else {
			_, err = w.WriteSimpleString("PONG")
		}
	case "ECHO":
		if len(args) != 1 {
			return wrongArgs(w, name)
		}
		_, err = w.WriteBlobString(args[0])
	case "GET":
		if len(args) != 1 {
			return wrongArgs(w, name)
		}
		if v, ok := m.strings[args[0]]; ok {
			_, err = w.WriteBlobString(v)
		} else if m.exists(args[0]) {
			_, err = w.WriteSimpleError(errWrongType)
		} else {
			_, err = w.WriteNull()
		}
	case "SET":
		if len(args) != 2 {
			return wrongArgs(w, name)
		}
		m.del(args[0])
		m.strings[args[0]] = args[1]
		_, err = w.WriteSimpleString("OK")
	case "SETEX":
		if len(args) != 3 {
			return wrongArgs(w, name)
		}
		ttl, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil || ttl <= 0 {
			_, err = w.WriteSimpleError("ERR invalid expire time in 'setex' command")
			break
		}
		m.del(args[0])
		m.strings[args[0]] = args[2]
		m.ttls[args[0]] = ttl
		_, err = w.WriteSimpleString("OK")
	case "DEL":
		if len(args) == 0 {
			return wrongArgs(w, name)
		}
		var n int64
		for _, key := range args {
			if m.del(key) {
				n++
			}
		}
		_, err = w.WriteNumber(n)
	case "HGET":
		if len(args) != 2 {
			return wrongArgs(w, name)
		}
		if _, ok := m.strings[args[0]]; ok {
			_, err = w.WriteSimpleError(errWrongType)
		} else if v, ok := m.hashes[args[0]][args[1]]; ok {
			_, err = w.WriteBlobString(v)
		} else {
			_, err = w.WriteNull()
		}
	case "HSET":
		if len(args) < 3 || len(args)%2 != 1 {
			return wrongArgs(w, name)
		}
		if _, ok := m.strings[args[0]]; ok {
			_, err = w.WriteSimpleError(errWrongType)
			break
		}
		h := m.hashes[args[0]]
		if h == nil {
			h = make(map[string]string)
			m.hashes[args[0]] = h
		}
		var n int64
		for i := 1; i < len(args); i += 2 {
			if _, ok := h[args[i]]; !ok {
				n++
			}
			h[args[i]] = args[i+1]
		}
		_, err = w.WriteNumber(n)
	case "ZADD":
		if len(args) < 3 || len(args)%2 != 1 {
			return wrongArgs(w, name)
		}
		z := m.zsets[args[0]]
		if z == nil {
			z = make(map[string]float64)
		}
		var n int64
		for i := 1; i < len(args); i += 2 {
			score, ok := parseScore(args[i])
			if !ok {
				_, err = w.WriteSimpleError("ERR value is not a valid float")
				return err
			}
			if _, ok := z[args[i+1]]; !ok {
				n++
			}
			z[args[i+1]] = score
		}
		m.zsets[args[0]] = z
		_, err = w.WriteNumber(n)
	case "ZCOUNT", "ZREMRANGEBYSCORE":
		if len(args) != 3 {
			return wrongArgs(w, name)
		}
		lo, ok1 := parseScore(args[1])
		hi, ok2 := parseScore(args[2])
		if !ok1 || !ok2 {
			_, err = w.WriteSimpleError(errNotFloat)
			break
		}
		z := m.zsets[args[0]]
		var n int64
		for member, score := range z {
			if score >= lo && score <= hi {
				n++
				if name == "ZREMRANGEBYSCORE" {
					delete(z, member)
				}
			}
		}
		if len(z) == 0 {
			delete(m.zsets, args[0])
		}
		_, err = w.WriteNumber(n)
	case "ZRANGE":
		if len(args) != 3 {
			return wrongArgs(w, name)
		}
		start, err1 := strconv.Atoi(args[1])
		stop, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			_, err = w.WriteSimpleError(errNotInt)
			break
		}
		_, err = w.WriteValue(m.zrange(args[0], start, stop))
	case "EXPIRE":
		if len(args) != 2 {
			return wrongArgs(w, name)
		}
		ttl, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			_, err = w.WriteSimpleError(errNotInt)
			break
		}
		if !m.exists(args[0]) {
			_, err = w.WriteNumber(0)
			break
		}
		m.ttls[args[0]] = ttl
		_, err = w.WriteNumber(1)
	default:
		_, err = w.WriteSimpleError("ERR unknown command '" + cmd[0] + "', with args beginning with: ")
	}
	return err
}

func (m *Mem) del(key string) bool {
	ok := m.exists(key)
	delete(m.strings, key)
	delete(m.hashes, key)
	delete(m.zsets, key)
	delete(m.ttls, key)
	return ok
}

func (m *Mem) zrange(key string, start, stop int) resp3.Value {
	z := m.zsets[key]
	members := make([]string, 0, len(z))
	for member := range z {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if z[members[i]] != z[members[j]] {
			return z[members[i]] < z[members[j]]
		}
		return members[i] < members[j]
	})

	n := len(members)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}

	elems := []resp3.Value{}
	for i := start; i <= stop; i++ {
		elems = append(elems, resp3.BlobString(members[i]))
	}
	return resp3.Value{Type: resp3.TypeArray, Elems: elems}
}
