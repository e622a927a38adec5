// Package command contains functions for building commands supported by this module.
//
// All functions are pure and only build a resp3.Command. Use a conn.Conn or client.Client to send them.
package command

import (
	"math"
	"strconv"

	"github.com/nussjustin/resp3"
)

// Auth returns an AUTH command for the default user.
func Auth(password string) resp3.Command {
	return resp3.Command{"AUTH", password}
}

// AuthUser returns an AUTH command for the given user.
func AuthUser(user, password string) resp3.Command {
	return resp3.Command{"AUTH", user, password}
}

// Ping returns a PING command.
func Ping() resp3.Command {
	return resp3.Command{"PING"}
}

// Echo returns an ECHO command.
func Echo(msg string) resp3.Command {
	return resp3.Command{"ECHO", msg}
}

// Get returns a GET command.
func Get(key string) resp3.Command {
	return resp3.Command{"GET", key}
}

// Set returns a SET command without any options.
func Set(key, value string) resp3.Command {
	return resp3.Command{"SET", key, value}
}

// SetEx returns a SETEX command that sets key to value with a time to live of ttl seconds.
func SetEx(key string, ttl int64, value string) resp3.Command {
	return resp3.Command{"SETEX", key, strconv.FormatInt(ttl, 10), value}
}

// Del returns a DEL command for all given keys.
func Del(keys ...string) resp3.Command {
	return append(resp3.Command{"DEL"}, keys...)
}

// HGet returns an HGET command.
func HGet(key, field string) resp3.Command {
	return resp3.Command{"HGET", key, field}
}

// HSet returns an HSET command for a single field.
func HSet(key, field, value string) resp3.Command {
	return resp3.Command{"HSET", key, field, value}
}

// ZAdd returns a ZADD command for a single member.
func ZAdd(set string, score float64, member string) resp3.Command {
	return resp3.Command{"ZADD", set, FormatScore(score), member}
}

// ZCount returns a ZCOUNT command counting members with a score between min and max, inclusive.
func ZCount(set string, min, max float64) resp3.Command {
	return resp3.Command{"ZCOUNT", set, FormatScore(min), FormatScore(max)}
}

// ZRemRangeByScore returns a ZREMRANGEBYSCORE command removing members with a score between min and max, inclusive.
func ZRemRangeByScore(set string, min, max float64) resp3.Command {
	return resp3.Command{"ZREMRANGEBYSCORE", set, FormatScore(min), FormatScore(max)}
}

// Expire returns an EXPIRE command.
func Expire(key string, seconds int64) resp3.Command {
	return resp3.Command{"EXPIRE", key, strconv.FormatInt(seconds, 10)}
}

// FormatScore formats f the way Redis expects sorted set scores and ranges.
//
// Infinite values are formatted as "+inf" and "-inf". All other values use the shortest decimal representation
// without an exponent.
func FormatScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
