package client

import (
	"context"
	"math"
	"time"

	"github.com/nussjustin/resp3"
	"github.com/nussjustin/resp3/command"
)

// RateLimitPrefix is prepended to all keys passed to RateLimit.
const RateLimitPrefix = "RateLimit:"

// RateLimit records an event for key and returns the number of events recorded for key within the last window,
// including the new one.
//
// Events are stored as members of a sorted set scored by their time in milliseconds. Each call removes events older
// than window, adds a new event, counts the remaining events and renews the expiration of the set, all using a single
// pipeline. The expiration is rounded up to whole seconds.
//
// A typical use is rejecting requests when the returned count is above a threshold:
//
//	n, err := c.RateLimit(ctx, "hourly:"+user, time.Hour)
//	if err == nil && n > 10 {
//		// reject
//	}
func (c *Client) RateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	set := RateLimitPrefix + key
	now := c.now().UnixMilli()

	cmds := []resp3.Command{
		command.ZRemRangeByScore(set, 0, float64(now-window.Milliseconds())),
		command.ZAdd(set, float64(now), c.newID()),
		command.ZCount(set, 0, math.Inf(1)),
		command.Expire(set, int64((window+time.Second-1)/time.Second)),
	}

	replies, err := c.conn.Pipeline(ctx, cmds...)
	if err != nil {
		return 0, err
	}

	for _, v := range replies {
		if err := v.Err(); err != nil {
			return 0, err
		}
	}

	if count := replies[2]; count.Type == resp3.TypeNumber {
		return count.Int, nil
	}
	return 0, &UnexpectedReplyError{Command: cmds[2], Reply: replies[2]}
}
