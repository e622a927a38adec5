package client

import "time"

// SetClock replaces the functions used for the current time and for new rate limit event ids.
func SetClock(c *Client, now func() time.Time, newID func() string) {
	c.now = now
	c.newID = newID
}
