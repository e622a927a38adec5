// Command resp3-cli sends a single command to a Redis server and prints the reply.
//
// Usage:
//
//	resp3-cli [-url redis://[[user]:password@]host[:port]] [-timeout 5s] command [arg...]
//
// Without arguments, commands are read from standard input, one per line, with arguments separated by whitespace.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/nussjustin/resp3"
	"github.com/nussjustin/resp3/client"
)

func main() {
	url := flag.String("url", "redis://localhost:6379", "server to connect to")
	timeout := flag.Duration("timeout", 5*time.Second, "timeout for connecting and for each command")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("resp3-cli: ")

	if err := run(*url, *timeout, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(url string, timeout time.Duration, args []string) error {
	opts, err := client.ParseURL(url)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	opts.DialTimeout = timeout

	c, err := client.Dial(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("unable to connect: %w", err)
	}
	defer c.Close()

	if len(args) > 0 {
		return do(c, timeout, args)
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		if err := do(c, timeout, args); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("unable to read commands: %w", err)
	}
	return nil
}

func do(c *client.Client, timeout time.Duration, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	v, err := c.Do(ctx, resp3.Command(args))
	if err != nil {
		return err
	}

	fmt.Println(v)
	return nil
}
