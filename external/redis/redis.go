// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package redis provides an interface to query and modify the server that
// holds the published UPS variables.
package redis

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/garyburd/redigo/redis"
	"github.com/jpillora/backoff"

	"github.com/platinasystems/smartups/external/atsock"
)

const rdtimeout = 10 * time.Second
const wrtimeout = 500 * time.Millisecond
const dialtimeout = 2 * time.Second

var (
	// Address is an abstract socket, "@NAME", or a TCP "HOST:PORT".
	Address = "@redisd"

	DefaultHash    = "smartups"
	DefaultChannel = "smartups"

	// Dialer connects to Address; replaced by tests.
	Dialer = func() (redis.Conn, error) { return Dial(Address) }
)

// Dial the server at addr.
func Dial(addr string) (redis.Conn, error) {
	if strings.HasPrefix(addr, "@") {
		conn, err := atsock.DialTimeout(addr, dialtimeout)
		if err != nil {
			return nil, err
		}
		return redis.NewConn(conn, rdtimeout, wrtimeout), nil
	}
	return redis.Dial("tcp", addr,
		redis.DialConnectTimeout(dialtimeout),
		redis.DialReadTimeout(rdtimeout),
		redis.DialWriteTimeout(wrtimeout))
}

// Connect to the configured server.
func Connect() (redis.Conn, error) {
	return Dialer()
}

func do(cmd string, args ...interface{}) (interface{}, error) {
	conn, err := Connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.Do(cmd, args...)
}

func Ping() error {
	s, err := redis.String(do("PING"))
	if err == nil && s != "PONG" {
		err = fmt.Errorf("PING: %q", s)
	}
	return err
}

// Quotes returns s, or s quoted if it has control characters that would
// break a "KEY: VALUE" line.
func Quotes(s string) string {
	for _, r := range s {
		if unicode.IsControl(r) {
			return strconv.Quote(s)
		}
	}
	return s
}

// IsReady waits up to dur for the server to answer PING.
func IsReady(dur time.Duration) error {
	return retry(dur, Ping)
}

func retry(dur time.Duration, f func() error) error {
	b := &backoff.Backoff{
		Min:    50 * time.Millisecond,
		Max:    time.Second,
		Factor: 2,
	}
	end := time.Now().Add(dur)
	for {
		err := f()
		if err == nil {
			return nil
		}
		d := b.Duration()
		if time.Now().Add(d).After(end) {
			return fmt.Errorf("timeout after %v: %w", dur, err)
		}
		time.Sleep(d)
	}
}
