// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package redistest provides an in memory redis.Conn for tests.
package redistest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/garyburd/redigo/redis"
)

var ErrClosed = errors.New("redistest: connection closed")

// Server is the shared state of the Conns it returns.
type Server struct {
	sync.Mutex

	Hashes    map[string]map[string]string
	Published map[string][]string
	Commands  []string

	// Err, if set, fails every command.
	Err error

	dials int
}

func NewServer() *Server {
	return &Server{
		Hashes:    make(map[string]map[string]string),
		Published: make(map[string][]string),
	}
}

// Dial returns a new connection; it has the redis.Dialer signature used by
// the redis package.
func (s *Server) Dial() (redis.Conn, error) {
	s.Lock()
	defer s.Unlock()
	s.dials++
	return &Conn{srv: s}, nil
}

// Dials counts the connections made.
func (s *Server) Dials() int {
	s.Lock()
	defer s.Unlock()
	return s.dials
}

func (s *Server) Hget(key, field string) string {
	s.Lock()
	defer s.Unlock()
	return s.Hashes[key][field]
}

type Conn struct {
	srv     *Server
	closed  bool
	pending []interface{}
}

func (c *Conn) Close() error {
	c.closed = true
	return nil
}

func (c *Conn) Err() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Conn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if cmd == "" {
		return nil, c.Flush()
	}
	return c.srv.do(cmd, args)
}

func (c *Conn) Send(cmd string, args ...interface{}) error {
	if c.closed {
		return ErrClosed
	}
	c.pending = append(c.pending, append([]interface{}{cmd}, args...))
	return nil
}

func (c *Conn) Flush() error {
	for _, p := range c.pending {
		a := p.([]interface{})
		if _, err := c.srv.do(a[0].(string), a[1:]); err != nil {
			c.pending = nil
			return err
		}
	}
	c.pending = nil
	return nil
}

func (c *Conn) Receive() (interface{}, error) {
	return nil, errors.New("redistest: Receive not supported")
}

func (s *Server) do(cmd string, args []interface{}) (interface{}, error) {
	s.Lock()
	defer s.Unlock()
	sargs := make([]string, len(args))
	for i, a := range args {
		sargs[i] = fmt.Sprint(a)
	}
	cmd = strings.ToUpper(cmd)
	s.Commands = append(s.Commands,
		strings.TrimSpace(cmd+" "+strings.Join(sargs, " ")))
	if s.Err != nil {
		return nil, s.Err
	}
	need := func(n int) error {
		if len(sargs) < n {
			return redis.Error("ERR wrong number of arguments for '" +
				strings.ToLower(cmd) + "' command")
		}
		return nil
	}
	switch cmd {
	case "PING":
		return "PONG", nil
	case "HSET":
		if err := need(3); err != nil {
			return nil, err
		}
		h := s.Hashes[sargs[0]]
		if h == nil {
			h = make(map[string]string)
			s.Hashes[sargs[0]] = h
		}
		_, found := h[sargs[1]]
		h[sargs[1]] = sargs[2]
		if found {
			return int64(0), nil
		}
		return int64(1), nil
	case "HDEL":
		if err := need(2); err != nil {
			return nil, err
		}
		var n int64
		for _, f := range sargs[1:] {
			if _, found := s.Hashes[sargs[0]][f]; found {
				delete(s.Hashes[sargs[0]], f)
				n++
			}
		}
		return n, nil
	case "PUBLISH":
		if err := need(2); err != nil {
			return nil, err
		}
		s.Published[sargs[0]] = append(s.Published[sargs[0]], sargs[1])
		return int64(0), nil
	}
	return nil, redis.Error("ERR unknown command '" + cmd + "'")
}
