// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package publisher stores "KEY: VALUE" lines in a redis hash and announces
// each on a channel. A "delete: KEY" line removes the field.
package publisher

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	redigo "github.com/garyburd/redigo/redis"

	"github.com/platinasystems/smartups/external/redis"
)

// New returns a publisher to the hash and channel, or the redis package
// defaults if empty.
func New(hash, channel string) *Publisher {
	if len(hash) == 0 {
		hash = redis.DefaultHash
	}
	if len(channel) == 0 {
		channel = redis.DefaultChannel
	}
	return &Publisher{
		Dial:    redis.Connect,
		hash:    hash,
		channel: channel,
		buf:     new(bytes.Buffer),
	}
}

type Publisher struct {
	sync.Mutex

	// Dial a new connection after the first Print or an error.
	Dial func() (redigo.Conn, error)

	hash    string
	channel string
	conn    redigo.Conn
	buf     *bytes.Buffer
	closed  bool
}

func (p *Publisher) Close() error {
	var err error
	p.Lock()
	defer p.Unlock()
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	p.closed = true
	return err
}

func (p *Publisher) Print(a ...interface{}) (int, error) {
	return p.flush(func(buf *bytes.Buffer) (int, error) {
		return fmt.Fprint(buf, a...)
	})
}

func (p *Publisher) flush(fill func(*bytes.Buffer) (int, error)) (int, error) {
	p.Lock()
	defer p.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	p.buf.Reset()
	n, err := fill(p.buf)
	if err != nil || p.buf.Len() == 0 {
		return n, err
	}
	if p.conn == nil {
		conn, err := p.Dial()
		if err != nil {
			return 0, err
		}
		p.conn = conn
	}
	for _, line := range strings.Split(strings.TrimRight(p.buf.String(), "\n"), "\n") {
		if err = p.send(line); err != nil {
			break
		}
	}
	if err == nil {
		_, err = p.conn.Do("")
	}
	if err != nil {
		p.conn.Close()
		p.conn = nil
		return 0, err
	}
	return n, nil
}

func (p *Publisher) send(line string) error {
	key, value, found := strings.Cut(line, ": ")
	if !found {
		return fmt.Errorf("%q: missing \": \"", line)
	}
	if key == "delete" {
		if err := p.conn.Send("HDEL", p.hash, value); err != nil {
			return err
		}
	} else if err := p.conn.Send("HSET", p.hash, key, value); err != nil {
		return err
	}
	return p.conn.Send("PUBLISH", p.channel, line)
}
