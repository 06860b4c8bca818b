// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/smartups/external/redis/redistest"
)

func useServer(t *testing.T) *redistest.Server {
	t.Helper()
	srv := redistest.NewServer()
	save := Dialer
	Dialer = srv.Dial
	t.Cleanup(func() { Dialer = save })
	return srv
}

func TestQuotes(t *testing.T) {
	assert.Equal(t, "SmartUPS", Quotes("SmartUPS"))
	assert.Equal(t, "OL CHRG", Quotes("OL CHRG"))
	assert.Equal(t, `"Smart\nUPS"`, Quotes("Smart\nUPS"))
	assert.Equal(t, `"V1.03\r"`, Quotes("V1.03\r"))
	assert.Equal(t, `"\x00"`, Quotes("\x00"))
}

func TestIsReady(t *testing.T) {
	srv := useServer(t)
	assert.NoError(t, IsReady(time.Second))

	srv.Err = errors.New("LOADING")
	start := time.Now()
	err := IsReady(200 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOADING")
	assert.Less(t, time.Since(start), time.Second)
	assert.Greater(t, srv.Dials(), 1, "retried")
}

func TestIsReadyRecovers(t *testing.T) {
	srv := useServer(t)
	srv.Err = errors.New("LOADING")
	go func() {
		time.Sleep(100 * time.Millisecond)
		srv.Lock()
		srv.Err = nil
		srv.Unlock()
	}()
	assert.NoError(t, IsReady(5*time.Second))
}

func TestDialRefused(t *testing.T) {
	_, err := Dial("@smartups-redis-test-nosuch")
	assert.Error(t, err)
	_, err = Dial("127.0.0.1:1")
	assert.Error(t, err)
}

func TestDialer(t *testing.T) {
	srv := useServer(t)
	conn, err := Connect()
	require.NoError(t, err)
	defer conn.Close()
	s, err := redis.String(conn.Do("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", s)
	assert.Equal(t, 1, srv.Dials())
}
