// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publisher

import (
	"errors"
	"io"
	"testing"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/smartups/external/redis/redistest"
)

func newTestPublisher(t *testing.T) (*Publisher, *redistest.Server) {
	t.Helper()
	srv := redistest.NewServer()
	p := New("ups", "ups.events")
	p.Dial = srv.Dial
	t.Cleanup(func() { p.Close() })
	return p, srv
}

func TestPrint(t *testing.T) {
	p, srv := newTestPublisher(t)

	_, err := p.Print("ups.status", ": ", "OL CHRG")
	require.NoError(t, err)
	_, err = p.Print("battery.charge: ", 75, "\n")
	require.NoError(t, err)
	_, err = p.Print("ups.mfr: OpenElectrons.com\nups.model: SmartUPS")
	require.NoError(t, err)

	assert.Equal(t, "OL CHRG", srv.Hget("ups", "ups.status"))
	assert.Equal(t, "75", srv.Hget("ups", "battery.charge"))
	assert.Equal(t, "SmartUPS", srv.Hget("ups", "ups.model"))
	assert.Equal(t, []string{
		"ups.status: OL CHRG",
		"battery.charge: 75",
		"ups.mfr: OpenElectrons.com",
		"ups.model: SmartUPS",
	}, srv.Published["ups.events"])
	assert.Equal(t, 1, srv.Dials(), "connection reused")
}

func TestDelete(t *testing.T) {
	p, srv := newTestPublisher(t)

	p.Print("battery.charge: 75")
	p.Print("delete: battery.charge")

	_, found := srv.Hashes["ups"]["battery.charge"]
	assert.False(t, found)
	assert.Equal(t, []string{
		"HSET ups battery.charge 75",
		"PUBLISH ups.events battery.charge: 75",
		"HDEL ups battery.charge",
		"PUBLISH ups.events delete: battery.charge",
	}, srv.Commands)
}

func TestEmptyValue(t *testing.T) {
	p, srv := newTestPublisher(t)
	_, err := p.Print("ups.status", ": ", "")
	require.NoError(t, err)
	v, found := srv.Hashes["ups"]["ups.status"]
	assert.True(t, found)
	assert.Equal(t, "", v)
}

func TestMalformed(t *testing.T) {
	p, _ := newTestPublisher(t)
	_, err := p.Print("no separator")
	assert.Error(t, err)
}

func TestReconnect(t *testing.T) {
	p, srv := newTestPublisher(t)

	srv.Err = errors.New("READONLY")
	_, err := p.Print("ups.time: 1")
	assert.Error(t, err)

	srv.Err = nil
	_, err = p.Print("ups.time: 2")
	require.NoError(t, err)
	assert.Equal(t, "2", srv.Hget("ups", "ups.time"))
	assert.Equal(t, 2, srv.Dials())
}

func TestDialError(t *testing.T) {
	p, _ := newTestPublisher(t)
	p.Dial = func() (redigo.Conn, error) { return nil, errors.New("refused") }
	_, err := p.Print("ups.time: 1")
	assert.EqualError(t, err, "refused")
}

func TestClosed(t *testing.T) {
	p, _ := newTestPublisher(t)
	require.NoError(t, p.Close())
	_, err := p.Print("ups.time: 1")
	assert.Equal(t, io.EOF, err)
}

func TestDefaults(t *testing.T) {
	p := New("", "")
	assert.Equal(t, "smartups", p.hash)
	assert.Equal(t, "smartups", p.channel)
}
