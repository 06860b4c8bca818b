// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package parms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var upsparms = []interface{}{
	[]string{"-port", "-device"},
	"-interval",
	"-D",
	"-x",
}

func TestSpaced(t *testing.T) {
	p, args := New([]string{"-port", "/dev/i2c-1", "-D", "3"}, upsparms...)
	assert.Equal(t, ByName{
		"-port":     "/dev/i2c-1",
		"-interval": "",
		"-D":        "3",
		"-x":        "",
	}, p.ByName)
	assert.Empty(t, args)
}

func TestEquals(t *testing.T) {
	p, args := New([]string{"-interval=5s", "-k"}, upsparms...)
	assert.Equal(t, "5s", p.ByName["-interval"])
	assert.Equal(t, []string{"-k"}, args)
}

func TestAlias(t *testing.T) {
	p, args := New([]string{"-device", "/dev/i2c-2"}, upsparms...)
	assert.Equal(t, "/dev/i2c-2", p.ByName["-port"])
	assert.Empty(t, args)

	p, args = New([]string{"-device=/dev/i2c-3"}, upsparms...)
	assert.Equal(t, "/dev/i2c-3", p.ByName["-port"])
	assert.Empty(t, args)
}

func TestRepeated(t *testing.T) {
	p, args := New([]string{"-x", "a=1", "-x", "b=2"}, upsparms...)
	assert.Equal(t, "a=1 b=2", p.ByName["-x"])
	assert.Empty(t, args)
}

func TestUndefined(t *testing.T) {
	p, args := New([]string{"-k", "-bogus", "1", "-D"}, upsparms...)
	assert.Equal(t, "", p.ByName["-D"])
	assert.Equal(t, []string{"-k", "-bogus", "1", "-D"}, args)

	_, args = New([]string{"foo=bar"}, upsparms...)
	assert.Equal(t, []string{"foo=bar"}, args)
}

func TestParseMore(t *testing.T) {
	p, _ := New([]string{"-D", "3"}, upsparms...)
	args := p.Parse([]string{"-D", "1", "extra"})
	assert.Equal(t, "3 1", p.ByName["-D"])
	assert.Equal(t, []string{"extra"}, args)
}

func TestInt(t *testing.T) {
	p, _ := New([]string{"-D", "0x12"}, upsparms...)
	i, err := p.Int("-D", 0)
	assert.NoError(t, err)
	assert.Equal(t, 0x12, i)

	p, _ = New(nil, upsparms...)
	i, err = p.Int("-D", 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, i)

	p, _ = New([]string{"-D=lots"}, upsparms...)
	_, err = p.Int("-D", 0)
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	p, _ := New([]string{"-interval", "500ms"}, upsparms...)
	d, err := p.Duration("-interval", time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	p, _ = New(nil, upsparms...)
	d, err = p.Duration("-interval", time.Second)
	assert.NoError(t, err)
	assert.Equal(t, time.Second, d)

	p, _ = New([]string{"-interval=2"}, upsparms...)
	_, err = p.Duration("-interval", time.Second)
	assert.Error(t, err)
}
