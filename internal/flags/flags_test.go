// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var upsflags = []interface{}{
	[]string{"-k", "-shutdown"},
	"-q",
	[]string{"-h", "-help", "--help"},
}

func TestNone(t *testing.T) {
	p, args := New([]string{"-port", "/dev/i2c-1"}, upsflags...)
	assert.Equal(t, ByName{"-k": false, "-q": false, "-h": false}, p.ByName)
	assert.Equal(t, []string{"-port", "/dev/i2c-1"}, args)
}

func TestSingle(t *testing.T) {
	p, args := New([]string{"-D", "1", "-k"}, upsflags...)
	assert.True(t, p.ByName["-k"])
	assert.False(t, p.ByName["-q"])
	assert.Equal(t, []string{"-D", "1"}, args)
}

func TestCombined(t *testing.T) {
	p, args := New([]string{"-kq"}, upsflags...)
	assert.True(t, p.ByName["-k"])
	assert.True(t, p.ByName["-q"])
	assert.Empty(t, args)
}

func TestCombinedUnknown(t *testing.T) {
	p, args := New([]string{"-kz"}, upsflags...)
	assert.False(t, p.ByName["-k"])
	assert.False(t, p.ByName["-q"])
	assert.Equal(t, []string{"-kz"}, args)
}

func TestAlias(t *testing.T) {
	p, args := New([]string{"-shutdown", "--help"}, upsflags...)
	assert.True(t, p.ByName["-k"])
	assert.True(t, p.ByName["-h"])
	assert.Empty(t, args)
}

func TestMore(t *testing.T) {
	p, args := New([]string{"-q", "-v"}, "-q")
	assert.Equal(t, []string{"-v"}, args)
	args = p.More(args, "-v")
	assert.Equal(t, ByName{"-q": true, "-v": true}, p.ByName)
	assert.Empty(t, args)
}
