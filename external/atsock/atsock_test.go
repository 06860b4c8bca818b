// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package atsock

import (
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testName(t *testing.T) string {
	return fmt.Sprintf("atsock-test-%d-%s", os.Getpid(), t.Name())
}

func TestName(t *testing.T) {
	assert.Equal(t, "@redisd", Name("redisd"))
	assert.Equal(t, "@redisd", Name("@redisd"))
}

func TestStream(t *testing.T) {
	name := testName(t)
	ln, err := net.Listen("unix", Name(name))
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn)
	}()

	conn, err := DialTimeout("@"+name, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("PING\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 6)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "PING\r\n", string(buf))
}

func TestDialMissing(t *testing.T) {
	_, err := DialTimeout(testName(t), time.Second)
	assert.Error(t, err)
}
