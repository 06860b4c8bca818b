// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package atsock provides an interface to linux abstract sockets named "@NAME"
package atsock

import (
	"net"
	"strings"
	"time"
)

// Name returns the socket address of NAME or "@NAME".
func Name(name string) string {
	return "@" + strings.TrimPrefix(name, "@")
}

// DialTimeout connects to the streaming socket named "@NAME".
func DialTimeout(name string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", Name(name), timeout)
}
