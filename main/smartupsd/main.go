// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the SmartUPS daemon run from the host's init system.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/platinasystems/smartups/cmd/smartupsd"
	"github.com/platinasystems/smartups/external/log"
)

func main() {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Tee(os.Stderr)
	}

	c := new(smartupsd.Command)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		log.Print("daemon", "info", "caught ", sig)
		c.Close()
	}()

	if err := c.Main(os.Args[1:]...); err != nil {
		log.Print("daemon", "err", c, ": ", err)
		if !isatty.IsTerminal(os.Stderr.Fd()) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", c, err)
		}
		os.Exit(1)
	}
}
