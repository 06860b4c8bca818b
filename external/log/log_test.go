// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package log

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	cache.pid = 6789
	os.Exit(m.Run())
}

func TestPrint(t *testing.T) {
	defer expect(`
<31>log.test[6789]: a message with default facility/priority [fac/pri]
<15>log.test[6789]: a message with user fac and default pri
<27>log.test[6789]: a message with daemon fac and err pri
<29>log.test[6789]: a message with default fac and note pri
<31>log.test[6789]: a multi-
<31>log.test[6789]: line message with default fac/pri
`[1:]).results(t)

	Print("a message with default facility/priority [fac/pri]")
	Print("user", "a message with user fac and default pri")
	Print("daemon", "err", "a message with daemon fac and err pri")
	Print("note", "a message with default fac and note pri")
	Print(`
a multi-
line message with default fac/pri`[1:])
}

func TestPrintf(t *testing.T) {
	defer expect(`
<31>log.test[6789]: a formatted message with default fac/pri
<27>log.test[6789]: a formatted message with err pri
<28>log.test[6789]: a formatted message 0x12 with warn pri
`[1:]).results(t)

	Printf("a formatted message %s", "with default fac/pri")
	Printf("err", "a formatted message %s", "with err pri")
	Printf("daemon", "warn", "a formatted message %#02x %s", 0x12,
		"with warn pri")
}

func TestDebugf(t *testing.T) {
	defer SetDebug(0)
	defer expect(`
<31>log.test[6789]: level 1 at verbosity 2
<31>log.test[6789]: level 2 at verbosity 2
`[1:]).results(t)

	Debugf(1, "level %d at verbosity %d", 1, Debug())
	SetDebug(2)
	Debugf(1, "level %d at verbosity %d", 1, Debug())
	Debugf(2, "level %d at verbosity %d", 2, Debug())
	Debugf(3, "level %d at verbosity %d", 3, Debug())
}

func TestDebugHex(t *testing.T) {
	defer SetDebug(0)
	defer expect(`
<31>log.test[6789]: read buffer: (3 bytes)
<31>log.test[6789]:   0 42 00 1f
`[1:]).results(t)

	SetDebug(3)
	DebugHex(3, "read buffer", []byte{0x42, 0x00, 0x1f})
	DebugHex(4, "too verbose", []byte{0x42})
}

func TestLimitedPrint(t *testing.T) {
	defer expect(`
<31>log.test[6789]: first message
<31>log.test[6789]: second message
<31>log.test[6789]: third message
`[1:]).results(t)

	l := NewLimited(3)
	l.Print("first message")
	l.Print("second message")
	l.Print("third message")
	l.Print("fourth message should be dropped")
}

func TestRateLimitedPrint(t *testing.T) {
	defer expect(`
<31>log.test[6789]: first message
<31>log.test[6789]: second message
<31>log.test[6789]: third message
<31>log.test[6789]: fifth message after fourth is rate limited
`[1:]).results(t)

	rl := NewRateLimited(3, 500*time.Millisecond)
	defer rl.Close()
	rl.Print("first message")
	rl.Print("second message")
	rl.Print("third message")
	rl.Print("fourth message should be dropped")
	time.Sleep(750 * time.Millisecond)
	rl.Print("fifth message after fourth is rate limited")
}

func expect(s string) want {
	Redirect(new(bytes.Buffer))
	return want(s)
}

type want string

func (s want) results(t *testing.T) {
	t.Helper()
	buf := tee.w.(*bytes.Buffer)
	got := buf.String()
	defer buf.Reset()
	if got != string(s) {
		t.Error("got:\n", got, "want:\n", string(s))
	} else if testing.Verbose() {
		os.Stdout.WriteString(got)
	}
}
