// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package log prints messages to a given writer, /dev/log, /dev/kmsg, or a
// byte buffer until one of these are available.
package log

import (
	"bytes"
	"fmt"
	"io"
	"log/syslog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const DevKmsg = "/dev/kmsg"
const DevLog = "/dev/log"

// Limited provides a logger with Print and Printf restricted to the given
// iterations.
type Limited struct {
	sync.Mutex
	i, N uint32
}

// RateLimited provides a logger with Print and Printf restricted to the given
// iterations per unit time. This must be created with NewRateLimited and
// destroyed with (*RateLimited).Close().
type RateLimited struct {
	*Limited
	stop chan<- struct{}
}

func (p *RateLimited) Close() error {
	close(p.stop)
	return nil
}

type teeT struct {
	sync.Mutex
	w io.Writer

	exclusive bool
}

type earlyT struct {
	sync.Mutex
	buf *bytes.Buffer
}

var (
	tee   teeT
	early = earlyT{buf: &bytes.Buffer{}}

	// debug verbosity, see SetDebug
	verbosity int32
)

var PriorityByName = map[string]syslog.Priority{
	"emerg": syslog.LOG_EMERG,
	"alert": syslog.LOG_ALERT,
	"crit":  syslog.LOG_CRIT,
	"err":   syslog.LOG_ERR,
	"warn":  syslog.LOG_WARNING,
	"note":  syslog.LOG_NOTICE,
	"info":  syslog.LOG_INFO,
	"debug": syslog.LOG_DEBUG,
}

var FacilityByName = map[string]syslog.Priority{
	"user":   syslog.LOG_USER,
	"daemon": syslog.LOG_DAEMON,
	"local0": syslog.LOG_LOCAL0,
	"local1": syslog.LOG_LOCAL1,
	"local2": syslog.LOG_LOCAL2,
	"local3": syslog.LOG_LOCAL3,
	"local4": syslog.LOG_LOCAL4,
	"local5": syslog.LOG_LOCAL5,
	"local6": syslog.LOG_LOCAL6,
	"local7": syslog.LOG_LOCAL7,
}

// NewLimited returns a logger with the given iteration restriction.
func NewLimited(n uint32) *Limited { return &Limited{N: n} }

// NewRateLimited returns a logger restricted to the given iterations per
// unit time that should be destroyed with `defer (*RateLimited).Close()`
func NewRateLimited(n uint32, d time.Duration) *RateLimited {
	stop := make(chan struct{})
	rl := &RateLimited{NewLimited(n), stop}
	go func(wait <-chan struct{}) {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				rl.reset()
			case <-wait:
				return
			}
		}
	}(stop)
	return rl
}

// Tee logged lines to Writer
func Tee(w io.Writer) {
	tee.Lock()
	defer tee.Unlock()
	tee.w = w
	tee.exclusive = false
}

// Redirect logged lines exclusively to Writer; nothing goes to /dev/log or
// /dev/kmsg until the next Tee.
func Redirect(w io.Writer) {
	tee.Lock()
	defer tee.Unlock()
	tee.w = w
	tee.exclusive = w != nil
}

// SetDebug sets the verbosity that Debugf compares its level against.
// Zero, the default, silences all Debugf output.
func SetDebug(level int) { atomic.StoreInt32(&verbosity, int32(level)) }

// Debug returns the current verbosity.
func Debug() int { return int(atomic.LoadInt32(&verbosity)) }

// Debugf logs with daemon facility and debug priority if level is within the
// verbosity set with SetDebug.
func Debugf(level int, format string, args ...interface{}) {
	if level > Debug() {
		return
	}
	log(syslog.LOG_DAEMON|syslog.LOG_DEBUG, id(), fmt.Sprintf(format, args...))
}

// DebugHex logs buf as hex bytes, 16 per line, when level is within the
// verbosity.
func DebugHex(level int, msg string, buf []byte) {
	if level > Debug() {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: (%d bytes)", msg, len(buf))
	for i, b := range buf {
		if i%16 == 0 {
			fmt.Fprintf(&sb, "\n%3d", i)
		}
		fmt.Fprintf(&sb, " %02x", b)
	}
	log(syslog.LOG_DAEMON|syslog.LOG_DEBUG, id(), sb.String())
}

// The default level is: Debug, Daemon. Upto the first two arguments may
// change this by name; e.g.
//
//	Print("user", ...)
//	Print("daemon", "err", ...)
//	Print("err", ...)
func Print(args ...interface{}) {
	pri, fac, a := logArgs(args...)
	log(pri|fac, id(), fmt.Sprint(a...))
}

// The default level is: Debug, Daemon. Upto the first two arguments may
// preceed the log format string to change the priority and facility like
// this:
//
//	Printf("user", format, ...)
//	Printf("daemon", "err", format, ...)
//	Printf("err", format, ...)
func Printf(args ...interface{}) {
	pri, fac, a := logArgs(args...)
	if len(a) <= 0 {
		// missing format
		return
	}
	format, ok := a[0].(string)
	if !ok {
		// a[0]: isn't string
		return
	}
	a = a[1:]
	log(pri|fac, id(), fmt.Sprintf(format, a...))
}

var cache struct {
	once sync.Once
	id   string
	pid  int
}

func id() string {
	cache.once.Do(func() {
		var prog string
		s, err := os.Readlink("/proc/self/exe")
		if err == nil {
			prog = filepath.Base(s)
		} else {
			prog = filepath.Base(os.Args[0])
		}
		if cache.pid == 0 {
			cache.pid = os.Getpid()
		}
		cache.id = fmt.Sprintf("%s[%d]", prog, cache.pid)
	})
	return cache.id
}

func logArgs(args ...interface{}) (pri, fac syslog.Priority, a []interface{}) {
	pri = syslog.LOG_DEBUG
	fac = syslog.LOG_DAEMON
	a = args
	for i := 0; len(a) > 1 && i < 2; i++ {
		s, ok := a[0].(string)
		if !ok {
			break
		}
		if v, found := PriorityByName[s]; found {
			pri = v
			a = a[1:]
			continue
		}
		if v, found := FacilityByName[s]; found {
			fac = v
			a = a[1:]
			continue
		}
		break
	}
	return
}

func log(pri syslog.Priority, id string, args ...interface{}) {
	lines := strings.Split(fmt.Sprint(args...), "\n")
	if tee.log(pri, id, lines) {
		return
	}
	if _, err := os.Stat(DevLog); err == nil {
		conn, err := net.Dial("unixgram", DevLog)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, s := range lines {
			fmt.Fprintf(conn, "<%d>%s %s: %s\n",
				pri, time.Now().Format(time.Stamp),
				id, s)
		}
	} else if k, err := os.OpenFile(DevKmsg, os.O_RDWR, 0644); err == nil {
		defer k.Close()
		early.flush(k)
		for _, s := range lines {
			fmt.Fprintf(k, "<%d>%s: %s\n", pri, id, s)
		}
	} else if os.IsNotExist(err) {
		early.log(pri, id, lines)
	}
}

// log to the tee writer, if any, and report whether it's exclusive.
func (p *teeT) log(pri syslog.Priority, id string, lines []string) bool {
	p.Lock()
	defer p.Unlock()
	if p.w == nil {
		return false
	}
	for _, s := range lines {
		fmt.Fprintf(p.w, "<%d>%s: %s\n", pri, id, s)
	}
	return p.exclusive
}

func (p *earlyT) log(pri syslog.Priority, id string, lines []string) {
	p.Lock()
	defer p.Unlock()
	for _, s := range lines {
		fmt.Fprintf(p.buf, "<%d>%s: %s\n", pri, id, s)
	}
}

func (p *earlyT) flush(w io.Writer) {
	p.Lock()
	defer p.Unlock()
	if p.buf.Len() == 0 {
		return
	}
	w.Write(p.buf.Bytes())
	p.buf.Reset()
}

func (l *Limited) limited(f func(...interface{}), args ...interface{}) {
	if atomic.LoadUint32(&l.i) == l.N {
		return
	}
	l.Lock()
	defer l.Unlock()
	if l.i < l.N {
		defer atomic.AddUint32(&l.i, 1)
		f(args...)
	}
}

func (l *Limited) reset() {
	l.Lock()
	defer l.Unlock()
	defer atomic.StoreUint32(&l.i, 0)
}

func (l *Limited) Print(args ...interface{}) {
	l.limited(Print, args...)
}

func (l *Limited) Printf(args ...interface{}) {
	l.limited(Printf, args...)
}
