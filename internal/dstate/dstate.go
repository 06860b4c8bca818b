// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package dstate keeps the driver's published variables and forwards each
// change to a publisher as a "key: value" line.
package dstate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinasystems/smartups/external/log"
	"github.com/platinasystems/smartups/external/redis"
	"github.com/platinasystems/smartups/internal/metrics"
)

const StaleKey = "driver.stale"

type Publisher interface {
	Print(a ...interface{}) (int, error)
}

type State struct {
	mutex sync.Mutex

	pub     Publisher
	metrics *metrics.Metrics
	errlog  *log.RateLimited

	// info is the driver's view; sent is what the store last accepted.
	info   map[string]string
	sent   map[string]string
	status []string

	staleKnown bool
	stale      bool
}

// New returns a State publishing through pub; m may be nil.
func New(pub Publisher, m *metrics.Metrics) *State {
	return &State{
		pub:     pub,
		metrics: m,
		errlog:  log.NewRateLimited(1, time.Minute),
		info:    make(map[string]string),
		sent:    make(map[string]string),
	}
}

func (s *State) Close() error {
	return s.errlog.Close()
}

// SetInfo formats and publishes key if its value changed.
func (s *State) SetInfo(key, format string, args ...interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.set(key, fmt.Sprintf(format, args...))
}

func (s *State) GetInfo(key string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.info[key]
}

// DelInfo unpublishes key.
func (s *State) DelInfo(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.info, key)
	if s.metrics != nil {
		s.metrics.Telemetry.DeleteLabelValues(key)
	}
	if _, found := s.sent[key]; !found {
		return
	}
	if s.publish("delete: ", key) {
		delete(s.sent, key)
	}
}

func (s *State) StatusInit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status = s.status[:0]
}

// StatusSet appends space separated tokens, skipping duplicates.
func (s *State) StatusSet(tokens string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
next:
	for _, tok := range strings.Fields(tokens) {
		for _, have := range s.status {
			if have == tok {
				continue next
			}
		}
		s.status = append(s.status, tok)
	}
}

func (s *State) StatusCommit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var fsd bool
	for _, tok := range s.status {
		if tok == "FSD" {
			fsd = true
		}
	}
	if s.metrics != nil {
		s.metrics.SetShutdown(fsd)
	}
	s.set("ups.status", strings.Join(s.status, " "))
}

// DataOK and DataStale end every poll; they also resend whatever the store
// missed.
func (s *State) DataOK() { s.setStale(false) }

func (s *State) DataStale() { s.setStale(true) }

// Stale reports whether the last poll failed.
func (s *State) Stale() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stale
}

func (s *State) setStale(stale bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.metrics != nil {
		s.metrics.SetStale(stale)
		if stale {
			s.metrics.PollErrors.Inc()
		}
	}
	if !s.staleKnown || s.stale != stale {
		s.staleKnown = true
		s.stale = stale
		if stale {
			log.Print("warn", "data stale")
		} else {
			log.Print("info", "data ok")
		}
	}
	s.set(StaleKey, strconv.FormatBool(stale))
	s.resend()
}

func (s *State) set(key, value string) {
	s.info[key] = value
	if s.metrics != nil {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			s.metrics.SetTelemetry(key, f)
		}
	}
	s.send(key, value)
}

func (s *State) send(key, value string) {
	if sent, found := s.sent[key]; found && sent == value {
		return
	}
	if s.publish(key, ": ", redis.Quotes(value)) {
		s.sent[key] = value
	}
}

// resend the values a failed publish left behind.
func (s *State) resend() {
	var keys []string
	for k, v := range s.info {
		if sent, found := s.sent[k]; !found || sent != v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.send(k, s.info[k])
	}
}

func (s *State) publish(a ...interface{}) bool {
	if s.pub == nil {
		return true
	}
	if _, err := s.pub.Print(a...); err != nil {
		s.errlog.Print("err", "publish: ", err)
		return false
	}
	return true
}
