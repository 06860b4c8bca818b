// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package parms parses valued options from command arguments.
package parms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errNotFound = errors.New("not found")

type Parms struct {
	ByName  ByName
	aliases Aliases
}

type ByName map[string]string
type Aliases map[string]string

// Define and parse {NAME{=|' '}VALUE} parameters from command arguments, e.g.
//
//	parm, args := parms.New([]string{"-port", "/dev/i2c-1",
//		"-interval=5s", "extra"}, "-port", "-interval", "-D")
//
// results in
//
//	parm.ByName["-port"] == "/dev/i2c-1"
//	parm.ByName["-interval"] == "5s"
//	parm.ByName["-D"] == ""
//	args == []string{"extra"}
//
// Parameters may be defined with string slices that include aliases of the
// first entry, e.g. []string{"-port", "-device"}. Repeated parameters are
// space separated.
func New(args []string, parms ...interface{}) (*Parms, []string) {
	p := &Parms{
		ByName:  make(ByName),
		aliases: make(Aliases),
	}
	if len(parms) > 0 {
		args = p.More(args, parms...)
	}
	return p, args
}

// Define and parse more parameters from command arguments.
func (p *Parms) More(args []string, parms ...interface{}) []string {
	for _, v := range parms {
		switch t := v.(type) {
		case string:
			p.ByName[t] = ""
		case []string:
			p.ByName[t[0]] = ""
			for _, aka := range t[1:] {
				p.aliases[aka] = t[0]
			}
		}
	}
	return p.Parse(args)
}

// Parse predefined parameters from command arguments.
func (p *Parms) Parse(args []string) []string {
	for i := 0; i < len(args); {
		if eq := strings.Index(args[i], "="); eq > 0 &&
			p.set(p.name(args[i][:eq]), args[i][eq+1:]) == nil {
			copy(args[i:], args[i+1:])
			args = args[:len(args)-1]
		} else if i < len(args)-1 &&
			p.set(p.name(args[i]), args[i+1]) == nil {
			copy(args[i:], args[i+2:])
			args = args[:len(args)-2]
		} else {
			i++
		}
	}
	return args
}

func (p *Parms) name(s string) string {
	if k, found := p.aliases[s]; found {
		return k
	}
	return s
}

// set will concatenate a non empty parmeter.
func (p *Parms) set(name, value string) error {
	cur, found := p.ByName[name]
	if !found {
		return errNotFound
	}
	if len(cur) > 0 && len(value) > 0 {
		p.ByName[name] = cur + " " + value
	} else {
		p.ByName[name] = value
	}
	return nil
}

// Int returns the named parameter in any Go integer base, or def if unset.
func (p *Parms) Int(name string, def int) (int, error) {
	s := p.ByName[name]
	if len(s) == 0 {
		return def, nil
	}
	i, err := strconv.ParseInt(s, 0, 0)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return int(i), nil
}

// Duration returns the named parameter, or def if unset.
func (p *Parms) Duration(name string, def time.Duration) (time.Duration, error) {
	s := p.ByName[name]
	if len(s) == 0 {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
