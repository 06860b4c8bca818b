// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package i2c

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphBus does the same transfers as Bus through a periph.io i2c.Bus,
// for hosts where the periph drivers are preferred to raw ioctls.
type PeriphBus struct {
	bus i2c.Bus
	dev i2c.Dev
}

// OpenPeriph initializes the periph host drivers and opens the named bus,
// e.g. "1", "I2C1" or "/dev/i2c-1".
func OpenPeriph(name string) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periph open %s: %w", name, err)
	}
	return NewPeriph(bus), nil
}

// NewPeriph wraps an already open periph bus.
func NewPeriph(bus i2c.Bus) *PeriphBus {
	return &PeriphBus{
		bus: bus,
		dev: i2c.Dev{Bus: bus},
	}
}

func (p *PeriphBus) String() string { return p.bus.String() }

func (p *PeriphBus) SetSlaveAddress(n int) error {
	if n < 0 || n > 0x3ff {
		return fmt.Errorf("set slave address: %#x out of range", n)
	}
	p.dev.Addr = uint16(n)
	return nil
}

func (p *PeriphBus) Read(b []byte) (int, error) {
	if err := p.dev.Tx(nil, b); err != nil {
		return 0, chk("read", err)
	}
	return len(b), nil
}

func (p *PeriphBus) Write(b []byte) (int, error) {
	n, err := p.dev.Write(b)
	return n, chk("write", err)
}

// Close the underlying bus if it may be closed.
func (p *PeriphBus) Close() error {
	if c, ok := p.bus.(i2c.BusCloser); ok {
		return c.Close()
	}
	return nil
}
