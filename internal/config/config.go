// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package config loads the smartupsd YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendIoctl  = "ioctl"
	BackendPeriph = "periph"
)

type Config struct {
	Device  Device  `yaml:"device"`
	Poll    Poll    `yaml:"poll"`
	Redis   Redis   `yaml:"redis"`
	Metrics Metrics `yaml:"metrics"`
	Log     Log     `yaml:"log"`
}

type Device struct {
	// Port is the adapter, e.g. /dev/i2c-1, or a periph bus name.
	Port    string `yaml:"port"`
	Address int    `yaml:"address"`
	Backend string `yaml:"backend"`

	// Retries and Timeout tune the ioctl adapter; zero keeps the kernel
	// default.
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

type Poll struct {
	Interval time.Duration `yaml:"interval"`
}

type Redis struct {
	// Address is "@NAME" for an abstract socket or HOST:PORT.
	Address string `yaml:"address"`
	Hash    string `yaml:"hash"`
	Channel string `yaml:"channel"`
}

type Metrics struct {
	// Listen is the /metrics address; empty disables it.
	Listen string `yaml:"listen"`
}

type Log struct {
	Debug int `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Device: Device{
			Port:    "/dev/i2c-1",
			Address: 0x12,
			Backend: BackendIoctl,
		},
		Poll: Poll{
			Interval: 2 * time.Second,
		},
		Redis: Redis{
			Address: "@redisd",
			Hash:    "smartups",
			Channel: "smartups",
		},
		Metrics: Metrics{
			Listen: ":9102",
		},
	}
}

// Load reads path over the defaults. Fields missing from the file keep
// their default, an explicit empty metrics.listen disables the listener.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Device.Port) == 0 {
		errs = append(errs, errors.New("device.port is empty"))
	}
	if c.Device.Address < 0x03 || c.Device.Address > 0x77 {
		errs = append(errs, fmt.Errorf("device.address %#x not in 0x03..0x77",
			c.Device.Address))
	}
	switch c.Device.Backend {
	case BackendIoctl, BackendPeriph:
	default:
		errs = append(errs, fmt.Errorf("device.backend %q unknown",
			c.Device.Backend))
	}
	if c.Device.Retries < 0 {
		errs = append(errs, fmt.Errorf("device.retries %d negative",
			c.Device.Retries))
	}
	if c.Device.Timeout < 0 {
		errs = append(errs, fmt.Errorf("device.timeout %v negative",
			c.Device.Timeout))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval %v not positive",
			c.Poll.Interval))
	}
	if len(c.Redis.Address) == 0 {
		errs = append(errs, errors.New("redis.address is empty"))
	}
	if c.Log.Debug < 0 {
		errs = append(errs, fmt.Errorf("log.debug %d negative", c.Log.Debug))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
