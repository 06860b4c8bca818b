// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package smartupsd polls an OpenElectrons.com SmartUPS and publishes its
// state to redis.
package smartupsd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/platinasystems/smartups/external/log"
	"github.com/platinasystems/smartups/external/parms"
	"github.com/platinasystems/smartups/external/redis"
	"github.com/platinasystems/smartups/external/redis/publisher"
	"github.com/platinasystems/smartups/internal/config"
	"github.com/platinasystems/smartups/internal/dstate"
	"github.com/platinasystems/smartups/internal/flags"
	"github.com/platinasystems/smartups/internal/i2c"
	"github.com/platinasystems/smartups/internal/metrics"
	"github.com/platinasystems/smartups/internal/smartups"
)

const readyTimeout = 10 * time.Second

var ErrVariable = errors.New("no driver variables")

// Bus is an open, selectable I2C adapter.
type Bus interface {
	smartups.Bus
	io.Closer
}

type Publisher interface {
	dstate.Publisher
	io.Closer
}

type Command struct {
	// OpenBus, NewPublisher and Ready default to the i2c and redis
	// packages.
	OpenBus      func(config.Device) (Bus, error)
	NewPublisher func(config.Redis) (Publisher, error)
	Ready        func(time.Duration) error

	// Stdout receives the usage and detection banner.
	Stdout io.Writer

	mutex   sync.Mutex
	stop    chan struct{}
	stopped bool

	cfg     *config.Config
	metrics *metrics.Metrics
	state   *dstate.State
	dev     *smartups.Device
}

func (*Command) String() string { return "smartupsd" }

func (*Command) Usage() string {
	return `smartupsd [-k] [-config FILE] [-port DEVICE] [-backend ioctl|periph]
	[-interval DURATION] [-redis ADDR] [-hash NAME] [-metrics ADDR]
	[-D LEVEL]`
}

func (*Command) Apropos() string {
	return smartups.DriverName
}

func (c *Command) Main(args ...string) error {
	flag, args := flags.New(args,
		[]string{"-k", "-shutdown"},
		[]string{"-h", "-help", "--help"})
	parm, args := parms.New(args,
		"-config", []string{"-port", "-device"}, "-backend", "-interval",
		"-redis", "-hash", "-metrics", "-D", "-x")

	if flag.ByName["-h"] {
		fmt.Fprintln(c.stdout(), "usage:", c.Usage())
		return nil
	}
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	// the SmartUPS has no settable variables
	if s := parm.ByName["-x"]; len(s) > 0 {
		return fmt.Errorf("-x %s: %w", s, ErrVariable)
	}

	cfg, err := c.configure(parm)
	if err != nil {
		return err
	}
	log.SetDebug(cfg.Log.Debug)
	log.Debugf(1, "configuration:\n%s", cfg)

	// shutdown runs late in host teardown; it must not wait on redis or
	// contend for the metrics address
	if flag.ByName["-k"] {
		return c.shutdown(cfg.Device)
	}

	if err = c.ready()(readyTimeout); err != nil {
		return fmt.Errorf("redis %s: %w", cfg.Redis.Address, err)
	}

	pub, err := c.newPublisher(cfg.Redis)
	if err != nil {
		return err
	}
	defer pub.Close()

	m := metrics.New()
	if err = m.Listen(cfg.Metrics.Listen); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer m.Close()

	state := dstate.New(pub, m)
	defer state.Close()

	bus, err := c.openBus(cfg.Device)
	if err != nil {
		return err
	}
	defer bus.Close()

	dev := smartups.New(bus, state)
	dev.Addr = cfg.Device.Address
	dev.Out = c.stdout()

	c.mutex.Lock()
	c.cfg, c.metrics, c.state, c.dev = cfg, m, state, dev
	c.mutex.Unlock()

	state.SetInfo("driver.name", "%s", smartups.DriverName)
	state.SetInfo("driver.version", "%s", smartups.DriverVersion)

	state.SetInfo("driver.state", "init")
	if err = dev.InitInfo(); err != nil {
		return err
	}
	log.Print("daemon", "info", "polling ", bus, " every ", cfg.Poll.Interval)

	stop := c.stopCh()
	c.update()
	t := time.NewTicker(cfg.Poll.Interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-t.C:
			c.update()
		}
	}
}

func (c *Command) Close() error {
	stop := c.stopCh()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.stopped {
		c.stopped = true
		close(stop)
	}
	return nil
}

// shutdown commands the UPS to power off the load with nothing but the bus.
func (c *Command) shutdown(cfg config.Device) error {
	bus, err := c.openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()
	log.Print("daemon", "note", "shutting down the UPS")
	dev := smartups.New(bus, nil)
	dev.Addr = cfg.Address
	dev.Shutdown()
	return nil
}

func (c *Command) update() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	start := time.Now()
	c.state.SetInfo("driver.state", "updateinfo")
	c.dev.UpdateInfo()
	c.state.SetInfo("driver.state", "quiet")
	c.metrics.Observe(start)
}

func (c *Command) stopCh() chan struct{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stop == nil {
		c.stop = make(chan struct{})
	}
	return c.stop
}

// configure loads the file, if any, then applies the command line.
func (c *Command) configure(parm *parms.Parms) (*config.Config, error) {
	cfg := config.Default()
	if fn := parm.ByName["-config"]; len(fn) > 0 {
		var err error
		if cfg, err = config.Load(fn); err != nil {
			return nil, err
		}
	}
	for name, p := range map[string]*string{
		"-port":    &cfg.Device.Port,
		"-backend": &cfg.Device.Backend,
		"-redis":   &cfg.Redis.Address,
		"-hash":    &cfg.Redis.Hash,
		"-metrics": &cfg.Metrics.Listen,
	} {
		if s := parm.ByName[name]; len(s) > 0 {
			*p = s
		}
	}
	var err error
	if cfg.Poll.Interval, err = parm.Duration("-interval",
		cfg.Poll.Interval); err != nil {
		return nil, err
	}
	if cfg.Log.Debug, err = parm.Int("-D", cfg.Log.Debug); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	redis.Address = cfg.Redis.Address
	return cfg, nil
}

func (c *Command) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c *Command) ready() func(time.Duration) error {
	if c.Ready != nil {
		return c.Ready
	}
	return redis.IsReady
}

func (c *Command) newPublisher(cfg config.Redis) (Publisher, error) {
	if c.NewPublisher != nil {
		return c.NewPublisher(cfg)
	}
	return publisher.New(cfg.Hash, cfg.Channel), nil
}

func (c *Command) openBus(cfg config.Device) (Bus, error) {
	if c.OpenBus != nil {
		return c.OpenBus(cfg)
	}
	switch cfg.Backend {
	case config.BackendPeriph:
		return i2c.OpenPeriph(strings.TrimPrefix(cfg.Port, "/dev/i2c-"))
	}
	bus, err := i2c.Open(cfg.Port)
	if err != nil {
		return nil, err
	}
	if err = tune(bus, cfg); err != nil {
		bus.Close()
		return nil, err
	}
	return bus, nil
}

type tunable interface {
	SetRetries(n int) error
	SetTimeout(n int) error
}

// tune applies the adapter retry count and timeout; zero leaves the kernel
// default.
func tune(bus tunable, cfg config.Device) error {
	if cfg.Retries > 0 {
		if err := bus.SetRetries(cfg.Retries); err != nil {
			return err
		}
	}
	if cfg.Timeout > 0 {
		// I2C_TIMEOUT counts 10ms jiffies
		n := int((cfg.Timeout + 10*time.Millisecond - 1) /
			(10 * time.Millisecond))
		if err := bus.SetTimeout(n); err != nil {
			return err
		}
	}
	return nil
}
