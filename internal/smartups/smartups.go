// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package smartups drives the OpenElectrons.com SmartUPS power supply on a
// Linux I2C bus.
//
// The device exposes a flat byte addressed register map at slave address
// 0x12. Identify reads the descriptive strings, UpdateInfo reads one
// register window per poll and publishes the decoded telemetry, and Shutdown
// tells the UPS to power off the load.
package smartups

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/platinasystems/smartups/external/log"
)

const (
	DriverName    = "OpenElectrons.com SmartUPS I2C driver"
	DriverVersion = "0.9"

	// ExpectedFirmware is the only revision the register map was checked
	// against.
	ExpectedFirmware = "V1.03"
)

var (
	ErrSelect     = errors.New("could not select slave address")
	ErrIdentify   = errors.New("could not identify device")
	ErrShortRead  = errors.New("short read")
	ErrShortWrite = errors.New("short write")
)

// Bus is the selected I2C adapter. Write of a one byte offset followed by
// Read returns registers starting at that offset.
type Bus interface {
	SetSlaveAddress(addr int) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Store receives the telemetry, keyed by NUT variable name.
type Store interface {
	SetInfo(key, format string, args ...interface{})
	GetInfo(key string) string
	DelInfo(key string)
	StatusInit()
	StatusSet(status string)
	StatusCommit()
	DataOK()
	DataStale()
}

// Device is the context of one SmartUPS. It is not safe for concurrent use;
// the poll loop owns it.
type Device struct {
	Bus   Bus
	Store Store
	Addr  int

	// Out receives the detection banner.
	Out io.Writer

	initialized bool
	fsd         bool
}

func New(bus Bus, store Store) *Device {
	return &Device{
		Bus:   bus,
		Store: store,
		Addr:  Address,
		Out:   os.Stdout,
	}
}

// Initialized reports whether identification succeeded since the last update
// failure.
func (d *Device) Initialized() bool { return d.initialized }

// ForcedShutdown reports the forced shutdown latch.
func (d *Device) ForcedShutdown() bool { return d.fsd }

// InitInfo identifies the device at startup; any error is fatal to the
// driver.
func (d *Device) InitInfo() error {
	return d.Identify(true)
}

// Identify reads the vendor, model and firmware strings and publishes the
// static metadata. When fatal is false a read failure is only logged and nil
// returned, leaving the device uninitialized. Failure to select the slave is
// always returned.
func (d *Device) Identify(fatal bool) error {
	log.Debugf(2, "identify: select slave %#02x", d.Addr)
	if err := d.Bus.SetSlaveAddress(d.Addr); err != nil {
		return fmt.Errorf("%w %#02x: %w", ErrSelect, d.Addr, err)
	}

	var id [3]string
	for i, r := range []Reg{Vendor, Model, Firmware} {
		s, err := d.readString(r)
		if err != nil {
			if fatal {
				return fmt.Errorf("%w: %s: %w", ErrIdentify, r.Name, err)
			}
			log.Debugf(1, "identify: %s: %v", r.Name, err)
			return nil
		}
		id[i] = s
		switch r {
		case Vendor:
			log.Debugf(1, "Vendor ID = '%s'", s)
			if s == "Openelec" {
				d.Store.SetInfo("ups.mfr", "OpenElectrons.com")
			} else {
				d.Store.SetInfo("ups.mfr", "%s", s)
			}
		case Model:
			log.Debugf(1, "Device ID = '%s'", s)
			d.Store.SetInfo("ups.model", "%s", s)
		case Firmware:
			log.Debugf(1, "Firmware version = '%s'", s)
			d.Store.SetInfo("ups.firmware", "%s", s)
			if s != ExpectedFirmware {
				log.Debugf(1, "Expecting firmware '%s', got '%s'",
					ExpectedFirmware, s)
			}
		}
	}

	d.Store.SetInfo("output.voltage.nominal", "5.0")
	d.Store.SetInfo("battery.voltage.nominal", "4.5")
	// the charger only does NiMH
	d.Store.SetInfo("battery.type", "NiMH")
	d.Store.SetInfo("ups.delay.shutdown", "50")

	if d.Out != nil {
		fmt.Fprintf(d.Out, "Detected: %s %s (%s)\n",
			d.Store.GetInfo("ups.mfr"), id[1], id[2])
	}

	d.initialized = true
	d.fsd = false
	return nil
}

func (d *Device) readString(r Reg) (string, error) {
	log.Debugf(3, "%s: selecting offset %#02x", r.Name, r.Offset)
	if _, err := d.Bus.Write([]byte{r.Offset}); err != nil {
		log.Printf("note", "%s: could not write offset %#02x for reading: %v",
			r.Name, r.Offset, err)
		return "", err
	}
	log.Debugf(3, "%s: reading %d bytes from offset %#02x",
		r.Name, r.Width, r.Offset)
	buf := make([]byte, r.Width)
	n, err := d.Bus.Read(buf)
	if err != nil {
		log.Printf("note", "%s: could not read from offset %#02x: %v",
			r.Name, r.Offset, err)
		return "", err
	}
	if n != len(buf) {
		log.Printf("note", "%s: requested %d bytes, got %d",
			r.Name, len(buf), n)
	}
	buf = buf[:n]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	log.Debugf(3, "%s: got '%s'", r.Name, buf)
	return string(buf), nil
}

// UpdateInfo polls the register window and publishes the telemetry. An I/O
// failure marks the data stale and forces identification on the next call.
func (d *Device) UpdateInfo() {
	if !d.initialized {
		if err := d.Identify(false); err != nil {
			log.Print("err", err)
			d.stale()
			return
		}
	}

	var snap Snapshot
	if err := d.read(&snap); err != nil {
		log.Print("err", err)
		d.stale()
		return
	}
	d.decode(&snap)
	d.Store.DataOK()
	log.Debugf(2, "done with update")
}

func (d *Device) stale() {
	d.Store.DataStale()
	d.initialized = false
}

func (d *Device) read(snap *Snapshot) error {
	log.Debugf(2, "update: select offset %#02x", WindowStart)
	if _, err := d.Bus.Write([]byte{WindowStart}); err != nil {
		return fmt.Errorf("could not set address (no ACK?): %w", err)
	}
	log.Debugf(2, "update: read %#02x bytes", WindowLen)
	w := snap.Window()
	n, err := d.Bus.Read(w)
	if err != nil {
		return fmt.Errorf("could not read data block: %w", err)
	}
	if n != len(w) {
		return fmt.Errorf("could not read data block: %w: %d of %d bytes",
			ErrShortRead, n, len(w))
	}
	log.DebugHex(3, "read buffer", w)
	return nil
}

func (d *Device) decode(snap *Snapshot) {
	for _, r := range Window {
		if r.Unpublished {
			continue
		}
		v := snap.Get(r)
		if r.Width == 1 {
			log.Debugf(1, "%s: %#02x (%d)", r.Name, v, v)
		} else {
			log.Debugf(1, "%s: %#04x (%d)", r.Name, v, v)
		}
	}

	d.Store.SetInfo("battery.current", "%s",
		FormatCurrent(snap.Get(BatteryCurrent)))
	d.Store.SetInfo("battery.voltage", "%s",
		FormatMilli(uint32(snap.Get(BatteryVoltage))))
	d.Store.SetInfo("battery.runtime", "%d", snap.Get(BatteryRuntime))
	d.Store.SetInfo("battery.temperature", "%d",
		snap.Get(BatteryTemperature))

	capacity := snap.Get(BatteryCapacity)
	full := snap.Get(BatteryMaxCapacity)
	if charge, ok := Charge(capacity, full); ok {
		d.Store.SetInfo("battery.charge", "%d", charge)
	} else {
		log.Print("warn", "battery max capacity is zero, no charge")
		d.Store.DelInfo("battery.charge")
	}

	d.Store.SetInfo("ups.time", "%d", snap.Get(Seconds))

	button := snap.Get(ButtonState)
	d.Store.SetInfo("ups.contacts", "%s", Contacts(button))
	d.fsd = Latch(d.fsd, button)

	state := snap.Get(BatteryState)
	d.Store.StatusInit()
	if status, found := Status(state); found {
		d.Store.StatusSet(status)
	} else {
		log.Printf("warn", "unknown battery state %#02x", state)
	}
	if d.fsd {
		d.Store.StatusSet("FSD")
	}
	d.Store.StatusCommit()
}

// Shutdown tells the UPS to power off the load. It never blocks or retries;
// failures are only logged.
func (d *Device) Shutdown() {
	if err := d.Bus.SetSlaveAddress(d.Addr); err != nil {
		log.Print("err", "shutdown: ", err)
	}
	cmd := []byte{Command.Offset, ShutdownValue}
	n, err := d.Bus.Write(cmd)
	if err == nil && n != len(cmd) {
		err = ErrShortWrite
	}
	if err != nil {
		log.Printf("err", "could not send shutdown command (ret = %d): %v",
			n, err)
	}
}
