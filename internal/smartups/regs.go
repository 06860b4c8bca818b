// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package smartups

import "encoding/binary"

// Address is the fixed slave address of the SmartUPS.
const Address = 0x12

// A Reg describes one field of the SmartUPS register map.
type Reg struct {
	Name   string
	Offset uint8
	Width  uint8

	// Unpublished fields are read with the window but never reach the
	// store.
	Unpublished bool
}

// Memory map
var (
	Firmware = Reg{Name: "firmware", Offset: 0x00, Width: 8}
	Vendor   = Reg{Name: "vendor", Offset: 0x08, Width: 8}
	Model    = Reg{Name: "model", Offset: 0x10, Width: 8}

	Command            = Reg{Name: "command", Offset: 0x41, Width: 1}
	RestartOption      = Reg{Name: "restart option", Offset: 0x42, Width: 1}
	ButtonState        = Reg{Name: "button state", Offset: 0x43, Width: 1}
	RestartTime        = Reg{Name: "restart time", Offset: 0x44, Width: 2}
	BatteryState       = Reg{Name: "battery state", Offset: 0x46, Width: 1}
	BatteryCurrent     = Reg{Name: "battery current", Offset: 0x48, Width: 2}
	BatteryVoltage     = Reg{Name: "battery voltage", Offset: 0x4a, Width: 2}
	BatteryCapacity    = Reg{Name: "battery capacity", Offset: 0x4c, Width: 2}
	BatteryRuntime     = Reg{Name: "battery runtime", Offset: 0x4e, Width: 2}
	BatteryTemperature = Reg{Name: "battery temperature", Offset: 0x50, Width: 1}
	BatteryHealth      = Reg{Name: "battery health", Offset: 0x51, Width: 1}
	// Output voltage is non-zero but wrong and output current is always
	// zero with firmware V1.03.
	OutputVoltage      = Reg{Name: "output voltage", Offset: 0x52, Width: 2, Unpublished: true}
	OutputCurrent      = Reg{Name: "output current", Offset: 0x54, Width: 2, Unpublished: true}
	BatteryMaxCapacity = Reg{Name: "battery max capacity", Offset: 0x56, Width: 2}
	Seconds            = Reg{Name: "seconds", Offset: 0x58, Width: 2}
)

// Window is every register decoded by an update, in map order.
var Window = []Reg{
	RestartOption,
	ButtonState,
	RestartTime,
	BatteryState,
	BatteryCurrent,
	BatteryVoltage,
	BatteryCapacity,
	BatteryRuntime,
	BatteryTemperature,
	BatteryHealth,
	OutputVoltage,
	OutputCurrent,
	BatteryMaxCapacity,
	Seconds,
}

const (
	// ShutdownValue written to Command powers off the load ('S').
	ShutdownValue = 0x53

	// WindowStart and WindowLen cover RestartOption through Seconds with
	// a spare trailing byte.
	WindowStart = 0x42
	WindowLen   = 0x58 + 2 - WindowStart + 1
)

// A Snapshot holds the register window at its device offsets.
type Snapshot [256]byte

// Window returns the slice an update reads into.
func (s *Snapshot) Window() []byte {
	return s[WindowStart : WindowStart+WindowLen]
}

// Get returns the little-endian value of a 1 or 2 byte register.
func (s *Snapshot) Get(r Reg) uint16 {
	if r.Width == 1 {
		return uint16(s[r.Offset])
	}
	return binary.LittleEndian.Uint16(s[r.Offset:])
}
