// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package smartups

import "fmt"

// Battery state register values.
const (
	StateIdle       = 0 // figuring out battery status
	StatePrecharge  = 1
	StateCharging   = 2
	StateTopOff     = 3
	StateCharged    = 4
	StateDischarge  = 5
	StateCritical   = 6
	StateDischarged = 7
)

var statusByState = map[uint16]string{
	StateIdle:       "OL",
	StatePrecharge:  "OL CHRG",
	StateCharging:   "OL CHRG",
	StateTopOff:     "OL CHRG",
	StateCharged:    "OL",
	StateDischarge:  "OB",
	StateCritical:   "OB LB",
	StateDischarged: "OB LB",
}

// Status returns the ups.status tokens of a battery state and false for an
// unknown state.
func Status(state uint16) (string, bool) {
	s, found := statusByState[state]
	return s, found
}

// Button state register values that move the forced shutdown latch.
const (
	ButtonShutdown     = 0x9
	ButtonShutdownLong = 0xa
)

// Latch returns the forced shutdown latch after seeing a button state. A
// shutdown code sets it, a button press clears it, anything else leaves it.
func Latch(latched bool, button uint16) bool {
	switch button {
	case ButtonShutdown, ButtonShutdownLong:
		return true
	case 1, 2, 3:
		return false
	}
	return latched
}

// Contacts is the ups.contacts bitmask of a button state.
func Contacts(button uint16) string {
	return fmt.Sprintf("%x", button&3)
}

// Current splits a raw battery current into sign and magnitude; values with
// bit 15 set are negative as 65536 - raw.
func Current(raw uint16) (sign byte, mag uint32) {
	if raw&(1<<15) != 0 {
		return '-', 65536 - uint32(raw)
	}
	return '+', uint32(raw)
}

// FormatCurrent publishes milliamps as signed amps, e.g. "-0.500".
func FormatCurrent(raw uint16) string {
	sign, mag := Current(raw)
	return fmt.Sprintf("%c%s", sign, FormatMilli(mag))
}

// FormatMilli prints thousandths with three fractional digits.
func FormatMilli(v uint32) string {
	return fmt.Sprintf("%d.%03d", v/1000, v%1000)
}

// Charge is 100 * capacity / full rounded down; false when full is zero.
func Charge(capacity, full uint16) (uint32, bool) {
	if full == 0 {
		return 0, false
	}
	return 100 * uint32(capacity) / uint32(full), true
}
