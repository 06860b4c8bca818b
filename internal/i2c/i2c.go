// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package i2c supports Linux I2C devices.
//
// Transfers are plain read(2) and write(2) on /dev/i2c-X after the slave
// address has been selected with an ioctl, so a register read is a one byte
// offset write followed by a read of the register window.
package i2c

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// /dev/i2c-X ioctl commands.  The ioctl's parameter is always an unsigned
// long, except for I2C_FUNCS, which takes pointer to an unsigned long.
type IoctlOp uintptr

const (
	I2C_RETRIES     IoctlOp = 0x0701 /* number of times a device address should be polled when not acknowledging */
	I2C_TIMEOUT     IoctlOp = 0x0702 /* Set timeout in units of 10 ms */
	I2C_SLAVE       IoctlOp = 0x0703 /* Use this slave address */
	I2C_FUNCS       IoctlOp = 0x0705 /* Get the adapter functionality mask */
)

// Functionality (features)
type FeatureFlag uint32

// I2C is the only feature needed: plain read and write transfers.
const I2C FeatureFlag = 0x00000001

type Bus struct {
	// Device path, e.g. /dev/i2c-1
	path string

	// File descriptor for path
	fd int

	features FeatureFlag
}

// Open the I2C character device at path and verify that its adapter can do
// plain I2C transfers.
func Open(path string) (b *Bus, err error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b = &Bus{path: path, fd: fd}
	defer func() {
		if err != nil {
			unix.Close(fd)
			b = nil
		}
	}()

	b.features, err = b.GetFeatures()
	if err != nil {
		return b, fmt.Errorf("ioctl FUNCS %s: %w", path, err)
	}
	if b.features&I2C == 0 {
		return b, fmt.Errorf("%s: adapter can't do plain i2c transfers (funcs %#08x)",
			path, uint32(b.features))
	}
	return b, nil
}

func (b *Bus) String() string { return b.path }

func (b *Bus) Close() error {
	return unix.Close(b.fd)
}

func ioctl(b *Bus, op IoctlOp, arg uintptr) (err error) {
	_, _, e := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), uintptr(op), arg)
	if e != 0 {
		err = e
	}
	return
}

func chk(tag string, err error) error {
	if err != nil {
		err = fmt.Errorf("%s: %w", tag, err)
	}
	return err
}

func (b *Bus) SetRetries(n int) error {
	return chk("set retries", ioctl(b, I2C_RETRIES, uintptr(n)))
}
func (b *Bus) SetTimeout(n int) error {
	return chk("set timeout", ioctl(b, I2C_TIMEOUT, uintptr(n)))
}
func (b *Bus) SetSlaveAddress(n int) error {
	return chk("set slave address", ioctl(b, I2C_SLAVE, uintptr(n)))
}

func (b *Bus) GetFeatures() (mask FeatureFlag, err error) {
	var flags [1]uintptr
	err = ioctl(b, I2C_FUNCS, uintptr(unsafe.Pointer(&flags[0])))
	if err == nil {
		mask = FeatureFlag(flags[0])
	}
	return
}

// Read from the selected slave; a short count is not an error here.
func (b *Bus) Read(p []byte) (int, error) {
	n, err := unix.Read(b.fd, p)
	if n < 0 {
		n = 0
	}
	return n, chk("read", err)
}

// Write to the selected slave.
func (b *Bus) Write(p []byte) (int, error) {
	n, err := unix.Write(b.fd, p)
	if n < 0 {
		n = 0
	}
	return n, chk("write", err)
}
