// Package io provides the memory-mapped devices and image formats of the
// LC-3 simulator. It includes the console (keyboard and display device
// registers, plus the character services used by the trap routines) and
// the big-endian object image and memory dump formats.
package io

import (
	"fmt"
)

// Device register addresses.
const (
	KBSR = 0xFE00 // Keyboard status register.
	KBDR = 0xFE02 // Keyboard data register.
	DSR  = 0xFE04 // Display status register.
	DDR  = 0xFE06 // Display data register.

	STATUS_READY = 0x8000 // Ready bit of KBSR and DSR.
)

var _device_defines = map[string]string{
	"KBSR": fmt.Sprintf("%#x", KBSR),
	"KBDR": fmt.Sprintf("%#x", KBDR),
	"DSR":  fmt.Sprintf("%#x", DSR),
	"DDR":  fmt.Sprintf("%#x", DDR),
}

// Device defines the interface for memory-mapped devices.
// Loads and stores the device does not decode are left to main memory.
type Device interface {
	// Rewind resets the device to its initial state.
	Rewind()
	// Load reads a device register. ok is false if addr is not decoded.
	Load(addr uint16) (value uint16, ok bool)
	// Store writes a device register. ok is false if addr is not decoded.
	Store(addr uint16, value uint16) (ok bool, err error)
}
