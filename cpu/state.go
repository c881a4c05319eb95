package cpu

import (
	"fmt"
)

// Memory layout constants.
const (
	MEMORY_SIZE = 1 << 16 // Words of addressable memory.
	PC_START    = 0x3000  // Program counter after reset.

	MCR = 0xFFFE // Machine control register.

	MCR_RUN = 0x8000 // Clock enable bit of the MCR.
)

var _state_defines = map[string]string{
	"PC_START": fmt.Sprintf("%#x", PC_START),
	"MCR":      fmt.Sprintf("%#x", MCR),
}

// State is the architectural state of the machine.
type State struct {
	Memory   [MEMORY_SIZE]uint16 // Main memory.
	Register [8]int16            // General purpose registers.
	Pc       uint16              // Address of the next instruction.
	Psr      Psr                 // Processor status register.
}

// Load copies words into memory starting at origin.
// Addresses wrap at the end of memory.
func (st *State) Load(origin uint16, words []uint16) {
	addr := origin
	for _, word := range words {
		st.Memory[addr] = word
		addr++
	}
}

// Running returns true while the MCR clock enable bit is set.
func (st *State) Running() bool {
	return (st.Memory[MCR] & MCR_RUN) != 0
}

// SignExtend extends the low 'bits' bits of value to 16 bits, treating
// the top bit of the field as the sign.
func SignExtend(value uint16, bits uint) uint16 {
	m := uint16(1) << (bits - 1)
	value &= (uint16(1) << bits) - 1
	return (value ^ m) - m
}
