package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/lc3/io"
)

// Console is the keyboard and display attached to the CPU.
// It services the character traps, and decodes the device registers.
type Console interface {
	io.Device
	GetChar() (ch byte, err error)
	PutChar(ch byte) (err error)
}

// Cpu is the simulation context for the processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	State // Architectural state.

	Console Console // Attached console, or nil.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new CPU, with zeroed memory and registers.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_state_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc",
		"psr",
		"cc",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
		"mcr",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("x%04X", cpu.Pc)
		case "psr":
			strval = fmt.Sprintf("x%04X", cpu.Psr.Encode())
		case "cc":
			strval = cpu.Psr.String()
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7":
			val := cpu.Register[byte(reg[1]-'0')]
			strval = fmt.Sprintf("x%04X %6d", uint16(val), val)
		case "mcr":
			strval = fmt.Sprintf("x%04X", cpu.Memory[MCR])
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Reset the CPU state.
// - Clears the condition codes.
// - Sets supervisor mode, at priority 0.
// - Sets the PC to PC_START.
// - Sets the clock enable bit of the MCR.
// - Resets the console device.
//
// Memory and registers are left as loaded.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Psr = Psr{
		Privilege: PRIVILEGE_SUPERVISOR,
		Priority:  0,
	}
	cpu.Pc = PC_START
	cpu.Memory[MCR] |= MCR_RUN
	cpu.Ticks = 0

	if cpu.Console != nil {
		cpu.Console.Rewind()
	}
}

// load reads data memory, offering the access to the console first.
func (cpu *Cpu) load(addr uint16) uint16 {
	if cpu.Console != nil {
		value, ok := cpu.Console.Load(addr)
		if ok {
			return value
		}
	}

	return cpu.Memory[addr]
}

// store writes data memory, offering the access to the console first.
func (cpu *Cpu) store(addr uint16, value uint16) (err error) {
	if cpu.Console != nil {
		var ok bool
		ok, err = cpu.Console.Store(addr, value)
		if ok {
			return
		}
	}

	cpu.Memory[addr] = value
	return
}

// SetConditionCodes sets exactly one of N, Z, or P from the sign of the
// destination register of the instruction at the PC.
func (cpu *Cpu) SetConditionCodes() {
	code := Code(cpu.Memory[cpu.Pc])
	cpu.Psr.SetCond(cpu.Register[code.Dr()])
}

// Step executes a single instruction, and advances the PC.
//
// The returned error is nil, a non-fatal tag (ErrOpcodeReserved,
// ErrNotImplemented, ErrTrap), or a console error. In every case the
// machine state has been fully updated.
func (cpu *Cpu) Step() (err error) {
	code := Code(cpu.Memory[cpu.Pc])

	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Pc, code)
	}

	reg := &cpu.Register
	next_pc := cpu.Pc + 1

	switch code.Op() {
	case OP_BR:
		if (code.Cond() & cpu.Psr.Cond()) != 0 {
			cpu.Pc += code.PcOffset9()
		}
	case OP_ADD:
		if code.Bit(5) {
			reg[code.Dr()] = reg[code.Sr1()] + int16(code.Imm5())
		} else {
			reg[code.Dr()] = reg[code.Sr1()] + reg[code.Sr2()]
		}
		cpu.SetConditionCodes()
	case OP_LD:
		reg[code.Dr()] = int16(cpu.load(next_pc + code.PcOffset9()))
		cpu.SetConditionCodes()
	case OP_ST:
		err = cpu.store(next_pc+code.PcOffset9(), uint16(reg[code.Dr()]))
	case OP_JSR:
		// JSRR R7 jumps to the old R7: the base is read before the
		// link is saved, unlike a save-link-first ordering.
		target := uint16(reg[code.Sr1()])
		reg[REG_LINK] = int16(next_pc)
		if code.Bit(11) {
			cpu.Pc += code.PcOffset11()
		} else {
			cpu.Pc = target - 1
		}
	case OP_AND:
		if code.Bit(5) {
			reg[code.Dr()] = reg[code.Sr1()] & int16(code.Imm5())
		} else {
			reg[code.Dr()] = reg[code.Sr1()] & reg[code.Sr2()]
		}
		cpu.SetConditionCodes()
	case OP_LDR:
		reg[code.Dr()] = int16(cpu.load(uint16(reg[code.Sr1()]) + code.Offset6()))
		cpu.SetConditionCodes()
	case OP_STR:
		// The DR field holds the base register, SR1 the value stored.
		err = cpu.store(uint16(reg[code.Dr()])+code.Offset6(), uint16(reg[code.Sr1()]))
	case OP_RTI:
		if cpu.Psr.Privilege != PRIVILEGE_SUPERVISOR {
			// Privilege mode exceptions are not delivered.
			err = errors.Join(ErrNotImplemented, ErrPrivilege)
			break
		}
		sp := uint16(reg[REG_SP])
		cpu.Pc = cpu.Memory[sp] - 1
		reg[REG_SP]++
	case OP_NOT:
		reg[code.Dr()] = ^reg[code.Sr1()]
		cpu.SetConditionCodes()
	case OP_LDI:
		reg[code.Dr()] = int16(cpu.load(cpu.load(next_pc + code.PcOffset9())))
		cpu.SetConditionCodes()
	case OP_STI:
		err = cpu.store(cpu.load(next_pc+code.PcOffset9()), uint16(reg[code.Dr()]))
	case OP_JMP:
		cpu.Pc = uint16(reg[code.Sr1()]) - 1
	case OP_RES:
		err = ErrOpcodeReserved
	case OP_LEA:
		reg[code.Dr()] = int16(next_pc + code.PcOffset9())
		cpu.SetConditionCodes()
	case OP_TRAP:
		reg[REG_LINK] = int16(next_pc)
		err = cpu.DispatchTrap(code.TrapVect8())
		// DispatchTrap returned through R7; cancel the increment below.
		cpu.Pc--
	}

	cpu.Pc++
	cpu.Ticks++

	return
}
