// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"io"
	"iter"
	"log"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	lc3io "github.com/ezrec/lc3/io"
)

// Emulator state. CPU + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Console lc3io.Console // Console (keyboard and display) device.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{Origin: cpu.PC_START},
	}

	emu.Cpu.Console = &emu.Console

	return
}

// Defines returns an iterator over all of the defines, suitable for
// assembler predefines.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		emu.Console.Defines(),
	)
}

// Reset clears memory, loads the program, and resets the CPU.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	clear(emu.Cpu.Memory[:])
	clear(emu.Cpu.Register[:])

	words := emu.Program.Binary()
	if int(emu.Program.Origin)+len(words) > cpu.MEMORY_SIZE {
		err = cpu.ErrProgramTooLarge
		return
	}
	emu.Cpu.Load(emu.Program.Origin, words)

	emu.Cpu.Reset()

	return
}

// LoadImage reads an object image as the program, without a listing.
// The image is placed in memory by the next Reset.
func (emu *Emulator) LoadImage(r io.Reader) (err error) {
	origin, words, err := lc3io.ReadImage(r)
	if err != nil {
		return
	}

	if int(origin)+len(words) > cpu.MEMORY_SIZE {
		err = cpu.ErrProgramTooLarge
		return
	}

	codes := make([]cpu.Code, len(words))
	for n, word := range words {
		codes[n] = cpu.Code(word)
	}

	emu.Program = &cpu.Program{
		Origin:  origin,
		Opcodes: []cpu.Opcode{{Ip: int(origin), Codes: codes}},
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d words at x%04X", len(words), origin)
	}

	return
}

// Dump writes all of memory to w.
func (emu *Emulator) Dump(w io.Writer) (err error) {
	return lc3io.DumpMemory(w, emu.Cpu.Memory[:])
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns the address of the next instruction.
func (emu *Emulator) Pc() int {
	return int(emu.Cpu.Pc)
}

// Code returns the next instruction to execute.
func (emu *Emulator) Code() cpu.Code {
	return cpu.Code(emu.Cpu.Memory[emu.Cpu.Pc])
}

// LineNo returns the source line number for the next instruction, or 0.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the machine has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if !emu.Cpu.Running() {
		done = true
		return
	}

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: pc, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step()
	switch {
	case err == nil:
	case errors.Is(err, cpu.ErrTrap(0)):
		// Unknown traps are reported, and execution continues.
		log.Printf("x%04X: %v", pc, err)
		err = nil
	case errors.Is(err, cpu.ErrOpcodeReserved), errors.Is(err, cpu.ErrNotImplemented):
		if emu.Verbose {
			log.Printf("x%04X: %v", pc, err)
		}
		err = nil
	default:
		return
	}

	done = !emu.Cpu.Running()

	return
}

// Run ticks the emulator until it halts, or fails.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
