package emulator

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
	lc3io "github.com/ezrec/lc3/io"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Equal(&emu.Console, emu.Cpu.Console)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("0x3000", defines["PC_START"])
	assert.Equal("0xfffe", defines["MCR"])
	assert.Equal("0xfe00", defines["KBSR"])
	assert.Equal("0xfe06", defines["DDR"])
}

func assemble(emu *Emulator, program []string, t *testing.T) {
	asm := &cpu.Assembler{}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	emu.Program = prog
}

func doRun(emu *Emulator, program []string, input string, t *testing.T) (output string) {
	assert := assert.New(t)

	assemble(emu, program, t)

	emu.Console.Input = strings.NewReader(input)
	console_output := &bytes.Buffer{}
	emu.Console.Output = console_output

	err := emu.Reset()
	assert.NoError(err)

	err = emu.Run()
	assert.NoError(err)
	if err != nil {
		t.Log(emu.Cpu.String())
		t.Fatal(err)
	}

	output = console_output.String()
	return
}

var helloProgram = []string{
	".ORIG x3000",
	"        LEA R0, MSG",
	"        PUTS",
	"        HALT",
	"MSG     .STRINGZ \"HI\"",
	".END",
}

func TestEmulatorHello(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	output := doRun(emu, helloProgram, "", t)

	assert.Equal("HI", output)
	assert.False(emu.Cpu.Running())
	assert.Equal(3, emu.Ticks())
	assert.Equal(uint16(0x3003), uint16(emu.Cpu.Register[cpu.REG_LINK]))
}

func TestEmulatorLineNo(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(emu, helloProgram, t)

	err := emu.Reset()
	assert.NoError(err)

	var lines []int
	var done bool
	for !done {
		lines = append(lines, emu.LineNo())
		assert.Equal(cpu.Code(emu.Cpu.Memory[emu.Pc()]), emu.Code())
		done, err = emu.Tick()
		if err != nil {
			t.Fatal(err)
		}
	}
	assert.Equal([]int{2, 3, 4}, lines)

	// Halted machines stay halted.
	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(3, emu.Ticks())
}

func TestEmulatorDevices(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"POLL    LDI R1, KBSRP",
		"        BRzp POLL",
		"        LDI R0, KBDRP",
		"WAIT    LDI R1, DSRP",
		"        BRzp WAIT",
		"        STI R0, DDRP",
		"        HALT",
		"KBSRP   .FILL KBSR",
		"KBDRP   .FILL KBDR",
		"DSRP    .FILL DSR",
		"DDRP    .FILL DDR",
	}

	emu := NewEmulator()
	output := doRun(emu, program, "Q", t)

	assert.Equal("Q", output)
	assert.Equal(int16('Q'), emu.Cpu.Register[0])
}

func TestEmulatorEcho(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        IN",
		"        ADD R0, R0, #1",
		"        OUT",
		"        GETC",
		"        OUT",
		"        HALT",
	}

	emu := NewEmulator()
	output := doRun(emu, program, "ab", t)

	assert.Equal(cpu.IN_PROMPT+"abb", output)
}

func TestEmulatorNonFatal(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        TRAP x30",
		"        .FILL xD000",
		"        ADD R0, R0, #5",
		"        HALT",
	}

	emu := NewEmulator()
	doRun(emu, program, "", t)

	assert.Equal(int16(5), emu.Cpu.Register[0])
	assert.Equal(4, emu.Ticks())

	emu = NewEmulator()
	emu.Verbose = true
	doRun(emu, program, "", t)
	assert.Equal(int16(5), emu.Cpu.Register[0])
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        GETC",
		"        HALT",
	}

	emu := NewEmulator()
	assemble(emu, program, t)

	err := emu.Reset()
	assert.NoError(err)

	err = emu.Run()
	assert.ErrorIs(err, io.EOF)

	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(uint16(0x3000), runtime.Address)
		assert.Equal(2, runtime.LineNo)
	}

	// The trap still returned through R7.
	assert.Equal(0x3001, emu.Pc())
	assert.True(emu.Cpu.Running())
}

func TestEmulatorImage(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(emu, helloProgram, t)

	image := &bytes.Buffer{}
	err := lc3io.WriteImage(image, emu.Program.Origin, emu.Program.Binary())
	assert.NoError(err)

	emu = NewEmulator()
	err = emu.LoadImage(image)
	assert.NoError(err)
	assert.Equal(uint16(0x3000), emu.Program.Origin)

	console_output := &bytes.Buffer{}
	emu.Console.Output = console_output

	err = emu.Reset()
	assert.NoError(err)
	assert.Equal(0, emu.LineNo())

	err = emu.Run()
	assert.NoError(err)
	assert.Equal("HI", console_output.String())

	dump := &bytes.Buffer{}
	err = emu.Dump(dump)
	assert.NoError(err)
	assert.Equal(2*cpu.MEMORY_SIZE, dump.Len())
	assert.Equal([]byte{0xe0, 0x02}, dump.Bytes()[2*0x3000:2*0x3001])
}

func TestEmulatorImageTooLarge(t *testing.T) {
	assert := assert.New(t)

	image := &bytes.Buffer{}
	err := lc3io.WriteImage(image, 0xfff0, make([]uint16, 0x20))
	assert.NoError(err)

	emu := NewEmulator()
	err = emu.LoadImage(image)
	assert.ErrorIs(err, cpu.ErrProgramTooLarge)
}

func TestEmulatorReset(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Cpu.Memory[0x4000] = 0x1234
	emu.Cpu.Register[3] = 7

	err := emu.Reset()
	assert.NoError(err)

	assert.Equal(uint16(0), emu.Cpu.Memory[0x4000])
	assert.Equal(int16(0), emu.Cpu.Register[3])
	assert.Equal(cpu.PC_START, emu.Pc())
	assert.True(emu.Cpu.Running())
}
