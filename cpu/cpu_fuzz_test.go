package cpu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/io"
)

func FuzzStep(f *testing.F) {
	for op := range 16 {
		f.Add(uint16(op<<12), int16(0), int16(1), false)
		f.Add(uint16(op<<12)|0x0fff, int16(-1), int16(0x7fff), true)
	}

	f.Fuzz(func(t *testing.T, word uint16, r0 int16, r1 int16, user bool) {
		assert := assert.New(t)

		code := Code(word)

		cpu := newTestCpu(code)
		output := &bytes.Buffer{}
		cpu.Console = &io.Console{
			Input:  bytes.NewReader([]byte("k")),
			Output: output,
		}
		for n := range cpu.Register {
			if n&1 == 0 {
				cpu.Register[n] = r0 + int16(n)
			} else {
				cpu.Register[n] = r1 - int16(n)
			}
		}
		if user {
			cpu.Psr.Privilege = PRIVILEGE_USER
		}
		cpu.Psr.Z = true

		before := cpu.State
		err := cpu.Step()

		op := code.Op()

		// The engine is total: only tags and console errors come back.
		if err != nil {
			assert.ErrorIs(err, ErrOpcode(0))
		}

		if op.SetsCond() {
			value := cpu.Register[code.Dr()]
			assert.Equal(value < 0, cpu.Psr.N)
			assert.Equal(value == 0, cpu.Psr.Z)
			assert.Equal(value > 0, cpu.Psr.P)
		} else {
			assert.Equal(before.Psr, cpu.Psr)
		}

		switch op {
		case OP_BR, OP_JSR, OP_JMP, OP_TRAP:
			// Control flow
		case OP_RTI:
			if user {
				assert.Equal(before.Pc+1, cpu.Pc)
			}
		default:
			assert.Equal(before.Pc+1, cpu.Pc)
		}

		if op == OP_TRAP {
			assert.Equal(uint16(cpu.Register[REG_LINK]), cpu.Pc)
			assert.Equal(before.Pc+1, cpu.Pc)
		}
	})
}
