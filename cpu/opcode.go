package cpu

import (
	"fmt"
)

// CodeOp is the 4-bit opcode of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0)  // BR
	OP_ADD  = CodeOp(1)  // ADD
	OP_LD   = CodeOp(2)  // LD
	OP_ST   = CodeOp(3)  // ST
	OP_JSR  = CodeOp(4)  // JSR
	OP_AND  = CodeOp(5)  // AND
	OP_LDR  = CodeOp(6)  // LDR
	OP_STR  = CodeOp(7)  // STR
	OP_RTI  = CodeOp(8)  // RTI
	OP_NOT  = CodeOp(9)  // NOT
	OP_LDI  = CodeOp(10) // LDI
	OP_STI  = CodeOp(11) // STI
	OP_JMP  = CodeOp(12) // JMP
	OP_RES  = CodeOp(13) // RES
	OP_LEA  = CodeOp(14) // LEA
	OP_TRAP = CodeOp(15) // TRAP
)

// SetsCond returns true if the opcode updates the condition codes.
func (op CodeOp) SetsCond() bool {
	switch op {
	case OP_ADD, OP_AND, OP_NOT, OP_LD, OP_LDR, OP_LDI, OP_LEA:
		return true
	}
	return false
}

// CodeTrap is an 8-bit trap vector.
type CodeTrap int

//go:generate go tool stringer -linecomment -type=CodeTrap
const (
	TRAP_GETC  = CodeTrap(0x20) // GETC
	TRAP_OUT   = CodeTrap(0x21) // OUT
	TRAP_PUTS  = CodeTrap(0x22) // PUTS
	TRAP_IN    = CodeTrap(0x23) // IN
	TRAP_PUTSP = CodeTrap(0x24) // PUTSP
	TRAP_HALT  = CodeTrap(0x25) // HALT
)

// Branch condition bits, as found in bits 11..9 of a BR instruction.
const (
	COND_N   = uint16(0b100)
	COND_Z   = uint16(0b010)
	COND_P   = uint16(0b001)
	COND_NZP = COND_N | COND_Z | COND_P
)

// Register conventions.
const (
	REG_SP   = 6 // Stack pointer.
	REG_LINK = 7 // Subroutine and trap return address.
)

// Code is a single 16-bit instruction word.
type Code uint16

// Op returns the opcode, bits 15..12.
func (code Code) Op() CodeOp { return CodeOp(code >> 12) }

// Bit returns true if bit n of the instruction is set.
func (code Code) Bit(n uint) bool { return ((code >> n) & 1) != 0 }

// Dr returns the destination register field, bits 11..9.
func (code Code) Dr() int { return int((code >> 9) & 0x7) }

// Sr1 returns the first source (or base) register field, bits 8..6.
func (code Code) Sr1() int { return int((code >> 6) & 0x7) }

// Sr2 returns the second source register field, bits 2..0.
func (code Code) Sr2() int { return int(code & 0x7) }

// Cond returns the branch condition field, bits 11..9.
func (code Code) Cond() uint16 { return uint16(code>>9) & COND_NZP }

// Imm5 returns the sign extended immediate field, bits 4..0.
func (code Code) Imm5() uint16 { return SignExtend(uint16(code), 5) }

// Offset6 returns the sign extended base offset field, bits 5..0.
func (code Code) Offset6() uint16 { return SignExtend(uint16(code), 6) }

// PcOffset9 returns the sign extended PC offset field, bits 8..0.
func (code Code) PcOffset9() uint16 { return SignExtend(uint16(code), 9) }

// PcOffset11 returns the sign extended PC offset field, bits 10..0.
func (code Code) PcOffset11() uint16 { return SignExtend(uint16(code), 11) }

// TrapVect8 returns the trap vector field, bits 7..0.
func (code Code) TrapVect8() CodeTrap { return CodeTrap(code & 0xff) }

// makeOp creates an instruction word with the opcode in place.
func makeOp(op CodeOp, fields uint16) Code {
	return Code((uint16(op) << 12) | (fields & 0x0fff))
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(cond uint16, offset9 uint16) Code {
	return makeOp(OP_BR, ((cond&COND_NZP)<<9)|(offset9&0x1ff))
}

// MakeCodeReg creates a register mode ADD or AND.
func MakeCodeReg(op CodeOp, dr, sr1, sr2 int) Code {
	return makeOp(op, (uint16(dr&7)<<9)|(uint16(sr1&7)<<6)|uint16(sr2&7))
}

// MakeCodeImm creates an immediate mode ADD or AND.
func MakeCodeImm(op CodeOp, dr, sr1 int, imm5 uint16) Code {
	return makeOp(op, (uint16(dr&7)<<9)|(uint16(sr1&7)<<6)|(1<<5)|(imm5&0x1f))
}

// MakeCodeNot creates a bitwise complement.
func MakeCodeNot(dr, sr int) Code {
	return makeOp(OP_NOT, (uint16(dr&7)<<9)|(uint16(sr&7)<<6)|0x3f)
}

// MakeCodePc creates a PC relative LD, LDI, ST, STI, or LEA.
func MakeCodePc(op CodeOp, dr int, offset9 uint16) Code {
	return makeOp(op, (uint16(dr&7)<<9)|(offset9&0x1ff))
}

// MakeCodeLdr creates a base+offset load.
func MakeCodeLdr(dr, base int, offset6 uint16) Code {
	return makeOp(OP_LDR, (uint16(dr&7)<<9)|(uint16(base&7)<<6)|(offset6&0x3f))
}

// MakeCodeStr creates a base+offset store of register sr.
// The base register is encoded in the DR field, and sr in the SR1 field.
func MakeCodeStr(sr, base int, offset6 uint16) Code {
	return makeOp(OP_STR, (uint16(base&7)<<9)|(uint16(sr&7)<<6)|(offset6&0x3f))
}

// MakeCodeJsr creates a PC relative subroutine call.
func MakeCodeJsr(offset11 uint16) Code {
	return makeOp(OP_JSR, (1<<11)|(offset11&0x7ff))
}

// MakeCodeJsrr creates a register subroutine call.
func MakeCodeJsrr(base int) Code {
	return makeOp(OP_JSR, uint16(base&7)<<6)
}

// MakeCodeJmp creates a register jump. RET is MakeCodeJmp(REG_LINK).
func MakeCodeJmp(base int) Code {
	return makeOp(OP_JMP, uint16(base&7)<<6)
}

// MakeCodeRti creates a return from interrupt.
func MakeCodeRti() Code {
	return makeOp(OP_RTI, 0)
}

// MakeCodeTrap creates a trap.
func MakeCodeTrap(vector CodeTrap) Code {
	return makeOp(OP_TRAP, uint16(vector)&0xff)
}

// String disassembles the instruction.
func (code Code) String() (text string) {
	op := code.Op()
	switch op {
	case OP_BR:
		cond := code.Cond()
		if cond == 0 {
			return "NOP"
		}
		nzp := ""
		if (cond & COND_N) != 0 {
			nzp += "n"
		}
		if (cond & COND_Z) != 0 {
			nzp += "z"
		}
		if (cond & COND_P) != 0 {
			nzp += "p"
		}
		text = fmt.Sprintf("BR%s #%d", nzp, int16(code.PcOffset9()))
	case OP_ADD, OP_AND:
		if code.Bit(5) {
			text = fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), int16(code.Imm5()))
		} else {
			text = fmt.Sprintf("%v R%d, R%d, R%d", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_LD, OP_LDI, OP_ST, OP_STI, OP_LEA:
		text = fmt.Sprintf("%v R%d, #%d", op, code.Dr(), int16(code.PcOffset9()))
	case OP_LDR:
		text = fmt.Sprintf("LDR R%d, R%d, #%d", code.Dr(), code.Sr1(), int16(code.Offset6()))
	case OP_STR:
		// STR keeps its base register in the DR field.
		text = fmt.Sprintf("STR R%d, R%d, #%d", code.Sr1(), code.Dr(), int16(code.Offset6()))
	case OP_JSR:
		if code.Bit(11) {
			text = fmt.Sprintf("JSR #%d", int16(code.PcOffset11()))
		} else {
			text = fmt.Sprintf("JSRR R%d", code.Sr1())
		}
	case OP_JMP:
		if code.Sr1() == REG_LINK {
			text = "RET"
		} else {
			text = fmt.Sprintf("JMP R%d", code.Sr1())
		}
	case OP_NOT:
		text = fmt.Sprintf("NOT R%d, R%d", code.Dr(), code.Sr1())
	case OP_RTI, OP_RES:
		text = op.String()
	case OP_TRAP:
		vector := code.TrapVect8()
		if vector >= TRAP_GETC && vector <= TRAP_HALT {
			text = vector.String()
		} else {
			text = fmt.Sprintf("TRAP x%02X", int(vector))
		}
	}

	return
}
