package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo    int      // Source line number.
	Ip        int      // Address of the first code.
	Words     []string // Source words, after macro and equate expansion.
	Codes     []Code   // Generated words.
	LinkLabel string   // Label to link into the last code, if any.
	LinkBits  uint     // PC offset width to link, or 0 for an absolute address.
}

// Program is an assembled image.
type Program struct {
	Origin  uint16   // Load address of the first word.
	Opcodes []Opcode // Assembled lines, in address order.
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the assembled line that generated the word at ip.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(ip) - op.Ip,
			}
			break
		}
	}

	return
}

// Binary returns the image as words to load at Origin.
func (prog *Program) Binary() (bins []uint16) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint16(code))
	}

	return
}

// Codes iterates over the image, by address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(ip uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			ip := uint16(op.Ip)
			for n, code := range op.Codes {
				if !yield(ip+uint16(n), code) {
					return
				}
			}
		}
	}
}
