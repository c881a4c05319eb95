// Package cpu implements the processor and assembler for the LC-3 style
// 16-bit register machine.
//
// The processor consists of a 16-bit program counter (PC), eight signed
// 16-bit general-purpose registers (R0-R7), a processor status register
// holding the N/Z/P condition codes, and 64K words of memory. R6 is the
// stack pointer by convention, and R7 is the link register used by JSR,
// JSRR and TRAP.
//
// The machine runs while bit 15 of the machine control register (MCR,
// memory address 0xFFFE) is set. The HALT trap clears it.
//
// The assembler provides the usual LC-3 assembly language, extended with
// macros, equates, and compile-time expression evaluation.
package cpu
