package cpu

import (
	"log"
)

// IN_PROMPT is written by the IN trap before it reads a character.
const IN_PROMPT = ">"

// DispatchTrap performs the system service for a trap vector, then
// returns to the address in the link register (R7).
//
// An unknown vector returns ErrTrap, after returning through R7.
func (cpu *Cpu) DispatchTrap(vector CodeTrap) (err error) {
	defer func() {
		cpu.Pc = uint16(cpu.Register[REG_LINK])
	}()

	if cpu.Verbose {
		log.Printf("cpu: trap %v", vector)
	}

	switch vector {
	case TRAP_GETC:
		err = cpu.trapGetc(false)
	case TRAP_OUT:
		err = cpu.putChar(byte(cpu.Register[0]))
	case TRAP_PUTS:
		err = cpu.trapPuts()
	case TRAP_IN:
		for _, ch := range []byte(IN_PROMPT) {
			err = cpu.putChar(ch)
			if err != nil {
				return
			}
		}
		err = cpu.trapGetc(true)
	case TRAP_PUTSP:
		err = cpu.trapPutsp()
	case TRAP_HALT:
		cpu.Memory[MCR] = 0
	default:
		err = ErrTrap(vector)
	}

	return
}

// putChar writes to the console.
func (cpu *Cpu) putChar(ch byte) (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	return cpu.Console.PutChar(ch)
}

// trapGetc reads a character into R0, optionally echoing it.
func (cpu *Cpu) trapGetc(echo bool) (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	ch, err := cpu.Console.GetChar()
	if err != nil {
		return
	}

	cpu.Register[0] = int16(ch)

	if echo {
		err = cpu.putChar(ch)
	}

	return
}

// trapPuts writes one character per word, from the address in R0 up to a
// zero word or the end of memory.
func (cpu *Cpu) trapPuts() (err error) {
	for addr := int(uint16(cpu.Register[0])); addr < MEMORY_SIZE; addr++ {
		word := cpu.Memory[addr]
		if word == 0 {
			break
		}
		err = cpu.putChar(byte(word))
		if err != nil {
			return
		}
	}

	return
}

// trapPutsp writes two characters per word, low byte first, from the
// address in R0 up to a zero byte or the end of memory.
func (cpu *Cpu) trapPutsp() (err error) {
	for addr := int(uint16(cpu.Register[0])); addr < MEMORY_SIZE; addr++ {
		word := cpu.Memory[addr]
		for _, ch := range []byte{byte(word), byte(word >> 8)} {
			if ch == 0 {
				return
			}
			err = cpu.putChar(ch)
			if err != nil {
				return
			}
		}
	}

	return
}
