package cpu

// Processor status register bit layout.
const (
	PSR_PRIVILEGE      = 0x8000 // Set for user mode.
	PSR_PRIORITY_MASK  = 0x0700 // Interrupt priority level.
	PSR_PRIORITY_SHIFT = 8
	PSR_N              = 0x0004 // Negative condition code.
	PSR_Z              = 0x0002 // Zero condition code.
	PSR_P              = 0x0001 // Positive condition code.
)

// Privilege modes.
const (
	PRIVILEGE_SUPERVISOR = uint8(0)
	PRIVILEGE_USER       = uint8(1)
)

// Psr is the processor status register.
type Psr struct {
	Privilege uint8 // 0 for supervisor, 1 for user.
	Priority  uint8 // Priority level, 0..7.
	N         bool  // Last result was negative.
	Z         bool  // Last result was zero.
	P         bool  // Last result was positive.
}

// DecodePsr unpacks a binary processor status word.
func DecodePsr(word uint16) (psr Psr) {
	if (word & PSR_PRIVILEGE) != 0 {
		psr.Privilege = PRIVILEGE_USER
	}
	psr.Priority = uint8((word & PSR_PRIORITY_MASK) >> PSR_PRIORITY_SHIFT)
	psr.N = (word & PSR_N) != 0
	psr.Z = (word & PSR_Z) != 0
	psr.P = (word & PSR_P) != 0
	return
}

// Encode packs the status register into its binary form.
func (psr Psr) Encode() (word uint16) {
	if psr.Privilege != PRIVILEGE_SUPERVISOR {
		word |= PSR_PRIVILEGE
	}
	word |= (uint16(psr.Priority) << PSR_PRIORITY_SHIFT) & PSR_PRIORITY_MASK
	if psr.N {
		word |= PSR_N
	}
	if psr.Z {
		word |= PSR_Z
	}
	if psr.P {
		word |= PSR_P
	}
	return
}

// Cond returns the condition code bits, in BR instruction order (n, z, p).
func (psr Psr) Cond() uint16 {
	return psr.Encode() & (PSR_N | PSR_Z | PSR_P)
}

// SetCond sets exactly one of the condition codes from the sign of value.
func (psr *Psr) SetCond(value int16) {
	psr.N = value < 0
	psr.Z = value == 0
	psr.P = value > 0
}

// String returns the condition codes as "nzp", with unset codes as '-'.
func (psr Psr) String() string {
	nzp := []byte("---")
	if psr.N {
		nzp[0] = 'n'
	}
	if psr.Z {
		nzp[1] = 'z'
	}
	if psr.P {
		nzp[2] = 'p'
	}
	return string(nzp)
}
