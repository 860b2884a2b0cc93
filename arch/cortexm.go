//go:build cortexm

package arch

import (
	"encoding/binary"
	"reflect"

	"github.com/distortec/gokernel/kerr"
)

// defaultXpsr is the reset value placed in the synthesized exception frame's
// xPSR slot: only the Thumb state bit is set, matching the
// ExceptionStackFrame::defaultXpsr value
// ARMv6-M-ARMv7-M-ARMv8-M-initializeStack.cpp assigns (every Cortex-M core
// here is Thumb-only, so bit 24 must always be 1 or the first instruction
// fetch after the synthesized return will fault); the header declaring the
// constant itself is not among the retrieved sources.
const defaultXpsr = uint32(0x01000000)

// Per-register fill values below reproduce
// ARMv6-M-ARMv7-M-ARMv8-M-initializeStack.cpp byte for byte: each
// general-purpose register is seeded with its own repeated-nibble poison
// value (0x44444444 for r4, 0x55555555 for r5, and so on) so a thread that
// somehow reads an uninitialized register before its first real write
// produces an unmistakable, identifiable value in a core dump.
const (
	poisonR4  = uint32(0x44444444)
	poisonR5  = uint32(0x55555555)
	poisonR6  = uint32(0x66666666)
	poisonR7  = uint32(0x77777777)
	poisonR8  = uint32(0x88888888)
	poisonR9  = uint32(0x99999999)
	poisonR10 = uint32(0xaaaaaaaa)
	poisonR11 = uint32(0xbbbbbbbb)
	poisonR1  = uint32(0x11111111)
	poisonR2  = uint32(0x22222222)
	poisonR3  = uint32(0x33333333)
	poisonR12 = uint32(0xcccccccc)
)

// softwareFrameWords is len(SoftwareStackFrame) in 4-byte words for an
// ARMv7-M/ARMv7E-M core without an FPU in use: r4-r11, eight registers.
const softwareFrameWords = 8

// exceptionFrameWords is len(ExceptionStackFrame) in words: r0, r1, r2, r3,
// r12, lr, pc, xpsr.
const exceptionFrameWords = 8

const cortexMFrameBytes = (softwareFrameWords + exceptionFrameWords) * wordSize4

const wordSize4 = 4

// CortexMPort is the real ARMv7-M architecture port: InitializeStack lays
// out the exact software + exception stack frame
// ARMv6-M-ARMv7-M-ARMv8-M-initializeStack.cpp builds, so the bytes this
// repository computes are what a real PendSV/exception-return sequence on
// that core would consume. It embeds HostPort for the three methods that
// have nothing to do with register layout (RequestContextSwitch,
// RequestFunctionExecution, IsInInterruptContext): a real target implements
// those with a pendable exception and a stack-pointer-indexed callback
// table exactly the way HostPort simulates them, modulo the assembly
// trampoline that HostPort has no need for on a host. Only the frame-layout
// half of the port is architecture-specific; the bookkeeping half is not,
// which is why distortos itself shares requestFunctionExecution.cpp across
// every ARMv6-M/ARMv7-M/ARMv8-M variant.
type CortexMPort struct {
	*HostPort
}

// NewCortexMPort constructs a CortexMPort ready to use.
func NewCortexMPort() *CortexMPort {
	return &CortexMPort{HostPort: NewHostPort()}
}

// InitializeStack writes the ARMv7-M software stack frame (r4-r11) followed
// by the hardware exception frame (r0-r3, r12, lr, pc, xpsr) at the top of
// buffer, byte for byte as ARMv6-M-ARMv7-M-ARMv8-M-initializeStack.cpp does
// for a core without FPU-in-use state to save. runner's address becomes pc;
// r0 carries nothing on this host port (the real port passes the
// RunnableThread pointer in r0 for threadRunner.cpp to recover, but this
// repository's kthread package reaches the runner through the Go closure
// stored by HostPort's caller instead, so r0 is left at its poison value).
func (p *CortexMPort) InitializeStack(buffer []byte, runner func()) (uintptr, error) {
	if len(buffer) < cortexMFrameBytes {
		return 0, kerr.ErrNoSpace
	}
	frame := buffer[len(buffer)-cortexMFrameBytes:]
	order := binary.LittleEndian

	put := func(word int, v uint32) {
		order.PutUint32(frame[word*wordSize4:], v)
	}

	// software frame: r4..r11
	put(0, poisonR4)
	put(1, poisonR5)
	put(2, poisonR6)
	put(3, poisonR7)
	put(4, poisonR8)
	put(5, poisonR9)
	put(6, poisonR10)
	put(7, poisonR11)

	// exception frame: r0, r1, r2, r3, r12, lr, pc, xpsr
	base := softwareFrameWords
	put(base+0, 0) // r0: poisoned on this port, see doc comment
	put(base+1, poisonR1)
	put(base+2, poisonR2)
	put(base+3, poisonR3)
	put(base+4, poisonR12)
	put(base+5, 0) // lr: nullptr, matching initializeStack.cpp
	put(base+6, uint32(reflect.ValueOf(runner).Pointer()))
	put(base+7, defaultXpsr)

	return addrOf(frame), nil
}

var _ Port = (*CortexMPort)(nil)
