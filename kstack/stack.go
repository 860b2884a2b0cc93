// Package kstack implements the Stack object: owned or borrowed thread
// storage with guard-region overflow detection and high-water-mark
// diagnostics.
//
// Grounded on original_source/source/scheduler/Stack.cpp: the guard
// sentinel, the alignment adjustment, and the high-water-mark scan below
// are direct translations of that file's adjustStorage/adjustSize/
// checkStackGuard/getHighWaterMark functions.
package kstack

import (
	"encoding/binary"

	"github.com/distortec/gokernel/arch"
	"github.com/distortec/gokernel/kerr"
)

// sentinel is the magic word distortos fills the guard region with. It is
// deliberately an unlikely value to occur as legitimate stack data.
const sentinel uint32 = 0xed419f25

const wordSize = 4

// guardWords is the number of sentinel words making up the guard region.
// distortos makes this a chip-specific constant; 8 words (32 bytes) is a
// reasonable default for a Cortex-M target with modest frames.
const guardWords = 8

// GuardSize is the size in bytes of the guard region at the low address
// of every Stack's storage.
const GuardSize = guardWords * wordSize

// Alignment is the architecture's required stack alignment in bytes.
// ARMv7-M requires 8-byte (double-word) stack alignment at exception
// boundaries.
const Alignment = 8

// Stack owns (or borrows) a memory region used as a thread's stack. It
// tracks the region's guard sentinel and the saved stack pointer while the
// owning thread is not running.
type Stack struct {
	storage  []byte // adjusted storage: begins at the alignment boundary
	owning   bool   // true if this Stack allocated storage itself
	sp       uintptr
	spStored bool
}

// NewOwning allocates size bytes of storage (rounded up for alignment) and
// returns a Stack that owns it. This is the form used for dynamic threads
// and any thread whose stack is heap-provided.
func NewOwning(size int) *Stack {
	// Over-allocate so an aligned region of at least `size` bytes fits
	// inside, mirroring distortos's adjustStorage/adjustSize pair.
	raw := make([]byte, size+Alignment)
	adjusted := alignSlice(raw)
	return &Stack{storage: adjusted, owning: true}
}

// NewBorrowing wraps an externally-owned region without taking ownership
// of it. This is the form used for the initial idle/main thread, whose
// stack is provided by the environment rather than allocated by the
// kernel.
func NewBorrowing(region []byte) *Stack {
	return &Stack{storage: region, owning: false}
}

func alignSlice(raw []byte) []byte {
	addr := uintptr(0)
	if len(raw) > 0 {
		addr = sliceAddr(raw)
	}
	pad := int((Alignment - addr%Alignment) % Alignment)
	if pad > len(raw) {
		pad = len(raw)
	}
	end := len(raw) - (len(raw)-pad)%Alignment
	return raw[pad:end]
}

// Size returns the usable size of the stack, excluding the guard region.
func (s *Stack) Size() int {
	return len(s.storage) - GuardSize
}

// AdjustedSize returns the full size of the aligned storage region,
// including the guard region. Exposed for diagnostics, matching
// distortos's own unit tests which assert on the adjusted size directly.
func (s *Stack) AdjustedSize() int {
	return len(s.storage)
}

// Begin returns the address of the first byte of usable (non-guard)
// storage.
func (s *Stack) Begin() uintptr {
	return sliceAddr(s.storage) + GuardSize
}

// End returns the address one past the last byte of storage.
func (s *Stack) End() uintptr {
	return sliceAddr(s.storage) + uintptr(len(s.storage))
}

// Initialize fills the entire region with the sentinel, then asks the
// architecture port to build the initial stack frame for runner. It
// stores the resulting stack pointer. Returns kerr.ErrNoSpace if the
// region is too small for the frame.
func (s *Stack) Initialize(port arch.Port, runner func()) error {
	fill(s.storage, sentinel)
	usable := s.storage[GuardSize:]
	sp, err := port.InitializeStack(usable, runner)
	if err != nil {
		return err
	}
	if !s.checkStackPointer(sp) {
		return kerr.ErrNoSpace
	}
	s.sp = sp
	s.spStored = true
	return nil
}

// StackPointer returns the saved stack pointer and whether one has been
// stored (via Initialize or Save).
func (s *Stack) StackPointer() (uintptr, bool) {
	return s.sp, s.spStored
}

// Save stores sp as the thread's current stack pointer while it is not
// running. Used by the scheduler's SwitchContext.
func (s *Stack) Save(sp uintptr) error {
	if !s.checkStackPointer(sp) {
		return kerr.ErrNoSpace
	}
	s.sp = sp
	s.spStored = true
	return nil
}

// checkStackPointer reports whether sp lies within
// [begin+guard, end], the invariant the saved stack pointer must always
// satisfy.
func (s *Stack) checkStackPointer(sp uintptr) bool {
	return sp >= s.Begin() && sp <= s.End()
}

// CheckStackPointer is the exported form of checkStackPointer, used by the
// scheduler to validate an incoming stack pointer from the context-switch
// ISR before trusting it.
func (s *Stack) CheckStackPointer(sp uintptr) bool {
	return s.checkStackPointer(sp)
}

// GuardIntact reports whether every word of the guard region still equals
// the sentinel. A false result means the thread overflowed its stack and
// the caller must route to fatal.Error.
func (s *Stack) GuardIntact() bool {
	guard := s.storage[:GuardSize]
	for i := 0; i+wordSize <= len(guard); i += wordSize {
		if binary.LittleEndian.Uint32(guard[i:]) != sentinel {
			return false
		}
	}
	return true
}

// HighWaterMark counts sentinel-equal words from the end of the usable
// region downward until a non-sentinel word is found, and returns the
// distance in bytes. It is a diagnostic for stack-sizing, not used by any
// scheduling decision.
func (s *Stack) HighWaterMark() int {
	usable := s.storage[GuardSize:]
	used := 0
	for i := len(usable) - wordSize; i >= 0; i -= wordSize {
		if binary.LittleEndian.Uint32(usable[i:]) != sentinel {
			break
		}
		used += wordSize
	}
	return used
}

func fill(b []byte, word uint32) {
	var buf [wordSize]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	for i := 0; i+wordSize <= len(b); i += wordSize {
		copy(b[i:i+wordSize], buf[:])
	}
}
