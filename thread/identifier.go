package thread

// Identifier is an opaque, copyable handle to a TCB that stays valid (in
// the sense of being safely comparable and dereferenceable through
// Resolve) even after the TCB it once named has been reused for a new
// thread. Grounded on ThreadIdentifier.cpp/.hpp: the pairing of a pointer
// with a sequence number is exactly how distortos tells a live reference
// apart from a dangling one without adding any indirection to the hot
// scheduler path.
type Identifier struct {
	tcb      *TCB
	sequence uint64
}

// IdentifierOf returns the Identifier naming t's current occupant.
func IdentifierOf(t *TCB) Identifier {
	if t == nil {
		return Identifier{}
	}
	return Identifier{tcb: t, sequence: t.sequence}
}

// Resolve returns the TCB this identifier names, or nil if it is the
// zero Identifier or the named TCB has since been replaced (its sequence
// number no longer matches).
func (id Identifier) Resolve() *TCB {
	if id.tcb == nil || id.tcb.sequence != id.sequence {
		return nil
	}
	return id.tcb
}

// Valid reports whether Resolve would return non-nil.
func (id Identifier) Valid() bool {
	return id.Resolve() != nil
}

// Equal reports whether id and other name the same live thread, or are
// both invalid. Mirrors ThreadIdentifier::operator== comparing resolved
// Thread pointers rather than raw fields.
func (id Identifier) Equal(other Identifier) bool {
	return id.Resolve() == other.Resolve()
}
