package ksignal

// MaxSignalNumber is the highest valid signal number (spec §4.I: signals
// are numbered 0-31).
const MaxSignalNumber = 31

// Set is a bitmask over signal numbers 0-31, the Go analogue of
// distortos's SignalSet.
type Set uint32

// bit returns the mask bit for signal number n. Callers must have already
// validated n <= MaxSignalNumber.
func bit(n uint8) Set { return Set(1) << n }

// With returns s with n added.
func (s Set) With(n uint8) Set { return s | bit(n) }

// Without returns s with n removed.
func (s Set) Without(n uint8) Set { return s &^ bit(n) }

// Contains reports whether n is set in s.
func (s Set) Contains(n uint8) bool { return s&bit(n) != 0 }

// Or returns the union of s and other.
func (s Set) Or(other Set) Set { return s | other }

// AndNot returns the signals in s that are not in other.
func (s Set) AndNot(other Set) Set { return s &^ other }

// Empty reports whether no signal number is set.
func (s Set) Empty() bool { return s == 0 }

// Equal reports whether s and other have identical bits.
func (s Set) Equal(other Set) bool { return s == other }
