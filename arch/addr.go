package arch

import "unsafe"

// addrOf returns the address of a slice's backing array, used only as an
// opaque identity for stack pointers; the result is never dereferenced.
func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
