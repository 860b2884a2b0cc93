// Package fatal implements the kernel's single fatal-error path.
//
// distortos's fatal_error (original_source/source/fatalErrorHandler.cpp)
// calls an optional weak hook and then masks interrupts and spins forever
// — there is no way to return from it and no way for the kernel to keep
// running afterward. A hosted Go process has no equivalent of "spin
// forever with interrupts masked" that wouldn't just wedge the test
// binary, so this package's analogue is: call the hook, then panic. A
// panic unwinds exactly one goroutine and, uncaught, crashes the process,
// which is the closest hosted equivalent of an unrecoverable halt; the
// hook is still the place to plug in telemetry before that happens.
package fatal

// Hook is called by Error before it panics. Reassign it at boot to route
// fatal diagnostics somewhere other than stderr (distortos calls this the
// fatal error hook). The default Hook does nothing; Error always panics
// regardless of what the hook does.
var Hook func(file string, line int, function string, message string)

// Error reports an invariant violation: stack overflow, a self-targeting
// RequestFunctionExecution, corrupted kernel state, and similar conditions
// that the kernel cannot safely continue past. It never returns.
func Error(file string, line int, function string, message string) {
	if Hook != nil {
		Hook(file, line, function, message)
	}
	panic(format(file, line, function, message))
}
