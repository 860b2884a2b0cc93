package thread

// Priority is a scheduling priority. Higher numeric values run first,
// matching distortos's convention (ThreadControlBlock orders its priority
// list from highest to lowest).
type Priority uint8

// MaxPriority is the highest priority a thread may hold.
const MaxPriority Priority = 255

// Policy selects how the scheduler treats threads that share a priority
// level, mirroring distortos's SchedulingPolicy enum
// (include/distortos/SchedulingPolicy.hpp).
type Policy uint8

const (
	// PolicyFIFO runs a thread until it blocks, terminates, or a
	// higher-priority thread becomes ready; it is never preempted by an
	// equal-priority thread.
	PolicyFIFO Policy = iota
	// PolicyRoundRobin is like PolicyFIFO but time-slices among
	// equal-priority threads.
	PolicyRoundRobin
)

// State is the lifecycle state of a thread, mirroring distortos's
// ThreadState enum (include/distortos/ThreadState.hpp).
type State uint8

const (
	// StateCreated is the initial state before the thread is added to a
	// scheduler.
	StateCreated State = iota
	// StateRunnable means the thread is on the scheduler's ready list
	// (or currently running).
	StateRunnable
	// StateSleeping means the thread is blocked in a timed sleep.
	StateSleeping
	// StateBlockedOnMutex means the thread is waiting to acquire a
	// kmutex.Mutex.
	StateBlockedOnMutex
	// StateBlockedOnSemaphore means the thread is waiting on a
	// ksem.Semaphore.
	StateBlockedOnSemaphore
	// StateBlockedOnJoin means the thread is waiting for another thread
	// to terminate.
	StateBlockedOnJoin
	// StateBlockedOnSignal means the thread is waiting to receive a
	// signal.
	StateBlockedOnSignal
	// StateSuspended means the thread was explicitly suspended and will
	// not run until resumed, independent of any other block reason.
	StateSuspended
	// StateTerminated means the thread's function has returned but its
	// control block has not yet been detached/joined.
	StateTerminated
	// StateDetached means a terminated thread's resources may be
	// reclaimed; no further operations on it are valid.
	StateDetached
)

// String names the state for diagnostics and log fields.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunnable:
		return "runnable"
	case StateSleeping:
		return "sleeping"
	case StateBlockedOnMutex:
		return "blocked-on-mutex"
	case StateBlockedOnSemaphore:
		return "blocked-on-semaphore"
	case StateBlockedOnJoin:
		return "blocked-on-join"
	case StateBlockedOnSignal:
		return "blocked-on-signal"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// IsBlocked reports whether s is one of the states in which a thread sits
// on some wait list rather than the scheduler's ready list.
func (s State) IsBlocked() bool {
	switch s {
	case StateSleeping, StateBlockedOnMutex, StateBlockedOnSemaphore, StateBlockedOnJoin, StateBlockedOnSignal:
		return true
	default:
		return false
	}
}
