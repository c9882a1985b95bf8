package constants

import "time"

// Default buffer sizing: consumers never need to size a ring manually for
// typical pipelines.
const (
	// DefaultRingCapacity is the number of items reserved for a stream ring
	// edge when the caller does not specify one.
	DefaultRingCapacity = 1 << 16

	// DefaultSlabRecordLen is the item count per slab record.
	DefaultSlabRecordLen = 8192

	// DefaultSlabPoolSize is the number of records a slab edge keeps in
	// rotation between its free and ready queues.
	DefaultSlabPoolSize = 4

	// DefaultMinItems is the default lower bound on a writer/reader's
	// exposed slice before a kernel is asked to act on it.
	DefaultMinItems = 1

	// DefaultMailboxCapacity bounds a block's inbound message queue.
	DefaultMailboxCapacity = 64
)

// Scheduler defaults.
const (
	// DefaultPoolWorkers is the work-stealing pool's default goroutine
	// count when the caller does not size it to GOMAXPROCS explicitly.
	DefaultPoolWorkers = 0 // 0 means "use runtime.GOMAXPROCS(0)"

	// DefaultParkTimeout bounds how long a parked block waits before
	// re-checking its dispatch rule, guarding against a missed wakeup.
	DefaultParkTimeout = 250 * time.Millisecond
)

// ShutdownGracePeriod is an exported shutdown duration; the driver does not
// read it, since Terminate cancels every block's context at once.
const ShutdownGracePeriod = 5 * time.Second
