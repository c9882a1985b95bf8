package flowgraph

import "github.com/ehrlich-b/go-flowgraph/internal/constants"

// Re-exported defaults for public API callers that want to reference the
// library's sizing without sizing a buffer by hand.
const (
	DefaultRingCapacity    = constants.DefaultRingCapacity
	DefaultSlabRecordLen   = constants.DefaultSlabRecordLen
	DefaultSlabPoolSize    = constants.DefaultSlabPoolSize
	DefaultMinItems        = constants.DefaultMinItems
	DefaultMailboxCapacity = constants.DefaultMailboxCapacity
	DefaultPoolWorkers     = constants.DefaultPoolWorkers
	DefaultParkTimeout     = constants.DefaultParkTimeout
	ShutdownGracePeriod    = constants.ShutdownGracePeriod
)
