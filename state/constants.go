package state

import (
	"math"
	"time"
)

// INF is the metric of a destination that cannot be reached.
// Metrics are uint64 so that INF + INF never overflows.
const INF = uint64(math.MaxUint32)

// MaxLinkCost is the largest cost a link may carry in a network with the given number of nodes.
// A simple path crosses at most nodes-1 links, so no reachable destination can sum to INF.
func MaxLinkCost(nodes int) uint64 {
	return INF / uint64(max(nodes, 2))
}

var (
	AnomalyFactor     = uint64(4)
	StepDelay         = 40 * time.Millisecond
	DispatchQueueSize = 128
	TraceBufferSize   = 1024
	DefaultKind       = KindRelay

	// http inspect server
	DefaultHttpBind     = "127.0.0.1:6060"
	HttpShutdownTimeout = 2 * time.Second
)

// debug switches, set from the command line
var (
	DBG_log_router = false
	DBG_log_round  = false
)
