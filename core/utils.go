package core

import (
	"reflect"

	"github.com/encodeous/dvsim/state"
)

// AddMetric adds two metrics, saturating at state.INF
func AddMetric(a, b uint64) uint64 {
	if a >= state.INF || b >= state.INF {
		return state.INF
	} else {
		return min(state.INF, a+b)
	}
}

// MulMetric scales a link cost, saturating at ceiling
func MulMetric(cost, factor, ceiling uint64) uint64 {
	if factor != 0 && cost > ceiling/factor {
		return ceiling
	}
	return min(ceiling, cost*factor)
}

func Get[T state.SimModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
