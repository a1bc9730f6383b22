package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency = metric.NewHistogram("1m1s")
	RoundLatency    = metric.NewHistogram("1m1s")
	RoundsPerSecond = metric.NewCounter("10s1s")
	RouteChanges    = metric.NewCounter("10s1s")
	Anomalies       = metric.NewCounter("1m1s")
)

func init() {
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("dvsim:RoundLatency (µs)", RoundLatency)
	expvar.Publish("dvsim:Rounds/s", RoundsPerSecond)
	expvar.Publish("dvsim:RouteChanges/s", RouteChanges)
	expvar.Publish("dvsim:Anomalies", Anomalies)
}

func Handler() http.Handler {
	return metric.Handler(metric.Exposed)
}
