// Package observability provides a hook that records campaign and call
// lifecycle metrics to a Prometheus registry.
//
// Register it like any other hook:
//
//	eng, err := engine.New(store,
//	    engine.WithHook(observability.NewMetricsHook(prometheus.DefaultRegisterer)),
//	)
package observability
