package httptransport

import "expvar"

var (
	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")
	metricWSConnectionsTotal   = expvar.NewInt("ws_connections_total")
	metricWSConnectionsActive  = expvar.NewInt("ws_connections_active")
	metricEventsDropped        = expvar.NewInt("stream_events_dropped_total")
)

// CountDropped is meant for broadcast.Hub.OnDropped.
func CountDropped(string) {
	metricEventsDropped.Add(1)
}
