package filesystem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters, registered on the default registry. Hosts that expose a
// /metrics endpoint get these for free via promhttp.
var (
	nodesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memtree",
		Name:      "nodes_created_total",
		Help:      "Nodes allocated and registered, root excluded.",
	})
	nodesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memtree",
		Name:      "nodes_evicted_total",
		Help:      "Detached nodes released through Evict.",
	})
	bytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memtree",
		Name:      "read_bytes_total",
		Help:      "Bytes copied out of node buffers.",
	})
	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memtree",
		Name:      "written_bytes_total",
		Help:      "Bytes copied into node buffers, short transfers included.",
	})
)
