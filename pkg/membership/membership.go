// Package membership defines the boundary between the quorum daemon and
// the cluster membership service it reports votes to. The service itself
// (the production cman-equivalent) is out of scope; only the interface
// and a local test/dev stub live in this module.
package membership

// NodeInfo describes one cluster member as the membership service
// reports it: its id and whether it currently counts toward cluster
// membership.
type NodeInfo struct {
	ID     int
	Member bool
}

// Service is everything the quorum daemon needs from the cluster
// membership service.
type Service interface {
	// Self returns this node's id as the membership service knows it.
	Self() (int, error)
	// Nodes returns every node the membership service currently knows
	// about, along with each one's membership flag.
	Nodes() ([]NodeInfo, error)
	// Poll reports whether this node is currently contributing a vote
	// to cluster quorum.
	Poll(ok bool) error
	// Kill asks the membership service to forcibly remove node id from
	// the cluster.
	Kill(id int) error
	// Register announces this quorum device to the membership service
	// under label, contributing votes toward quorum.
	Register(label string, votes int) error
	// Unregister withdraws a previously registered quorum device.
	Unregister() error
	// Shutdown requests that the entire cluster shut down, used when
	// this node cannot safely continue and stop_cman is configured.
	Shutdown() error
	// DispatchNonblocking services any pending membership-service
	// events without blocking; called once per tick.
	DispatchNonblocking() error
}
