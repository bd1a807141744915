// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for the descriptor pool and the socket server, exported
// through the docker go-metrics namespace "cnet".

package control

import (
	"net/http"

	metrics "github.com/docker/go-metrics"
	"github.com/momentics/cnet/api"
)

var (
	registeredDescriptors metrics.LabeledGauge
	socketsCreated        metrics.Counter
	connectionsAccepted   metrics.Counter
	pollErrors            metrics.Counter
	bytesReceived         metrics.Counter
)

func init() {
	ns := metrics.NewNamespace("cnet", "", nil)
	registeredDescriptors = ns.NewLabeledGauge("registered_descriptors", "The number of descriptors registered per protocol", metrics.Unit(""), "protocol")
	for _, p := range []api.Protocol{api.ProtocolTCP, api.ProtocolUDP} {
		registeredDescriptors.WithValues(p.String()).Set(0)
	}
	socketsCreated = ns.NewCounter("sockets_created", "The total number of listening sockets created")
	connectionsAccepted = ns.NewCounter("connections_accepted", "The total number of accepted connections")
	pollErrors = ns.NewCounter("poll_errors", "The total number of failed readiness waits")
	bytesReceived = ns.NewCounter("received_bytes", "The total number of payload bytes read by handlers")
	metrics.Register(ns)
}

// Metrics is the recorder handed to the server. The zero value records into
// the process-wide namespace.
type Metrics struct{}

// SetRegistered publishes the registration count of p.
func (Metrics) SetRegistered(p api.Protocol, n int) {
	registeredDescriptors.WithValues(p.String()).Set(float64(n))
}

// SocketCreated counts a listener.
func (Metrics) SocketCreated() { socketsCreated.Inc() }

// Accepted counts an accepted connection.
func (Metrics) Accepted() { connectionsAccepted.Inc() }

// PollError counts a failed readiness wait.
func (Metrics) PollError() { pollErrors.Inc() }

// Received adds n payload bytes.
func (Metrics) Received(n int) {
	if n > 0 {
		bytesReceived.Inc(float64(n))
	}
}

// MetricsHandler serves every registered namespace in the Prometheus text
// format.
func MetricsHandler() http.Handler {
	return metrics.Handler()
}
