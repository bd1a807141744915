package control

import (
	"io"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/momentics/cnet/api"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestMetricsHandler(t *testing.T) {
	var m Metrics
	m.SetRegistered(api.ProtocolTCP, 3)
	m.SocketCreated()
	m.Accepted()
	m.PollError()
	m.Received(42)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	assert.NilError(t, err)
	out := string(body)

	assert.Check(t, is.Contains(out, `cnet_registered_descriptors{protocol="tcp"} 3`))
	assert.Check(t, is.Contains(out, `cnet_registered_descriptors{protocol="udp"} 0`))
	assert.Check(t, is.Contains(out, "cnet_sockets_created_total"))
	assert.Check(t, is.Contains(out, "cnet_connections_accepted_total"))
	assert.Check(t, is.Contains(out, "cnet_poll_errors_total"))
	assert.Check(t, is.Contains(out, "cnet_received_bytes_total"))
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("b", func() any { return 2 })
	dp.RegisterProbe("a", func() any { return "one" })
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	assert.Equal(t, state["a"], "one")
	assert.Equal(t, state["b"], 2)
	assert.Equal(t, state["platform.cpus"], runtime.NumCPU())
	assert.Check(t, is.Contains(dp.Names(), "a"))

	// Probes may call back into the registry.
	dp.RegisterProbe("names", func() any { return len(dp.Names()) })
	assert.Equal(t, dp.DumpState()["names"], len(dp.Names()))
}
