package emulation

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mq-designer/topology"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testEngine(t *testing.T, cfg *topology.Config) *Engine {
	t.Helper()
	e := NewEngine("design-1", testLogger())
	e.Initialize(cfg)
	return e
}

func routingConfig() *topology.Config {
	return &topology.Config{
		Exchanges: []topology.Exchange{
			{Name: "orders", Kind: topology.KindTopic, AlternateExchange: "unrouted"},
			{Name: "broadcast", Kind: topology.KindFanout},
			{Name: "tasks", Kind: topology.KindDirect},
			{Name: "meta", Kind: topology.KindHeaders},
			{Name: "unrouted", Kind: topology.KindFanout},
		},
		Queues: []topology.Queue{
			{Name: "orders.eu"},
			{Name: "orders.all"},
			{Name: "audit"},
			{Name: "jobs"},
			{Name: "pdf-sink"},
			{Name: "lost"},
		},
		Bindings: []topology.Binding{
			{ID: "b1", Source: "orders", Destination: "orders.eu", RoutingKey: "orders.eu.#"},
			{ID: "b2", Source: "orders", Destination: "orders.all", RoutingKey: "orders.#"},
			{ID: "b3", Source: "broadcast", Destination: "audit"},
			{ID: "b4", Source: "broadcast", Destination: "orders.all"},
			{ID: "b5", Source: "tasks", Destination: "jobs", RoutingKey: "resize"},
			{ID: "b6", Source: "meta", Destination: "pdf-sink",
				Args: map[string]interface{}{"x-match": topology.XMatchAll, "format": "pdf"}},
			{ID: "b7", Source: "unrouted", Destination: "lost"},
		},
	}
}

func TestEngineInitializeStartsEmpty(t *testing.T) {
	e := testEngine(t, routingConfig())

	snap := e.AllQueueMetrics()
	require.Len(t, snap, 6)
	for name, m := range snap {
		assert.Equal(t, QueueMetrics{}, m, name)
	}
}

func TestEngineTopicRouting(t *testing.T) {
	e := testEngine(t, routingConfig())

	enqueued, err := e.Publish("orders", "orders.eu.created", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), enqueued, "both matching topic bindings deliver")

	snap := e.AllQueueMetrics()
	assert.Equal(t, int64(10), snap["orders.eu"].Ready)
	assert.Equal(t, int64(10), snap["orders.all"].Ready)
	assert.Equal(t, int64(0), snap["lost"].Ready, "routable messages never hit the alternate exchange")
}

func TestEngineFanoutAndDirectRouting(t *testing.T) {
	e := testEngine(t, routingConfig())

	_, err := e.Publish("broadcast", "", nil, 3)
	require.NoError(t, err)

	_, err = e.Publish("tasks", "resize", nil, 2)
	require.NoError(t, err)
	_, err = e.Publish("tasks", "upscale", nil, 2)
	require.NoError(t, err)

	snap := e.AllQueueMetrics()
	assert.Equal(t, int64(3), snap["audit"].Ready)
	assert.Equal(t, int64(3), snap["orders.all"].Ready)
	assert.Equal(t, int64(2), snap["jobs"].Ready, "unmatched direct key goes nowhere")
}

func TestEngineHeadersRouting(t *testing.T) {
	e := testEngine(t, routingConfig())

	_, err := e.Publish("meta", "", map[string]interface{}{"format": "pdf"}, 4)
	require.NoError(t, err)
	_, err = e.Publish("meta", "", map[string]interface{}{"format": "doc"}, 4)
	require.NoError(t, err)

	assert.Equal(t, int64(4), e.AllQueueMetrics()["pdf-sink"].Ready)
}

func TestEngineAlternateExchangeFallthrough(t *testing.T) {
	e := testEngine(t, routingConfig())

	enqueued, err := e.Publish("orders", "payments.created", nil, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), enqueued)

	snap := e.AllQueueMetrics()
	assert.Equal(t, int64(5), snap["lost"].Ready)
	assert.Equal(t, int64(0), snap["orders.all"].Ready)
}

func TestEnginePublishUnknownExchange(t *testing.T) {
	e := testEngine(t, routingConfig())
	_, err := e.Publish("ghost", "", nil, 1)
	assert.Error(t, err)
}

func TestEngineMaxLengthDropsOverflow(t *testing.T) {
	e := testEngine(t, &topology.Config{
		Exchanges: []topology.Exchange{{Name: "in", Kind: topology.KindFanout}},
		Queues:    []topology.Queue{{Name: "small", MaxLength: 5}},
		Bindings:  []topology.Binding{{ID: "b1", Source: "in", Destination: "small"}},
	})

	enqueued, err := e.Publish("in", "", nil, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(5), enqueued)
	assert.Equal(t, int64(5), e.AllQueueMetrics()["small"].Ready)
}

func TestEngineTickDeliversAndAcks(t *testing.T) {
	e := testEngine(t, routingConfig())
	require.NoError(t, e.UpdateQueue("audit", 2))

	_, err := e.Publish("broadcast", "", nil, 100)
	require.NoError(t, err)

	e.Tick()
	snap := e.AllQueueMetrics()["audit"]
	assert.Equal(t, int64(100-2*deliveriesPerConsumer), snap.Ready)
	assert.Equal(t, int64(2*deliveriesPerConsumer), snap.Unacked, "deliveries stay in flight for a tick")
	assert.Equal(t, int64(100), snap.Messages)
	assert.Equal(t, 2, snap.Consumers)

	e.Tick()
	snap = e.AllQueueMetrics()["audit"]
	assert.Equal(t, int64(100-2*acksPerConsumer), snap.Messages, "second tick acks the first delivery")

	// Without consumers nothing moves.
	before := e.AllQueueMetrics()["orders.all"]
	e.Tick()
	assert.Equal(t, before, e.AllQueueMetrics()["orders.all"])
}

func TestEngineUpdateQueueUnknown(t *testing.T) {
	e := testEngine(t, routingConfig())
	assert.Error(t, e.UpdateQueue("ghost", 1))
	_, err := e.PurgeQueue("ghost")
	assert.Error(t, err)
}

func TestEnginePurgeKeepsUnacked(t *testing.T) {
	e := testEngine(t, routingConfig())
	require.NoError(t, e.UpdateQueue("audit", 1))
	_, err := e.Publish("broadcast", "", nil, 50)
	require.NoError(t, err)
	e.Tick()

	purged, err := e.PurgeQueue("audit")
	require.NoError(t, err)
	assert.Equal(t, int64(50-deliveriesPerConsumer), purged)

	snap := e.AllQueueMetrics()["audit"]
	assert.Equal(t, int64(0), snap.Ready)
	assert.Equal(t, int64(deliveriesPerConsumer), snap.Unacked, "purge leaves in-flight messages alone")
}

func TestEngineApplyConfigPreservesSurvivors(t *testing.T) {
	cfg := routingConfig()
	e := testEngine(t, cfg)

	_, err := e.Publish("broadcast", "", nil, 7)
	require.NoError(t, err)
	require.NoError(t, e.UpdateQueue("audit", 3))

	next := cfg.Clone()
	next.Queues = append(next.Queues[:3], topology.Queue{Name: "fresh"}) // drops jobs, pdf-sink, lost
	e.ApplyConfig(next)

	snap := e.AllQueueMetrics()
	require.Contains(t, snap, "fresh")
	assert.Equal(t, QueueMetrics{}, snap["fresh"])
	assert.Equal(t, int64(7), snap["audit"].Ready, "surviving queue keeps its backlog")
	assert.Equal(t, 3, snap["audit"].Consumers)
	assert.NotContains(t, snap, "jobs")
	assert.NotContains(t, snap, "lost")
}

func TestEngineReset(t *testing.T) {
	e := testEngine(t, routingConfig())
	require.NoError(t, e.UpdateQueue("audit", 2))
	_, err := e.Publish("broadcast", "", nil, 30)
	require.NoError(t, err)

	e.Reset()
	snap := e.AllQueueMetrics()["audit"]
	assert.Equal(t, int64(0), snap.Messages)
	assert.Equal(t, 2, snap.Consumers, "reset keeps consumer attachments")
}

func TestEngineStartStopNoLeak(t *testing.T) {
	defer leaktest.Check(t)()

	e := testEngine(t, routingConfig())
	e.Start(time.Millisecond)
	assert.True(t, e.Running())

	// Stop must not return before the tick goroutine exits.
	e.Stop()
	assert.False(t, e.Running())

	// Stop and Start are idempotent.
	e.Stop()
	e.Start(time.Millisecond)
	e.Start(time.Millisecond)
	e.Stop()
}

func TestEngineTickLoopDrainsQueue(t *testing.T) {
	defer leaktest.Check(t)()

	e := testEngine(t, routingConfig())
	require.NoError(t, e.UpdateQueue("audit", 4))
	_, err := e.Publish("broadcast", "", nil, 64)
	require.NoError(t, err)

	e.Start(time.Millisecond)
	defer e.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if e.AllQueueMetrics()["audit"].Messages == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("queue not drained, metrics: %+v", e.AllQueueMetrics()["audit"])
		case <-time.After(5 * time.Millisecond):
		}
	}
}
