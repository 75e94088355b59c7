package designer

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mq-designer/config"
	"mq-designer/storage"
	"mq-designer/topology"
)

type spyNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *spyNotifier) Success(designID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *spyNotifier) Error(designID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *spyNotifier) lastError() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.errors) == 0 {
		return ""
	}
	return n.errors[len(n.errors)-1]
}

func (n *spyNotifier) counts() (successes, errors int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errors)
}

func testConfig(strict bool) *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{PollIntervalMS: 20, TickIntervalMS: 10},
		Validation: config.ValidationConfig{Strict: strict},
		Snapshots:  config.SnapshotsConfig{Keep: 2},
	}
}

func newTestService(t *testing.T, strict bool) (*Service, *spyNotifier, *storage.Store) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "designer.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	spy := &spyNotifier{}
	return NewService(testConfig(strict), store, spy, logger), spy, store
}

func seedTopology(t *testing.T, svc *Service, designID string) {
	t.Helper()
	_, err := svc.CreateExchange(designID, topology.Exchange{Name: "orders", Kind: topology.KindTopic})
	require.NoError(t, err)
	_, err = svc.CreateQueue(designID, topology.Queue{Name: "orders.eu"})
	require.NoError(t, err)
}

func TestCreateDesignLoadsState(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "order flow")
	require.NoError(t, err)
	require.NotEmpty(t, design.ID)

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Exchanges)

	infos, err := svc.Designs()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "shop", infos[0].Name)

	_, err = svc.CreateDesign("shop", "")
	assert.Error(t, err, "duplicate design name is rejected")
}

func TestCreateExchangePersists(t *testing.T) {
	defer leaktest.Check(t)()
	svc, spy, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)

	_, err = svc.CreateExchange(design.ID, topology.Exchange{Name: "orders", Kind: topology.KindTopic, Durable: true})
	require.NoError(t, err)

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	require.Len(t, cfg.Exchanges, 1)
	assert.True(t, cfg.Exchanges[0].Durable)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	require.Len(t, stored.Exchanges, 1)

	successes, _ := spy.counts()
	assert.GreaterOrEqual(t, successes, 2, "design create and exchange create were announced")
}

func TestCreateExchangeInvalidLeavesStateUntouched(t *testing.T) {
	defer leaktest.Check(t)()
	svc, spy, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)

	_, err = svc.CreateExchange(design.ID, topology.Exchange{Name: "orders", Kind: "pubsub"})
	require.Error(t, err)
	assert.ErrorIs(t, err, topology.ErrUnknownKind)
	assert.NotEmpty(t, spy.lastError())

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Exchanges)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Exchanges)
}

func TestCreateBindingStrictBlocksBadRoutingKey(t *testing.T) {
	defer leaktest.Check(t)()
	svc, spy, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	result, err := svc.CreateBinding(design.ID, topology.Binding{
		Source: "orders", Destination: "orders.eu", RoutingKey: "orders.#.created",
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Check.RoutingKey)
	assert.False(t, result.Check.RoutingKey.Valid)
	assert.Contains(t, spy.lastError(), "# wildcard must be at the end")

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Bindings, "rejected binding is not stored")
}

func TestCreateBindingOverrideAllowsAdvisoryFailure(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	lenient := false
	result, err := svc.CreateBinding(design.ID, topology.Binding{
		Source: "orders", Destination: "orders.eu", RoutingKey: "*.orders",
	}, &lenient)
	require.NoError(t, err)
	require.NotNil(t, result.Check.RoutingKey)
	assert.False(t, result.Check.RoutingKey.Valid, "advisory result still reports the problem")
	assert.Equal(t, "Warning: wildcard at the start may not match as expected", result.Check.RoutingKey.Warning)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bindings, 1)
}

func TestCreateBindingLenientDefault(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, false)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	result, err := svc.CreateBinding(design.ID, topology.Binding{
		Source: "orders", Destination: "orders.eu", RoutingKey: "orders.x#.#",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Check.RoutingKey)
	assert.False(t, result.Check.RoutingKey.Valid)
}

func TestCreateBindingMissingEndpointAlwaysBlocks(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, false)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	lenient := false
	result, err := svc.CreateBinding(design.ID, topology.Binding{
		Source: "ghost", Destination: "orders.eu",
	}, &lenient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Exchange "ghost" does not exist`)
	assert.False(t, result.Check.Valid)

	result, err = svc.CreateBinding(design.ID, topology.Binding{
		Source: "orders", Destination: "ghost",
	}, &lenient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Queue "ghost" does not exist`)
	assert.False(t, result.Check.Valid)
}

func TestCheckBindingIsReadOnly(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	check, err := svc.CheckBinding(design.ID, topology.Binding{
		Source: "orders", Destination: "orders.eu", RoutingKey: "orders.**",
	})
	require.NoError(t, err)
	assert.True(t, check.Valid)
	require.NotNil(t, check.RoutingKey)
	assert.False(t, check.RoutingKey.Valid)

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Bindings)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Bindings)
}

func TestSetQueueFlagKeepsInvariant(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	_, err = svc.CreateQueue(design.ID, topology.Queue{Name: "jobs", Durable: true})
	require.NoError(t, err)

	q, err := svc.SetQueueFlag(design.ID, "jobs", "exclusive", true)
	require.NoError(t, err)
	assert.True(t, q.Exclusive)
	assert.False(t, q.Durable, "enabling exclusive turns durable off")

	q, err = svc.SetQueueFlag(design.ID, "jobs", "durable", true)
	require.NoError(t, err)
	assert.True(t, q.Durable)
	assert.False(t, q.Exclusive)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	sq := stored.FindQueue("jobs")
	require.NotNil(t, sq)
	assert.True(t, sq.Durable)
	assert.False(t, sq.Exclusive)

	_, err = svc.SetQueueFlag(design.ID, "jobs", "mirrored", true)
	assert.Error(t, err)
}

func TestDeleteExchangeBlockedByAlternateReference(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	_, err = svc.CreateExchange(design.ID, topology.Exchange{Name: "fallback", Kind: topology.KindFanout})
	require.NoError(t, err)
	_, err = svc.CreateExchange(design.ID, topology.Exchange{Name: "orders", Kind: topology.KindTopic, AlternateExchange: "fallback"})
	require.NoError(t, err)

	err = svc.DeleteExchange(design.ID, "fallback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alternate exchange of")

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Len(t, cfg.Exchanges, 2)
}

func TestDeleteExchangeCascades(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)
	_, err = svc.CreateBinding(design.ID, topology.Binding{Source: "orders", Destination: "orders.eu", RoutingKey: "orders.#"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExchange(design.ID, "orders"))

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Exchanges)
	assert.Empty(t, cfg.Bindings)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Bindings)
}

func TestRenameExchangeKeepsBindings(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)
	_, err = svc.CreateBinding(design.ID, topology.Binding{Source: "orders", Destination: "orders.eu", RoutingKey: "orders.#"}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateExchange(design.ID, "orders", topology.Exchange{Name: "orders.v2", Kind: topology.KindTopic})
	require.NoError(t, err)

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	require.Len(t, cfg.Bindings, 1)
	assert.Equal(t, "orders.v2", cfg.Bindings[0].Source)

	stored, err := store.LoadTopology(design.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bindings, 1)
	assert.Equal(t, "orders.v2", stored.Bindings[0].Source)
}

func TestSnapshotIsACopy(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	cfg.Exchanges[0].Name = "tampered"
	cfg.Queues = nil

	again, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", again.Exchanges[0].Name)
	assert.Len(t, again.Queues, 1)
}

func TestImportDefinitionsReplacesTopology(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	doc := []byte(`{
		"exchanges": [{"name": "events", "kind": "fanout"}],
		"queues": [{"name": "audit"}],
		"bindings": [{"source": "events", "destination": "audit"}]
	}`)
	require.NoError(t, svc.ImportDefinitions(design.ID, doc, "json"))

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	require.Len(t, cfg.Exchanges, 1)
	assert.Equal(t, "events", cfg.Exchanges[0].Name)
	require.Len(t, cfg.Bindings, 1)
	assert.NotEmpty(t, cfg.Bindings[0].ID, "imported bindings get IDs assigned")
}

func TestImportDefinitionsRejectsInvalidDocument(t *testing.T) {
	defer leaktest.Check(t)()
	svc, spy, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	doc := []byte(`{
		"exchanges": [{"name": "events", "kind": "fanout"}],
		"queues": [{"name": "audit"}, {"name": "audit"}]
	}`)
	err = svc.ImportDefinitions(design.ID, doc, "json")
	require.Error(t, err)
	assert.NotEmpty(t, spy.lastError())

	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	require.Len(t, cfg.Exchanges, 1)
	assert.Equal(t, "orders", cfg.Exchanges[0].Name, "failed import leaves the old topology in place")
}

func TestSnapshotSaveRestorePrune(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	first, err := svc.SaveSnapshot(design.ID)
	require.NoError(t, err)

	_, err = svc.CreateQueue(design.ID, topology.Queue{Name: "orders.us"})
	require.NoError(t, err)
	_, err = svc.SaveSnapshot(design.ID)
	require.NoError(t, err)
	_, err = svc.SaveSnapshot(design.ID)
	require.NoError(t, err)

	snapshots, err := svc.Snapshots(design.ID)
	require.NoError(t, err)
	assert.Len(t, snapshots, 2, "retention keeps the two newest snapshots")

	// The first snapshot is pruned by now.
	err = svc.RestoreSnapshot(design.ID, first.ID)
	assert.Error(t, err)

	require.NoError(t, svc.RestoreSnapshot(design.ID, snapshots[1].ID))
	cfg, err := svc.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Len(t, cfg.Queues, 2)
}

func TestOverviewCountsEntities(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)
	_, err = svc.CreateBinding(design.ID, topology.Binding{Source: "orders", Destination: "orders.eu", RoutingKey: "orders.#"}, nil)
	require.NoError(t, err)

	overview, err := svc.OverviewFor(design.ID)
	require.NoError(t, err)
	assert.Equal(t, "shop", overview.Name)
	assert.Equal(t, 1, overview.Exchanges)
	assert.Equal(t, 1, overview.Queues)
	assert.Equal(t, 1, overview.Bindings)
	assert.False(t, overview.Running)
}

func TestDesignReloadFromStore(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, store := newTestService(t, true)

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)
	svc.Close()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	fresh := NewService(testConfig(true), store, &spyNotifier{}, logger)
	defer fresh.Close()

	require.NoError(t, fresh.LoadDesign(design.ID))
	cfg, err := fresh.Snapshot(design.ID)
	require.NoError(t, err)
	assert.Len(t, cfg.Exchanges, 1)
	assert.Len(t, cfg.Queues, 1)
}

func TestSimulationLifecycle(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	design, err := svc.CreateDesign("shop", "")
	require.NoError(t, err)
	seedTopology(t, svc, design.ID)

	require.NoError(t, svc.StartSimulation(design.ID))
	running, err := svc.SimulationRunning(design.ID)
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, svc.SetConsumers(design.ID, "orders.eu", 2))
	assert.Error(t, svc.SetConsumers(design.ID, "ghost", 1))

	enqueued, err := svc.InjectTraffic(design.ID, "orders", "orders.eu.created", nil, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), enqueued)

	require.NoError(t, svc.ResetSimulation(design.ID))
	require.NoError(t, svc.StopSimulation(design.ID))
	running, err = svc.SimulationRunning(design.ID)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestUnknownDesignErrors(t *testing.T) {
	defer leaktest.Check(t)()
	svc, _, _ := newTestService(t, true)
	defer svc.Close()

	_, err := svc.Snapshot("ghost")
	assert.Error(t, err)
	_, err = svc.CreateExchange("ghost", topology.Exchange{Name: "x", Kind: topology.KindDirect})
	assert.Error(t, err)
	assert.Error(t, svc.StartSimulation("ghost"))
	assert.Error(t, svc.LoadDesign("ghost"))
}
