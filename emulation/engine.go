package emulation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map"

	"mq-designer/metrics"
	"mq-designer/topology"
)

// QueueMetrics is the per-queue runtime snapshot the designer polls. Messages
// is always Ready plus Unacked.
type QueueMetrics struct {
	Messages  int64 `json:"messages"`
	Ready     int64 `json:"ready"`
	Unacked   int64 `json:"unacked"`
	Consumers int   `json:"consumers"`
}

// Per-consumer throughput for one tick of the simulated clock.
const (
	deliveriesPerConsumer = 8
	acksPerConsumer       = 8
)

type queueState struct {
	mu        sync.Mutex
	ready     int64
	unacked   int64
	consumers int
	maxLength int64
}

func (q *queueState) snapshot() QueueMetrics {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueMetrics{
		Messages:  q.ready + q.unacked,
		Ready:     q.ready,
		Unacked:   q.unacked,
		Consumers: q.consumers,
	}
}

// Engine is the in-memory broker model behind one design. It routes simulated
// messages through the design's exchanges and bindings into per-queue
// counters and advances delivery on a tick.
type Engine struct {
	designID string
	logger   *slog.Logger

	cfgMu sync.RWMutex
	cfg   *topology.Config

	queues cmap.ConcurrentMap // queue name -> *queueState

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewEngine creates a stopped engine for a design. Call Initialize before
// anything else.
func NewEngine(designID string, logger *slog.Logger) *Engine {
	return &Engine{
		designID: designID,
		logger:   logger,
		cfg:      &topology.Config{},
		queues:   cmap.New(),
	}
}

// DesignID returns the design this engine simulates.
func (e *Engine) DesignID() string {
	return e.designID
}

// Initialize resets the engine to a fresh topology with zeroed counters.
func (e *Engine) Initialize(cfg *topology.Config) {
	cfg = cfg.Clone()

	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	for item := range e.queues.IterBuffered() {
		e.queues.Remove(item.Key)
	}
	for _, q := range cfg.Queues {
		e.queues.Set(q.Name, &queueState{maxLength: q.MaxLength})
	}
	e.logger.Info("emulation engine initialized", "design_id", e.designID, "queues", len(cfg.Queues), "exchanges", len(cfg.Exchanges))
}

// ApplyConfig swaps in a new topology snapshot while the simulation keeps
// running. Counters of queues that survive the change are preserved; removed
// queues are dropped, new ones start empty.
func (e *Engine) ApplyConfig(cfg *topology.Config) {
	cfg = cfg.Clone()

	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	keep := make(map[string]bool, len(cfg.Queues))
	for _, q := range cfg.Queues {
		keep[q.Name] = true
		if val, ok := e.queues.Get(q.Name); ok {
			st := val.(*queueState)
			st.mu.Lock()
			st.maxLength = q.MaxLength
			st.mu.Unlock()
			continue
		}
		e.queues.Set(q.Name, &queueState{maxLength: q.MaxLength})
	}
	for _, name := range e.queues.Keys() {
		if !keep[name] {
			e.queues.Remove(name)
		}
	}
}

// UpdateQueue sets the simulated consumer count for a queue.
func (e *Engine) UpdateQueue(name string, consumers int) error {
	val, ok := e.queues.Get(name)
	if !ok {
		return fmt.Errorf("queue %q is not part of the running topology", name)
	}
	if consumers < 0 {
		consumers = 0
	}
	st := val.(*queueState)
	st.mu.Lock()
	st.consumers = consumers
	st.mu.Unlock()
	return nil
}

// PurgeQueue drops all ready messages of a queue and returns how many were
// dropped. In-flight (unacked) messages stay, as a broker purge would leave
// them.
func (e *Engine) PurgeQueue(name string) (int64, error) {
	val, ok := e.queues.Get(name)
	if !ok {
		return 0, fmt.Errorf("queue %q is not part of the running topology", name)
	}
	st := val.(*queueState)
	st.mu.Lock()
	purged := st.ready
	st.ready = 0
	st.mu.Unlock()
	return purged, nil
}

// Publish routes count copies of a message through the topology and returns
// how many queue deliveries were enqueued. Messages the exchange cannot route
// fall through to its alternate exchange when one is set.
func (e *Engine) Publish(exchange, routingKey string, headers map[string]interface{}, count int) (int64, error) {
	if count <= 0 {
		count = 1
	}

	e.cfgMu.RLock()
	cfg := e.cfg
	e.cfgMu.RUnlock()

	if cfg.FindExchange(exchange) == nil {
		return 0, fmt.Errorf("exchange %q is not part of the running topology", exchange)
	}

	targets := resolveTargets(cfg, exchange, routingKey, headers, map[string]bool{})

	var enqueued int64
	for name := range targets {
		val, ok := e.queues.Get(name)
		if !ok {
			continue
		}
		st := val.(*queueState)
		st.mu.Lock()
		room := int64(count)
		if st.maxLength > 0 {
			if free := st.maxLength - st.ready - st.unacked; free < room {
				room = free
			}
		}
		if room > 0 {
			st.ready += room
			enqueued += room
		}
		st.mu.Unlock()
	}

	metrics.SimulatedMessagesTotal.WithLabelValues(e.designID).Add(float64(count))
	e.logger.Debug("simulated publish routed", "design_id", e.designID, "exchange", exchange, "routing_key", routingKey, "queues", len(targets), "enqueued", enqueued)
	return enqueued, nil
}

// resolveTargets collects the queues a message reaches, following alternate
// exchanges for unroutable messages. visited guards against config races;
// validation refuses alternate-exchange cycles at mutation time.
func resolveTargets(cfg *topology.Config, exchange, routingKey string, headers map[string]interface{}, visited map[string]bool) map[string]bool {
	targets := map[string]bool{}
	if visited[exchange] {
		return targets
	}
	visited[exchange] = true

	ex := cfg.FindExchange(exchange)
	if ex == nil {
		return targets
	}

	for _, b := range cfg.Bindings {
		if b.Source != exchange {
			continue
		}
		if matchBinding(ex.Kind, b, routingKey, headers) {
			targets[b.Destination] = true
		}
	}

	if len(targets) == 0 && ex.AlternateExchange != "" {
		return resolveTargets(cfg, ex.AlternateExchange, routingKey, headers, visited)
	}
	return targets
}

// Tick advances the simulated clock by one step. Consumers first acknowledge
// what was already in flight, then take ready messages in flight, so a
// delivery stays unacked for one tick before it is confirmed.
func (e *Engine) Tick() {
	for item := range e.queues.IterBuffered() {
		st := item.Val.(*queueState)
		st.mu.Lock()
		if st.consumers > 0 {
			ack := int64(st.consumers * acksPerConsumer)
			if ack > st.unacked {
				ack = st.unacked
			}
			st.unacked -= ack

			deliver := int64(st.consumers * deliveriesPerConsumer)
			if deliver > st.ready {
				deliver = st.ready
			}
			st.ready -= deliver
			st.unacked += deliver
		}
		st.mu.Unlock()
	}
}

// AllQueueMetrics returns a complete snapshot of every queue's counters. The
// map is freshly built on every call and safe to hand out.
func (e *Engine) AllQueueMetrics() map[string]QueueMetrics {
	out := make(map[string]QueueMetrics, e.queues.Count())
	for item := range e.queues.IterBuffered() {
		out[item.Key] = item.Val.(*queueState).snapshot()
	}
	return out
}

// Reset zeroes all counters but keeps topology and consumer counts.
func (e *Engine) Reset() {
	for item := range e.queues.IterBuffered() {
		st := item.Val.(*queueState)
		st.mu.Lock()
		st.ready = 0
		st.unacked = 0
		st.mu.Unlock()
	}
	e.logger.Info("emulation engine reset", "design_id", e.designID)
}

// Start begins ticking the simulation at the given interval. Starting a
// running engine is a no-op.
func (e *Engine) Start(interval time.Duration) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		e.logger.Warn("emulation engine already running, skipping start", "design_id", e.designID)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	e.cancel = cancel
	e.stopped = stopped
	metrics.ActiveSimulations.Inc()

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Tick()
			}
		}
	}()
	e.logger.Info("emulation engine started", "design_id", e.designID, "tick_interval", interval)
}

// Stop halts the tick loop and waits for it to exit. Stopping a stopped
// engine is a no-op.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.stopped
	e.cancel = nil
	e.stopped = nil
	metrics.ActiveSimulations.Dec()
	e.logger.Info("emulation engine stopped", "design_id", e.designID)
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}
