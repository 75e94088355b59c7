package designer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mq-designer/config"
	"mq-designer/emulation"
	"mq-designer/metrics"
	"mq-designer/storage"
	"mq-designer/topology"
)

// Service is the gateway for every topology mutation. A change goes through
// validation, is persisted, propagated to the design's emulation engine and
// finally reported to the notifier. Reads work on copy-on-write snapshots, so
// a half-applied change is never observable.
type Service struct {
	store    *storage.Store
	notifier Notifier
	logger   *slog.Logger

	strict       bool
	pollInterval time.Duration
	tickInterval time.Duration
	snapshotKeep int

	mu      sync.RWMutex
	designs map[string]*designState
}

type designState struct {
	mu     sync.RWMutex
	cfg    *topology.Config
	engine *emulation.Engine

	cancelPoll func()
	pollDone   chan struct{}

	metricsMu sync.RWMutex
	metrics   map[string]emulation.QueueMetrics
}

// BindingResult pairs a stored binding with the validation outcome that
// accompanied it.
type BindingResult struct {
	Binding topology.Binding      `json:"binding"`
	Check   topology.BindingCheck `json:"check"`
}

// Overview is the condensed runtime view of one design.
type Overview struct {
	DesignID  string                 `json:"design_id"`
	Name      string                 `json:"name"`
	Exchanges int                    `json:"exchanges"`
	Queues    int                    `json:"queues"`
	Bindings  int                    `json:"bindings"`
	Policies  int                    `json:"policies"`
	Running   bool                   `json:"running"`
	Totals    emulation.QueueMetrics `json:"totals"`
}

// NewService создает сервис дизайнера с настройками из конфигурации.
func NewService(cfg *config.Config, store *storage.Store, notifier Notifier, logger *slog.Logger) *Service {
	poll := time.Duration(cfg.Simulation.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	tick := time.Duration(cfg.Simulation.TickIntervalMS) * time.Millisecond
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	keep := cfg.Snapshots.Keep
	if keep <= 0 {
		keep = 20
	}

	return &Service{
		store:        store,
		notifier:     notifier,
		logger:       logger,
		strict:       cfg.Validation.Strict,
		pollInterval: poll,
		tickInterval: tick,
		snapshotKeep: keep,
		designs:      make(map[string]*designState),
	}
}

// LoadDesign brings a stored design into memory: its topology, a fresh
// emulation engine and the metrics poller. Loading an already loaded design
// is a no-op.
func (s *Service) LoadDesign(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.designs[id]; ok {
		return nil
	}

	design, err := s.store.GetDesignByID(id)
	if err != nil {
		return err
	}
	if design == nil {
		return fmt.Errorf("design %q not found", id)
	}

	cfg, err := s.store.LoadTopology(id)
	if err != nil {
		return err
	}

	engine := emulation.NewEngine(id, s.logger)
	engine.Initialize(cfg)

	st := &designState{
		cfg:     cfg,
		engine:  engine,
		metrics: make(map[string]emulation.QueueMetrics),
	}
	s.startPoller(id, st)
	s.designs[id] = st

	s.logger.Info("design loaded", "design_id", id, "name", design.Name,
		"exchanges", len(cfg.Exchanges), "queues", len(cfg.Queues), "bindings", len(cfg.Bindings))
	return nil
}

// UnloadDesign stops the design's poller and engine and drops it from memory.
func (s *Service) UnloadDesign(id string) {
	s.mu.Lock()
	st, ok := s.designs[id]
	if ok {
		delete(s.designs, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	st.cancelPoll()
	<-st.pollDone
	st.engine.Stop()
	s.logger.Info("design unloaded", "design_id", id)
}

// Close unloads every design.
func (s *Service) Close() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.designs))
	for id := range s.designs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.UnloadDesign(id)
	}
}

func (s *Service) state(designID string) (*designState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.designs[designID]
	if !ok {
		return nil, fmt.Errorf("design %q is not loaded", designID)
	}
	return st, nil
}

// commit publishes an already persisted config: the snapshot pointer is
// swapped, the engine follows, the mutation is counted and announced.
func (s *Service) commit(designID string, st *designState, next *topology.Config, entity, action, message string) {
	st.cfg = next
	st.engine.ApplyConfig(next)
	if err := s.store.TouchDesign(designID); err != nil {
		s.logger.Warn("failed to touch design", "design_id", designID, "error", err)
	}
	metrics.MutationsTotal.WithLabelValues(entity, action).Inc()
	s.notifier.Success(designID, message)
}

func (s *Service) reject(designID, subject string, err error) error {
	metrics.ValidationsTotal.WithLabelValues(subject, "invalid").Inc()
	s.notifier.Error(designID, err.Error())
	return err
}

// --- Designs ---

// CreateDesign creates an empty design and loads it.
func (s *Service) CreateDesign(name, description string) (*storage.Design, error) {
	if name == "" {
		return nil, fmt.Errorf("design name must not be empty")
	}
	existing, err := s.store.GetDesignByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("design %q already exists", name)
	}

	design := &storage.Design{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	if err := s.store.CreateDesign(design); err != nil {
		return nil, err
	}
	if err := s.LoadDesign(design.ID); err != nil {
		return nil, err
	}

	metrics.MutationsTotal.WithLabelValues("design", "create").Inc()
	s.notifier.Success(design.ID, fmt.Sprintf("design %q created", name))
	return design, nil
}

// Design returns a stored design, or nil when it does not exist.
func (s *Service) Design(id string) (*storage.Design, error) {
	return s.store.GetDesignByID(id)
}

// Designs returns all designs with their topology entity counts.
func (s *Service) Designs() ([]storage.DesignInfo, error) {
	return s.store.GetAllDesignInfos()
}

// UpdateDesign renames a design or changes its description.
func (s *Service) UpdateDesign(id, name, description string) (*storage.Design, error) {
	design, err := s.store.GetDesignByID(id)
	if err != nil {
		return nil, err
	}
	if design == nil {
		return nil, fmt.Errorf("design %q not found", id)
	}
	if name == "" {
		return nil, fmt.Errorf("design name must not be empty")
	}

	design.Name = name
	design.Description = description
	if err := s.store.UpdateDesign(design); err != nil {
		return nil, err
	}
	metrics.MutationsTotal.WithLabelValues("design", "update").Inc()
	return design, nil
}

// DeleteDesign unloads a design and removes it with everything it owns.
func (s *Service) DeleteDesign(id string) error {
	s.UnloadDesign(id)
	if err := s.store.DeleteDesign(id); err != nil {
		return err
	}
	metrics.MutationsTotal.WithLabelValues("design", "delete").Inc()
	s.notifier.Success(id, "design deleted")
	return nil
}

// Snapshot returns a deep copy of the design's current topology.
func (s *Service) Snapshot(designID string) (*topology.Config, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cfg.Clone(), nil
}

// --- Exchanges ---

// CreateExchange validates and adds an exchange to a design.
func (s *Service) CreateExchange(designID string, ex topology.Exchange) (*topology.Exchange, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if err := topology.ValidateExchange(ex, next, ""); err != nil {
		return nil, s.reject(designID, "exchange", err)
	}
	metrics.ValidationsTotal.WithLabelValues("exchange", "valid").Inc()

	next.Exchanges = append(next.Exchanges, ex)
	if err := s.store.CreateExchange(designID, &ex); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "exchange", "create", fmt.Sprintf("exchange %q created", ex.Name))
	return &ex, nil
}

// UpdateExchange replaces the exchange named current. A rename keeps bindings
// and alternate-exchange references pointing at it.
func (s *Service) UpdateExchange(designID, current string, ex topology.Exchange) (*topology.Exchange, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	target := next.FindExchange(current)
	if target == nil {
		return nil, fmt.Errorf("exchange %q not found", current)
	}
	if err := topology.ValidateExchange(ex, next, current); err != nil {
		return nil, s.reject(designID, "exchange", err)
	}
	metrics.ValidationsTotal.WithLabelValues("exchange", "valid").Inc()

	*target = ex
	if current != ex.Name {
		for i := range next.Bindings {
			if next.Bindings[i].Source == current {
				next.Bindings[i].Source = ex.Name
			}
		}
		for i := range next.Exchanges {
			if next.Exchanges[i].AlternateExchange == current {
				next.Exchanges[i].AlternateExchange = ex.Name
			}
		}
	}

	if err := s.store.UpdateExchange(designID, current, &ex); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "exchange", "update", fmt.Sprintf("exchange %q updated", ex.Name))
	return &ex, nil
}

// DeleteExchange removes an exchange and cascades its bindings. An exchange
// still referenced as another's alternate exchange cannot be removed.
func (s *Service) DeleteExchange(designID, name string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if next.FindExchange(name) == nil {
		return fmt.Errorf("exchange %q not found", name)
	}
	for i := range next.Exchanges {
		if next.Exchanges[i].Name != name && next.Exchanges[i].AlternateExchange == name {
			return s.reject(designID, "exchange",
				fmt.Errorf("exchange %q is the alternate exchange of %q", name, next.Exchanges[i].Name))
		}
	}

	kept := next.Exchanges[:0]
	for _, ex := range next.Exchanges {
		if ex.Name != name {
			kept = append(kept, ex)
		}
	}
	next.Exchanges = kept

	keptBindings := next.Bindings[:0]
	for _, b := range next.Bindings {
		if b.Source != name {
			keptBindings = append(keptBindings, b)
		}
	}
	next.Bindings = keptBindings

	if err := s.store.DeleteExchange(designID, name); err != nil {
		s.notifier.Error(designID, err.Error())
		return err
	}

	s.commit(designID, st, next, "exchange", "delete", fmt.Sprintf("exchange %q deleted", name))
	return nil
}

// --- Queues ---

// CreateQueue validates and adds a queue to a design.
func (s *Service) CreateQueue(designID string, q topology.Queue) (*topology.Queue, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if err := topology.ValidateQueue(q, next, ""); err != nil {
		return nil, s.reject(designID, "queue", err)
	}
	if q.Durable && q.Exclusive {
		return nil, s.reject(designID, "queue", fmt.Errorf("durable and exclusive are mutually exclusive"))
	}
	metrics.ValidationsTotal.WithLabelValues("queue", "valid").Inc()

	next.Queues = append(next.Queues, q)
	if err := s.store.CreateQueue(designID, &q); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "queue", "create", fmt.Sprintf("queue %q created", q.Name))
	return &q, nil
}

// UpdateQueue replaces the queue named current. A rename keeps bindings
// pointing at it.
func (s *Service) UpdateQueue(designID, current string, q topology.Queue) (*topology.Queue, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	target := next.FindQueue(current)
	if target == nil {
		return nil, fmt.Errorf("queue %q not found", current)
	}
	if err := topology.ValidateQueue(q, next, current); err != nil {
		return nil, s.reject(designID, "queue", err)
	}
	if q.Durable && q.Exclusive {
		return nil, s.reject(designID, "queue", fmt.Errorf("durable and exclusive are mutually exclusive"))
	}
	metrics.ValidationsTotal.WithLabelValues("queue", "valid").Inc()

	*target = q
	if current != q.Name {
		for i := range next.Bindings {
			if next.Bindings[i].Destination == current {
				next.Bindings[i].Destination = q.Name
			}
		}
	}

	if err := s.store.UpdateQueue(designID, current, &q); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "queue", "update", fmt.Sprintf("queue %q updated", q.Name))
	return &q, nil
}

// SetQueueFlag toggles one boolean property of a queue. Turning on durable
// turns off exclusive and vice versa, so the stored pair can never conflict.
func (s *Service) SetQueueFlag(designID, name, field string, value bool) (*topology.Queue, error) {
	switch field {
	case "durable", "exclusive", "auto_delete":
	default:
		return nil, fmt.Errorf("unknown queue flag %q", field)
	}

	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	target := next.FindQueue(name)
	if target == nil {
		return nil, fmt.Errorf("queue %q not found", name)
	}

	*target = topology.ApplyQueueFlag(*target, field, value)
	if err := s.store.UpdateQueue(designID, name, target); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	updated := *target
	s.commit(designID, st, next, "queue", "flag", fmt.Sprintf("queue %q flag %s set to %t", name, field, value))
	return &updated, nil
}

// DeleteQueue removes a queue and cascades its bindings.
func (s *Service) DeleteQueue(designID, name string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if next.FindQueue(name) == nil {
		return fmt.Errorf("queue %q not found", name)
	}

	kept := next.Queues[:0]
	for _, q := range next.Queues {
		if q.Name != name {
			kept = append(kept, q)
		}
	}
	next.Queues = kept

	keptBindings := next.Bindings[:0]
	for _, b := range next.Bindings {
		if b.Destination != name {
			keptBindings = append(keptBindings, b)
		}
	}
	next.Bindings = keptBindings

	if err := s.store.DeleteQueue(designID, name); err != nil {
		s.notifier.Error(designID, err.Error())
		return err
	}

	s.commit(designID, st, next, "queue", "delete", fmt.Sprintf("queue %q deleted", name))
	return nil
}

// PurgeQueue drops the simulated backlog of a queue.
func (s *Service) PurgeQueue(designID, name string) (int64, error) {
	st, err := s.state(designID)
	if err != nil {
		return 0, err
	}
	purged, err := st.engine.PurgeQueue(name)
	if err != nil {
		return 0, err
	}
	metrics.MutationsTotal.WithLabelValues("queue", "purge").Inc()
	s.notifier.Success(designID, fmt.Sprintf("queue %q purged (%d messages)", name, purged))
	return purged, nil
}

// --- Bindings ---

// CreateBinding validates and adds a binding. The endpoint and headers checks
// always block; a topic routing key that fails its advisory check blocks only
// in strict mode. The returned result carries the advisory outcome either way.
func (s *Service) CreateBinding(designID string, b topology.Binding, strictOverride *bool) (*BindingResult, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	next := st.cfg.Clone()
	check := topology.CheckBinding(b, next.Exchanges, next.Queues)
	result := &BindingResult{Binding: b, Check: check}
	if !check.Valid {
		return result, s.reject(designID, "binding", fmt.Errorf("invalid binding: %s", check.Error))
	}

	strict := s.strict
	if strictOverride != nil {
		strict = *strictOverride
	}
	if strict && check.RoutingKey != nil && !check.RoutingKey.Valid {
		return result, s.reject(designID, "binding",
			fmt.Errorf("routing key %q rejected: %s", b.RoutingKey, check.RoutingKey.Warning))
	}
	metrics.ValidationsTotal.WithLabelValues("binding", "valid").Inc()

	next.Bindings = append(next.Bindings, b)
	if err := s.store.CreateBinding(designID, &b); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "binding", "create",
		fmt.Sprintf("binding %s -> %s created", b.Source, b.Destination))
	return result, nil
}

// DeleteBinding removes a binding by its ID.
func (s *Service) DeleteBinding(designID, id string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if next.FindBinding(id) == nil {
		return fmt.Errorf("binding %q not found", id)
	}

	kept := next.Bindings[:0]
	for _, b := range next.Bindings {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	next.Bindings = kept

	if err := s.store.DeleteBinding(designID, id); err != nil {
		s.notifier.Error(designID, err.Error())
		return err
	}

	s.commit(designID, st, next, "binding", "delete", "binding deleted")
	return nil
}

// CheckBinding runs the binding validation against the current snapshot
// without changing anything.
func (s *Service) CheckBinding(designID string, b topology.Binding) (*topology.BindingCheck, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	check := topology.CheckBinding(b, st.cfg.Exchanges, st.cfg.Queues)
	st.mu.RUnlock()

	outcome := "valid"
	if !check.Valid {
		outcome = "invalid"
	}
	metrics.ValidationsTotal.WithLabelValues("binding", outcome).Inc()
	return &check, nil
}

// ValidateRoutingKey runs the advisory topic routing key check.
func (s *Service) ValidateRoutingKey(key string) topology.RoutingKeyValidationResult {
	res := topology.ValidateTopicRoutingKey(key)
	outcome := "valid"
	if !res.Valid {
		outcome = "invalid"
	}
	metrics.ValidationsTotal.WithLabelValues("routing_key", outcome).Inc()
	return res
}

// --- Policies ---

// CreatePolicy validates and adds a policy to a design.
func (s *Service) CreatePolicy(designID string, p topology.Policy) (*topology.Policy, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if err := topology.ValidatePolicy(p, next, ""); err != nil {
		return nil, s.reject(designID, "policy", err)
	}
	metrics.ValidationsTotal.WithLabelValues("policy", "valid").Inc()

	next.Policies = append(next.Policies, p)
	if err := s.store.CreatePolicy(designID, &p); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "policy", "create", fmt.Sprintf("policy %q created", p.Name))
	return &p, nil
}

// UpdatePolicy replaces the policy named current.
func (s *Service) UpdatePolicy(designID, current string, p topology.Policy) (*topology.Policy, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	target := next.FindPolicy(current)
	if target == nil {
		return nil, fmt.Errorf("policy %q not found", current)
	}
	if err := topology.ValidatePolicy(p, next, current); err != nil {
		return nil, s.reject(designID, "policy", err)
	}
	metrics.ValidationsTotal.WithLabelValues("policy", "valid").Inc()

	*target = p
	if err := s.store.UpdatePolicy(designID, current, &p); err != nil {
		s.notifier.Error(designID, err.Error())
		return nil, err
	}

	s.commit(designID, st, next, "policy", "update", fmt.Sprintf("policy %q updated", p.Name))
	return &p, nil
}

// DeletePolicy removes a policy by its name.
func (s *Service) DeletePolicy(designID, name string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cfg.Clone()
	if next.FindPolicy(name) == nil {
		return fmt.Errorf("policy %q not found", name)
	}

	kept := next.Policies[:0]
	for _, p := range next.Policies {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	next.Policies = kept

	if err := s.store.DeletePolicy(designID, name); err != nil {
		s.notifier.Error(designID, err.Error())
		return err
	}

	s.commit(designID, st, next, "policy", "delete", fmt.Sprintf("policy %q deleted", name))
	return nil
}

// --- Definitions and snapshots ---

// ExportDefinitions serializes the design's topology in the given format.
func (s *Service) ExportDefinitions(designID, format string) ([]byte, error) {
	design, err := s.store.GetDesignByID(designID)
	if err != nil {
		return nil, err
	}
	if design == nil {
		return nil, fmt.Errorf("design %q not found", designID)
	}
	cfg, err := s.Snapshot(designID)
	if err != nil {
		return nil, err
	}
	return topology.ExportDefinitions(design.Name, cfg).Marshal(format)
}

// ImportDefinitions validates a definitions document and replaces the
// design's whole topology with it.
func (s *Service) ImportDefinitions(designID string, data []byte, format string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}

	defs, err := topology.ParseDefinitions(data, format)
	if err != nil {
		return s.reject(designID, "definitions", err)
	}
	if err := defs.Validate(); err != nil {
		return s.reject(designID, "definitions", err)
	}
	metrics.ValidationsTotal.WithLabelValues("definitions", "valid").Inc()

	next := defs.Config()
	for i := range next.Bindings {
		if next.Bindings[i].ID == "" {
			next.Bindings[i].ID = uuid.New().String()
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.store.ReplaceTopology(designID, next); err != nil {
		s.notifier.Error(designID, err.Error())
		return err
	}

	s.commit(designID, st, next, "design", "import",
		fmt.Sprintf("definitions imported: %d exchanges, %d queues, %d bindings",
			len(next.Exchanges), len(next.Queues), len(next.Bindings)))
	return nil
}

// SaveSnapshot stores the current definitions document and prunes old
// snapshots past the retention limit.
func (s *Service) SaveSnapshot(designID string) (*storage.Snapshot, error) {
	doc, err := s.ExportDefinitions(designID, "json")
	if err != nil {
		return nil, err
	}

	snapshot := &storage.Snapshot{
		ID:       uuid.New().String(),
		DesignID: designID,
		Document: string(doc),
	}
	if err := s.store.CreateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if _, err := s.store.PruneSnapshots(designID, s.snapshotKeep); err != nil {
		s.logger.Warn("failed to prune snapshots", "design_id", designID, "error", err)
	}

	metrics.MutationsTotal.WithLabelValues("snapshot", "create").Inc()
	return snapshot, nil
}

// Snapshots lists the design's stored snapshots, newest first.
func (s *Service) Snapshots(designID string) ([]storage.Snapshot, error) {
	return s.store.GetSnapshotsByDesignID(designID)
}

// RestoreSnapshot replaces the design's topology with a stored snapshot.
func (s *Service) RestoreSnapshot(designID, snapshotID string) error {
	snapshot, err := s.store.GetSnapshotByID(snapshotID)
	if err != nil {
		return err
	}
	if snapshot == nil || snapshot.DesignID != designID {
		return fmt.Errorf("snapshot %q not found", snapshotID)
	}
	return s.ImportDefinitions(designID, []byte(snapshot.Document), "json")
}

// --- Simulation ---

// StartSimulation begins ticking the design's engine.
func (s *Service) StartSimulation(designID string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.engine.Start(s.tickInterval)
	return nil
}

// StopSimulation halts the design's engine.
func (s *Service) StopSimulation(designID string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.engine.Stop()
	return nil
}

// ResetSimulation zeroes all simulated counters.
func (s *Service) ResetSimulation(designID string) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	st.engine.Reset()
	return nil
}

// SimulationRunning reports whether the design's engine is ticking.
func (s *Service) SimulationRunning(designID string) (bool, error) {
	st, err := s.state(designID)
	if err != nil {
		return false, err
	}
	return st.engine.Running(), nil
}

// SetConsumers attaches simulated consumers to a queue. This is runtime
// state, not topology, so it is not persisted.
func (s *Service) SetConsumers(designID, queue string, consumers int) error {
	st, err := s.state(designID)
	if err != nil {
		return err
	}
	return st.engine.UpdateQueue(queue, consumers)
}

// InjectTraffic publishes simulated messages into the design's engine and
// returns how many queue deliveries were enqueued.
func (s *Service) InjectTraffic(designID, exchange, routingKey string, headers map[string]interface{}, count int) (int64, error) {
	st, err := s.state(designID)
	if err != nil {
		return 0, err
	}
	return st.engine.Publish(exchange, routingKey, headers, count)
}

// Metrics returns the queue metrics of the last completed poll cycle.
func (s *Service) Metrics(designID string) (map[string]emulation.QueueMetrics, error) {
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}
	st.metricsMu.RLock()
	defer st.metricsMu.RUnlock()

	out := make(map[string]emulation.QueueMetrics, len(st.metrics))
	for name, m := range st.metrics {
		out[name] = m
	}
	return out, nil
}

// OverviewFor condenses one design into entity counts and metric totals.
func (s *Service) OverviewFor(designID string) (*Overview, error) {
	design, err := s.store.GetDesignByID(designID)
	if err != nil {
		return nil, err
	}
	if design == nil {
		return nil, fmt.Errorf("design %q not found", designID)
	}
	st, err := s.state(designID)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	overview := &Overview{
		DesignID:  designID,
		Name:      design.Name,
		Exchanges: len(st.cfg.Exchanges),
		Queues:    len(st.cfg.Queues),
		Bindings:  len(st.cfg.Bindings),
		Policies:  len(st.cfg.Policies),
	}
	st.mu.RUnlock()

	overview.Running = st.engine.Running()
	st.metricsMu.RLock()
	for _, m := range st.metrics {
		overview.Totals.Messages += m.Messages
		overview.Totals.Ready += m.Ready
		overview.Totals.Unacked += m.Unacked
		overview.Totals.Consumers += m.Consumers
	}
	st.metricsMu.RUnlock()

	return overview, nil
}
