package generator

import (
	"fmt"
	"log/slog"
	"sync"

	"mq-designer/designer"
	"mq-designer/metrics"
	"mq-designer/scripting"
	"mq-designer/storage"

	"github.com/robfig/cron/v3"
)

// Service is responsible for running traffic generators.
type Service struct {
	store     *storage.Store
	scripting *scripting.Service
	designer  *designer.Service
	logger    *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewService creates a new generator service.
func NewService(store *storage.Store, scriptingService *scripting.Service, designerService *designer.Service, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		scripting: scriptingService,
		designer:  designerService,
		logger:    logger,
		cron:      cron.New(),
		entries:   make(map[string]cron.EntryID),
	}
}

// RunGenerator executes a single generator job.
func (s *Service) RunGenerator(generatorID string) {
	s.logger.Info("running generator", "generator_id", generatorID)

	gen, err := s.store.GetGeneratorByID(generatorID)
	if err != nil || gen == nil {
		s.logger.Error("failed to get generator for execution", "generator_id", generatorID, "error", err)
		metrics.GeneratorRunsTotal.WithLabelValues(generatorID, "error").Inc()
		return
	}

	if !gen.Enabled {
		s.logger.Info("generator is disabled, skipping run", "generator_id", generatorID)
		return
	}

	events, err := s.scripting.Execute(gen.Engine, gen.Script)
	if err != nil {
		s.logger.Error("failed to execute generator script", "generator_id", generatorID, "error", err)
		metrics.GeneratorRunsTotal.WithLabelValues(generatorID, "error").Inc()
		return
	}

	if len(events) == 0 {
		s.logger.Info("generator script did not return any events", "generator_id", generatorID)
		metrics.GeneratorRunsTotal.WithLabelValues(generatorID, "ok").Inc()
		return
	}

	var published int64
	for _, ev := range events {
		enqueued, err := s.designer.InjectTraffic(gen.DesignID, ev.Exchange, ev.RoutingKey, ev.Headers, ev.Count)
		if err != nil {
			s.logger.Error("failed to inject generated traffic", "generator_id", generatorID, "exchange", ev.Exchange, "error", err)
			metrics.GeneratorRunsTotal.WithLabelValues(generatorID, "error").Inc()
			return
		}
		published += enqueued
	}

	metrics.GeneratorRunsTotal.WithLabelValues(generatorID, "ok").Inc()
	s.logger.Info("generator executed successfully", "generator_id", generatorID, "events", len(events), "enqueued", published)
}

// Schedule registers the generator with the scheduler, replacing any existing
// entry. Disabled generators only have their entry removed.
func (s *Service) Schedule(gen *storage.Generator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[gen.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, gen.ID)
	}

	if !gen.Enabled {
		return nil
	}

	generatorID := gen.ID
	entryID, err := s.cron.AddFunc(gen.Schedule, func() {
		s.RunGenerator(generatorID)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule generator: %w", err)
	}
	s.entries[gen.ID] = entryID
	return nil
}

// Unschedule removes the generator from the scheduler.
func (s *Service) Unschedule(generatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[generatorID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, generatorID)
	}
}

// Scheduled reports whether the generator currently has a scheduler entry.
func (s *Service) Scheduled(generatorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[generatorID]
	return ok
}

// ScheduleAll registers every enabled generator found in the store.
func (s *Service) ScheduleAll() error {
	generators, err := s.store.GetAllGenerators()
	if err != nil {
		return fmt.Errorf("failed to get generators for scheduling: %w", err)
	}

	scheduled := 0
	for i := range generators {
		gen := &generators[i]
		if err := s.Schedule(gen); err != nil {
			s.logger.Error("failed to add generator to scheduler", "generator_id", gen.ID, "generator_name", gen.Name, "error", err)
			continue
		}
		if gen.Enabled {
			scheduled++
		}
	}

	s.logger.Info("generators scheduled", "count", scheduled)
	return nil
}

// Start launches the scheduler.
func (s *Service) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for in-flight jobs to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}
