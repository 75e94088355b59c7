package scripting

import (
	"fmt"
	"log/slog"
)

// Service manages the execution of different scripting engines.
type Service struct {
	gojaRunner     *GojaRunner
	starlarkRunner *StarlarkRunner
	logger         *slog.Logger
}

// NewService creates a new scripting service.
func NewService(logger *slog.Logger, httpClient *HTTPClient) *Service {
	return &Service{
		gojaRunner:     NewGojaRunner(logger, httpClient),
		starlarkRunner: NewStarlarkRunner(logger, httpClient),
		logger:         logger,
	}
}

// Execute runs a generator script using the specified engine.
func (s *Service) Execute(engine string, script string) ([]TrafficEvent, error) {
	switch engine {
	case "javascript":
		return s.gojaRunner.Execute(script)
	case "starlark":
		return s.starlarkRunner.Execute(script)
	default:
		return nil, fmt.Errorf("unsupported scripting engine: %s", engine)
	}
}
