package scripting

import (
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

// GojaRunner implements the Runner interface for JavaScript scripts using Goja.
type GojaRunner struct {
	logger     *slog.Logger
	httpClient *HTTPClient // Injected HTTP client
}

// NewGojaRunner creates a new GojaRunner instance.
func NewGojaRunner(logger *slog.Logger, httpClient *HTTPClient) *GojaRunner {
	return &GojaRunner{
		logger:     logger,
		httpClient: httpClient,
	}
}

// Execute runs the JavaScript script and collects its traffic events.
func (r *GojaRunner) Execute(script string) ([]TrafficEvent, error) {
	vm := goja.New()

	vm.Set("log", NewLogger(r.logger))
	vm.Set("http", r.httpClient)

	program, err := goja.Compile("script", script, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile JavaScript script: %w", err)
	}
	_, err = vm.RunProgram(program)
	if err != nil {
		return nil, fmt.Errorf("failed to run JavaScript script: %w", err)
	}

	generateFunc, ok := goja.AssertFunction(vm.Get("generate"))
	if !ok {
		return nil, fmt.Errorf("script must define a 'generate' function")
	}

	result, err := generateFunc(goja.Undefined())
	if err != nil {
		return nil, fmt.Errorf("failed to execute generate function: %w", err)
	}

	// A script may return null to skip this run
	if goja.IsNull(result) || goja.IsUndefined(result) {
		return nil, nil
	}

	var rawEvents []interface{}
	if err := vm.ExportTo(result, &rawEvents); err != nil {
		return nil, fmt.Errorf("failed to export generate result into a list: %w", err)
	}

	return eventsFromValues(rawEvents)
}
