package scripting

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkjson"
	"go.starlark.net/starlarkstruct"
)

// StarlarkRunner implements the Runner interface for Starlark scripts.
type StarlarkRunner struct {
	logger     *slog.Logger
	httpClient *HTTPClient // Injected HTTP client
}

// NewStarlarkRunner creates a new StarlarkRunner instance.
func NewStarlarkRunner(logger *slog.Logger, httpClient *HTTPClient) *StarlarkRunner {
	return &StarlarkRunner{
		logger:     logger,
		httpClient: httpClient,
	}
}

// Execute runs the Starlark script and collects its traffic events.
func (r *StarlarkRunner) Execute(script string) ([]TrafficEvent, error) {
	thread := &starlark.Thread{Name: "script_execution_thread"}

	// Inject logger
	logModule := starlarkstruct.FromStringDict(starlark.String("log"), starlark.StringDict{
		"info": starlark.NewBuiltin("log.info", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var msg string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "msg", &msg); err != nil {
				return nil, err
			}
			r.logger.Info(msg)
			return starlark.None, nil
		}),
		"warn": starlark.NewBuiltin("log.warn", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var msg string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "msg", &msg); err != nil {
				return nil, err
			}
			r.logger.Warn(msg)
			return starlark.None, nil
		}),
		"error": starlark.NewBuiltin("log.error", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var msg string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "msg", &msg); err != nil {
				return nil, err
			}
			r.logger.Error(msg)
			return starlark.None, nil
		}),
	})

	// Inject HTTP client
	httpClientModule := starlarkstruct.FromStringDict(starlark.String("http"), starlark.StringDict{
		"get": starlark.NewBuiltin("http.get", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var url string
			var headersDict *starlark.Dict
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "url", &url, "headers?", &headersDict); err != nil {
				return nil, err
			}
			headers := make(map[string]string)
			if headersDict != nil {
				for _, item := range headersDict.Items() {
					key, _ := item.Index(0).(starlark.String)
					val, _ := item.Index(1).(starlark.String)
					headers[key.GoString()] = val.GoString()
				}
			}
			resp := r.httpClient.Get(url, headers)
			return starlarkstruct.FromStringDict(starlark.String("HTTPResponse"), starlark.StringDict{
				"status_code": starlark.MakeInt(resp.StatusCode),
				"body":        starlark.String(resp.Body),
				"headers":     convertStringMapToStarlarkDict(resp.Headers),
				"error":       starlark.String(resp.Error),
			}), nil
		}),
	})

	predeclared := starlark.StringDict{
		"log":  logModule,
		"http": httpClientModule,
		"json": starlarkjson.Module,
	}

	starlarkGlobals, err := starlark.ExecFile(thread, "script", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Starlark script: %w", err)
	}

	generateFunc, found := starlarkGlobals["generate"]
	if !found {
		return nil, fmt.Errorf("script must define a 'generate' function")
	}
	callable, ok := generateFunc.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("'generate' must be a function, got %s", generateFunc.Type())
	}

	result, err := starlark.Call(thread, callable, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute generate function: %w", err)
	}
	if result == starlark.None {
		return nil, nil // Nothing to publish this run
	}

	rawResult, err := fromStarlarkValue(result)
	if err != nil {
		return nil, fmt.Errorf("failed to convert generate result: %w", err)
	}
	rawEvents, ok := rawResult.([]interface{})
	if !ok {
		return nil, fmt.Errorf("generate result must be a list, got %s", result.Type())
	}

	return eventsFromValues(rawEvents)
}

// convertStarlarkDictToMap converts a Starlark dictionary to a Go map[string]interface{}.
func convertStarlarkDictToMap(starlarkVal starlark.Value) (map[string]interface{}, error) {
	goMap := make(map[string]interface{})
	if dict, ok := starlarkVal.(*starlark.Dict); ok {
		for _, item := range dict.Items() {
			key, ok := item.Index(0).(starlark.String)
			if !ok {
				return nil, fmt.Errorf("starlark dict key must be string, got %T", item.Index(0))
			}
			val := item.Index(1)
			goVal, err := fromStarlarkValue(val)
			if err != nil {
				return nil, fmt.Errorf("failed to convert value for key %s: %w", key.GoString(), err)
			}
			goMap[key.GoString()] = goVal
		}
	} else if structVal, ok := starlarkVal.(*starlarkstruct.Struct); ok {
		for _, field := range structVal.AttrNames() {
			val, err := structVal.Attr(field)
			if err != nil {
				return nil, fmt.Errorf("failed to get field %s from Starlark struct: %w", field, err)
			}
			goVal, err := fromStarlarkValue(val)
			if err != nil {
				return nil, err
			}
			goMap[field] = goVal
		}
	} else {
		return nil, fmt.Errorf("cannot convert Starlark value of type %T to Go map", starlarkVal)
	}
	return goMap, nil
}

// fromStarlarkValue converts a Starlark value to a Go interface{}.
func fromStarlarkValue(s starlark.Value) (interface{}, error) {
	switch v := s.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return v.GoString(), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("starlark.Int too large for int64")
		}
		return i, nil
	case starlark.Float:
		return float64(v), nil
	case *starlark.Dict:
		return convertStarlarkDictToMap(v)
	case *starlark.List:
		goList := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := fromStarlarkValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			goList[i] = item
		}
		return goList, nil
	case *starlark.Tuple:
		goList := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := fromStarlarkValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			goList[i] = item
		}
		return goList, nil
	case *starlarkstruct.Struct: // Handle structs for HTTPResponse etc.
		goMap := make(map[string]interface{})
		for _, field := range v.AttrNames() {
			val, err := v.Attr(field)
			if err != nil {
				return nil, fmt.Errorf("failed to get field %s from Starlark struct: %w", field, err)
			}
			goVal, err := fromStarlarkValue(val)
			if err != nil {
				return nil, err
			}
			goMap[field] = goVal
		}
		return goMap, nil
	default:
		return nil, fmt.Errorf("unsupported Starlark type for conversion: %T", v)
	}
}

// convertStringMapToStarlarkDict converts a Go map[string]string to a Starlark dictionary.
func convertStringMapToStarlarkDict(goMap map[string]string) *starlark.Dict {
	dict := starlark.NewDict(len(goMap))
	for k, v := range goMap {
		dict.SetKey(starlark.String(k), starlark.String(v))
	}
	return dict
}
