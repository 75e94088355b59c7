package scripting

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TrafficEvent is one batch of simulated messages produced by a generator
// script: publish Count messages to Exchange with RoutingKey and Headers.
type TrafficEvent struct {
	Exchange   string
	RoutingKey string
	Count      int
	Headers    map[string]interface{}
}

// Runner defines the interface for executing a generator script.
// The script must define a generate() function returning a list of traffic
// events; a nil result means the generator produced nothing this run.
type Runner interface {
	Execute(script string) ([]TrafficEvent, error)
}

// eventsFromValues turns the raw value a script returned into traffic events.
// Each element must be a map with at least an "exchange" key; "count"
// defaults to one message.
func eventsFromValues(values []interface{}) ([]TrafficEvent, error) {
	events := make([]TrafficEvent, 0, len(values))
	for i, raw := range values {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("traffic event %d is not an object, got %T", i, raw)
		}

		exchange, _ := obj["exchange"].(string)
		if exchange == "" {
			return nil, fmt.Errorf("traffic event %d is missing an exchange", i)
		}

		event := TrafficEvent{Exchange: exchange, Count: 1}
		if key, ok := obj["routing_key"].(string); ok {
			event.RoutingKey = key
		}
		if rawCount, ok := obj["count"]; ok {
			count, ok := toCount(rawCount)
			if !ok {
				return nil, fmt.Errorf("traffic event %d has a non-numeric count %v", i, rawCount)
			}
			if count > 0 {
				event.Count = count
			}
		}
		if headers, ok := obj["headers"].(map[string]interface{}); ok {
			event.Headers = headers
		}

		events = append(events, event)
	}
	return events, nil
}

func toCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Logger is a simplified logger interface for scripts
type Logger struct {
	*slog.Logger
}

func (l *Logger) Log(level string, msg string, args ...interface{}) {
	switch level {
	case "debug":
		l.Debug(msg, args...)
	case "info":
		l.Info(msg, args...)
	case "warn":
		l.Warn(msg, args...)
	case "error":
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}

// NewLogger creates a new script-friendly logger.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger}
}

// HTTPClient is a wrapper for net/http.Client to be injected into scripts.
type HTTPClient struct {
	Client *http.Client
	Logger *slog.Logger
}

type HTTPResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Error      string
}

// NewHTTPClient creates a new HTTPClient with a default timeout.
func NewHTTPClient(logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		Client: &http.Client{
			Timeout: 10 * time.Second, // Default timeout
		},
		Logger: logger,
	}
}

// Get performs an HTTP GET request.
func (c *HTTPClient) Get(url string, headers map[string]string) *HTTPResponse {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		c.Logger.Error("failed to create GET request", "error", err, "url", url)
		return &HTTPResponse{Error: err.Error()}
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.Logger.Error("failed to perform GET request", "error", err, "url", url)
		return &HTTPResponse{Error: err.Error()}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Logger.Error("failed to read response body", "error", err, "url", url)
		return &HTTPResponse{StatusCode: resp.StatusCode, Error: err.Error()}
	}

	respHeaders := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		Headers:    respHeaders,
	}
}

// Post performs an HTTP POST request.
func (c *HTTPClient) Post(url string, headers map[string]string, body string) *HTTPResponse {
	req, err := http.NewRequest("POST", url, bytes.NewBuffer([]byte(body)))
	if err != nil {
		c.Logger.Error("failed to create POST request", "error", err, "url", url)
		return &HTTPResponse{Error: err.Error()}
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if _, ok := headers["Content-Type"]; !ok {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.Logger.Error("failed to perform POST request", "error", err, "url", url)
		return &HTTPResponse{Error: err.Error()}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Logger.Error("failed to read response body", "error", err, "url", url)
		return &HTTPResponse{StatusCode: resp.StatusCode, Error: err.Error()}
	}

	respHeaders := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		Headers:    respHeaders,
	}
}
