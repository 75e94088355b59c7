package topology

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigFastest

// Definitions is the export document for one design, shaped after the broker
// definitions files operators already know. The same document is what the
// snapshot table stores and what the import endpoint accepts.
type Definitions struct {
	Design     string     `json:"design" yaml:"design"`
	ExportedAt time.Time  `json:"exported_at" yaml:"exported_at"`
	Exchanges  []Exchange `json:"exchanges" yaml:"exchanges"`
	Queues     []Queue    `json:"queues" yaml:"queues"`
	Bindings   []Binding  `json:"bindings" yaml:"bindings"`
	Policies   []Policy   `json:"policies" yaml:"policies"`
}

// ExportDefinitions builds the export document for a design snapshot.
func ExportDefinitions(design string, cfg *Config) *Definitions {
	c := cfg.Clone()
	return &Definitions{
		Design:     design,
		ExportedAt: time.Now().UTC(),
		Exchanges:  c.Exchanges,
		Queues:     c.Queues,
		Bindings:   c.Bindings,
		Policies:   c.Policies,
	}
}

// Config converts the document back into a topology snapshot.
func (d *Definitions) Config() *Config {
	cfg := &Config{
		Exchanges: d.Exchanges,
		Queues:    d.Queues,
		Bindings:  d.Bindings,
		Policies:  d.Policies,
	}
	return cfg.Clone()
}

// Marshal serializes the document as "json" or "yaml".
func (d *Definitions) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definitions to JSON: %w", err)
		}
		return data, nil
	case "yaml", "yml":
		data, err := yaml.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definitions to YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported definitions format: %s", format)
	}
}

// ParseDefinitions deserializes a document in the given format.
func ParseDefinitions(data []byte, format string) (*Definitions, error) {
	d := &Definitions{}
	switch strings.ToLower(format) {
	case "", "json":
		if err := json.Unmarshal(data, d); err != nil {
			return nil, fmt.Errorf("failed to parse definitions JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, d); err != nil {
			return nil, fmt.Errorf("failed to parse definitions YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported definitions format: %s", format)
	}
	return d, nil
}

// Validate checks the whole document before it replaces a design. The checks
// are the same ones individual mutations go through, so an accepted import
// can never contain a topology the designer would have refused to build
// piece by piece. Advisory routing-key warnings do not fail the import.
func (d *Definitions) Validate() error {
	cfg := d.Config()

	seenExchanges := make(map[string]bool, len(cfg.Exchanges))
	for _, ex := range cfg.Exchanges {
		if seenExchanges[ex.Name] {
			return fmt.Errorf("%w: exchange %q", ErrDuplicateName, ex.Name)
		}
		seenExchanges[ex.Name] = true
		if err := ValidateExchange(ex, cfg, ex.Name); err != nil {
			return fmt.Errorf("exchange %q: %w", ex.Name, err)
		}
	}

	seenQueues := make(map[string]bool, len(cfg.Queues))
	for _, q := range cfg.Queues {
		if seenQueues[q.Name] {
			return fmt.Errorf("%w: queue %q", ErrDuplicateName, q.Name)
		}
		seenQueues[q.Name] = true
		if err := ValidateQueue(q, cfg, q.Name); err != nil {
			return fmt.Errorf("queue %q: %w", q.Name, err)
		}
		if q.Durable && q.Exclusive {
			return fmt.Errorf("queue %q: durable and exclusive are mutually exclusive", q.Name)
		}
	}

	seenBindings := make(map[string]bool, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		if b.ID != "" && seenBindings[b.ID] {
			return fmt.Errorf("%w: binding %q", ErrDuplicateName, b.ID)
		}
		seenBindings[b.ID] = true
		check := CheckBinding(b, cfg.Exchanges, cfg.Queues)
		if !check.Valid {
			return fmt.Errorf("binding %s -> %s: %s", b.Source, b.Destination, check.Error)
		}
	}

	seenPolicies := make(map[string]bool, len(cfg.Policies))
	for _, p := range cfg.Policies {
		if seenPolicies[p.Name] {
			return fmt.Errorf("%w: policy %q", ErrDuplicateName, p.Name)
		}
		seenPolicies[p.Name] = true
		if err := ValidatePolicy(p, cfg, p.Name); err != nil {
			return fmt.Errorf("policy %q: %w", p.Name, err)
		}
	}

	return nil
}
