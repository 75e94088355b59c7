package topology

// Exchange kinds supported by the designer. These mirror the AMQP 0-9-1
// built-in exchange types.
const (
	KindDirect  = "direct"
	KindTopic   = "topic"
	KindFanout  = "fanout"
	KindHeaders = "headers"
)

// Valid values for the "x-match" binding argument on headers exchanges.
const (
	XMatchAll = "all"
	XMatchAny = "any"
)

// Policy targets.
const (
	ApplyToQueues    = "queues"
	ApplyToExchanges = "exchanges"
	ApplyToAll       = "all"
)

// Exchange is a message routing point within a design.
type Exchange struct {
	Name              string                 `json:"name" yaml:"name"`
	Kind              string                 `json:"kind" yaml:"kind"`
	Durable           bool                   `json:"durable" yaml:"durable"`
	AutoDelete        bool                   `json:"auto_delete" yaml:"auto_delete"`
	Internal          bool                   `json:"internal" yaml:"internal"`
	AlternateExchange string                 `json:"alternate_exchange,omitempty" yaml:"alternate_exchange,omitempty"`
	Args              map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Queue is a message buffer within a design. A queue is never both durable
// and exclusive; flag updates go through ApplyQueueFlag which keeps the two
// mutually exclusive.
type Queue struct {
	Name       string                 `json:"name" yaml:"name"`
	Durable    bool                   `json:"durable" yaml:"durable"`
	Exclusive  bool                   `json:"exclusive" yaml:"exclusive"`
	AutoDelete bool                   `json:"auto_delete" yaml:"auto_delete"`
	MaxLength  int64                  `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Binding connects a source exchange to a destination queue. For topic
// exchanges RoutingKey is a pattern; for headers exchanges Args carries the
// "x-match" mode and the header values to match.
type Binding struct {
	ID          string                 `json:"id" yaml:"id"`
	Source      string                 `json:"source" yaml:"source"`
	Destination string                 `json:"destination" yaml:"destination"`
	RoutingKey  string                 `json:"routing_key" yaml:"routing_key"`
	Args        map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Policy is a named rule applied to queues and/or exchanges whose names match
// Pattern. The definition payload is free-form, as in the broker it mimics.
type Policy struct {
	Name       string                 `json:"name" yaml:"name"`
	Pattern    string                 `json:"pattern" yaml:"pattern"`
	ApplyTo    string                 `json:"apply_to" yaml:"apply_to"`
	Priority   int                    `json:"priority" yaml:"priority"`
	Definition map[string]interface{} `json:"definition,omitempty" yaml:"definition,omitempty"`
}

// Config is one design's complete topology. A Config value handed out by the
// designer is a snapshot: mutations never modify it in place, they produce a
// new Config via Clone.
type Config struct {
	Exchanges []Exchange `json:"exchanges" yaml:"exchanges"`
	Queues    []Queue    `json:"queues" yaml:"queues"`
	Bindings  []Binding  `json:"bindings" yaml:"bindings"`
	Policies  []Policy   `json:"policies" yaml:"policies"`
}

// Clone returns a deep copy of the config. Argument and definition maps are
// copied one level deep, which covers everything the designer stores in them.
func (c *Config) Clone() *Config {
	out := &Config{
		Exchanges: make([]Exchange, len(c.Exchanges)),
		Queues:    make([]Queue, len(c.Queues)),
		Bindings:  make([]Binding, len(c.Bindings)),
		Policies:  make([]Policy, len(c.Policies)),
	}
	for i, ex := range c.Exchanges {
		ex.Args = cloneArgs(ex.Args)
		out.Exchanges[i] = ex
	}
	for i, q := range c.Queues {
		q.Args = cloneArgs(q.Args)
		out.Queues[i] = q
	}
	for i, b := range c.Bindings {
		b.Args = cloneArgs(b.Args)
		out.Bindings[i] = b
	}
	for i, p := range c.Policies {
		p.Definition = cloneArgs(p.Definition)
		out.Policies[i] = p
	}
	return out
}

func cloneArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// FindExchange returns the exchange with the given name, or nil.
func (c *Config) FindExchange(name string) *Exchange {
	for i := range c.Exchanges {
		if c.Exchanges[i].Name == name {
			return &c.Exchanges[i]
		}
	}
	return nil
}

// FindQueue returns the queue with the given name, or nil.
func (c *Config) FindQueue(name string) *Queue {
	for i := range c.Queues {
		if c.Queues[i].Name == name {
			return &c.Queues[i]
		}
	}
	return nil
}

// FindBinding returns the binding with the given ID, or nil.
func (c *Config) FindBinding(id string) *Binding {
	for i := range c.Bindings {
		if c.Bindings[i].ID == id {
			return &c.Bindings[i]
		}
	}
	return nil
}

// FindPolicy returns the policy with the given name, or nil.
func (c *Config) FindPolicy(name string) *Policy {
	for i := range c.Policies {
		if c.Policies[i].Name == name {
			return &c.Policies[i]
		}
	}
	return nil
}

// BindingsFor returns the bindings whose source is the given exchange.
func (c *Config) BindingsFor(exchange string) []Binding {
	var out []Binding
	for _, b := range c.Bindings {
		if b.Source == exchange {
			out = append(out, b)
		}
	}
	return out
}
