package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTopicRoutingKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		valid   bool
		warning string
	}{
		{name: "empty key is valid", key: "", valid: true},
		{name: "plain words", key: "orders.created", valid: true},
		{name: "star in the middle", key: "orders.*.created", valid: true},
		{name: "hash alone", key: "#", valid: true},
		{name: "trailing hash", key: "orders.#", valid: true},
		{name: "star per word", key: "a.*.*.d", valid: true},
		{
			name:    "consecutive wildcards",
			key:     "orders.**.created",
			valid:   false,
			warning: "Invalid: consecutive wildcards (**) are not allowed",
		},
		{
			name:    "bare double star",
			key:     "**",
			valid:   false,
			warning: "Invalid: consecutive wildcards (**) are not allowed",
		},
		{
			name:    "leading star",
			key:     "*.orders",
			valid:   false,
			warning: "Warning: wildcard at the start may not match as expected",
		},
		{
			name:    "leading hash",
			key:     "#.orders",
			valid:   false,
			warning: "Warning: wildcard at the start may not match as expected",
		},
		{
			name:    "hash not at the end",
			key:     "orders.#.created",
			valid:   false,
			warning: "Invalid: # wildcard must be at the end of the pattern",
		},
		{
			name:    "second hash inside a word",
			key:     "orders.x#.#",
			valid:   false,
			warning: "Invalid: only one # wildcard is allowed and must be at the end",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateTopicRoutingKey(tc.key)
			assert.Equal(t, tc.valid, res.Valid)
			assert.Equal(t, tc.warning, res.Warning)
		})
	}
}

// A key with several problems must always report the first check that fails,
// so the panel shows a stable message while the user types.
func TestValidateTopicRoutingKeyCheckOrder(t *testing.T) {
	res := ValidateTopicRoutingKey("a.#.b.#")
	require.False(t, res.Valid)
	assert.Equal(t, "Invalid: # wildcard must be at the end of the pattern", res.Warning)

	// Consecutive wildcards win over everything else.
	res = ValidateTopicRoutingKey("**.#.b.#")
	require.False(t, res.Valid)
	assert.Equal(t, "Invalid: consecutive wildcards (**) are not allowed", res.Warning)

	// A leading wildcard wins over the misplaced hash behind it.
	res = ValidateTopicRoutingKey("*.#.b")
	require.False(t, res.Valid)
	assert.Equal(t, "Warning: wildcard at the start may not match as expected", res.Warning)
}

func TestValidateBinding(t *testing.T) {
	exchanges := []Exchange{{Name: "orders", Kind: KindTopic}}
	queues := []Queue{{Name: "orders.all", Durable: true}}

	res := ValidateBinding("orders", "orders.all", exchanges, queues)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Error)

	res = ValidateBinding("missing", "orders.all", exchanges, queues)
	require.False(t, res.Valid)
	assert.Equal(t, `Exchange "missing" does not exist`, res.Error)

	res = ValidateBinding("orders", "missing", exchanges, queues)
	require.False(t, res.Valid)
	assert.Equal(t, `Queue "missing" does not exist`, res.Error)
}

// When both endpoints are unknown, the exchange check runs first and its
// message is the one reported.
func TestValidateBindingExchangeCheckedFirst(t *testing.T) {
	res := ValidateBinding("ghost-exchange", "ghost-queue", nil, nil)
	require.False(t, res.Valid)
	assert.Equal(t, `Exchange "ghost-exchange" does not exist`, res.Error)
}

func TestCheckBindingTopicRoutingKey(t *testing.T) {
	exchanges := []Exchange{
		{Name: "events", Kind: KindTopic},
		{Name: "audit", Kind: KindFanout},
	}
	queues := []Queue{{Name: "sink"}}

	// Valid topic binding with a suspicious key stays storable, the routing
	// key result rides along as advisory.
	check := CheckBinding(Binding{Source: "events", Destination: "sink", RoutingKey: "a.#.b"}, exchanges, queues)
	assert.True(t, check.Valid)
	require.NotNil(t, check.RoutingKey)
	assert.False(t, check.RoutingKey.Valid)
	assert.Equal(t, "Invalid: # wildcard must be at the end of the pattern", check.RoutingKey.Warning)

	// An empty routing key on a topic exchange skips the key check entirely.
	check = CheckBinding(Binding{Source: "events", Destination: "sink"}, exchanges, queues)
	assert.True(t, check.Valid)
	assert.Nil(t, check.RoutingKey)

	// Non-topic exchanges never get a routing key result.
	check = CheckBinding(Binding{Source: "audit", Destination: "sink", RoutingKey: "a.#.b"}, exchanges, queues)
	assert.True(t, check.Valid)
	assert.Nil(t, check.RoutingKey)

	// A broken endpoint short-circuits before any key check.
	check = CheckBinding(Binding{Source: "events", Destination: "nowhere", RoutingKey: "**"}, exchanges, queues)
	require.False(t, check.Valid)
	assert.Equal(t, `Queue "nowhere" does not exist`, check.Error)
	assert.Nil(t, check.RoutingKey)
}

func TestCheckBindingHeadersExchange(t *testing.T) {
	exchanges := []Exchange{{Name: "meta", Kind: KindHeaders}}
	queues := []Queue{{Name: "sink"}}

	check := CheckBinding(Binding{Source: "meta", Destination: "sink"}, exchanges, queues)
	require.False(t, check.Valid)
	assert.Contains(t, check.Error, "x-match")

	check = CheckBinding(Binding{
		Source:      "meta",
		Destination: "sink",
		Args:        map[string]interface{}{"x-match": "sometimes"},
	}, exchanges, queues)
	assert.False(t, check.Valid)

	for _, mode := range []string{XMatchAll, XMatchAny} {
		check = CheckBinding(Binding{
			Source:      "meta",
			Destination: "sink",
			Args:        map[string]interface{}{"x-match": mode},
		}, exchanges, queues)
		assert.True(t, check.Valid, "x-match=%s", mode)
	}
}

func TestApplyQueueFlagMutualExclusion(t *testing.T) {
	q := Queue{Name: "jobs", Exclusive: true}

	q = ApplyQueueFlag(q, "durable", true)
	assert.True(t, q.Durable)
	assert.False(t, q.Exclusive, "enabling durable must drop exclusive in the same update")

	q = ApplyQueueFlag(q, "exclusive", true)
	assert.True(t, q.Exclusive)
	assert.False(t, q.Durable, "enabling exclusive must drop durable in the same update")
}

func TestApplyQueueFlagIdempotent(t *testing.T) {
	q := Queue{Name: "jobs", Exclusive: true}

	once := ApplyQueueFlag(q, "durable", true)
	twice := ApplyQueueFlag(once, "durable", true)
	assert.Equal(t, once, twice)

	// Turning a flag off never touches its counterpart.
	off := ApplyQueueFlag(once, "durable", false)
	assert.False(t, off.Durable)
	assert.False(t, off.Exclusive)

	// Unrelated flags pass through untouched.
	ad := ApplyQueueFlag(off, "auto_delete", true)
	assert.True(t, ad.AutoDelete)
	assert.False(t, ad.Durable)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("orders.v2-archive:eu/west"))
	assert.ErrorIs(t, ValidateName(""), ErrNameEmpty)
	assert.ErrorIs(t, ValidateName("has space"), ErrNameInvalid)
	assert.ErrorIs(t, ValidateName("почта"), ErrNameInvalid)

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateName(string(long)), ErrNameTooLong)
}

func TestValidateExchange(t *testing.T) {
	cfg := &Config{Exchanges: []Exchange{
		{Name: "orders", Kind: KindTopic},
		{Name: "fallback", Kind: KindFanout},
	}}

	assert.NoError(t, ValidateExchange(Exchange{Name: "events", Kind: KindDirect}, cfg, ""))
	assert.ErrorIs(t, ValidateExchange(Exchange{Name: "events", Kind: "exotic"}, cfg, ""), ErrUnknownKind)
	assert.ErrorIs(t, ValidateExchange(Exchange{Name: "orders", Kind: KindTopic}, cfg, ""), ErrDuplicateName)

	// Updating an exchange under its own name is not a duplicate.
	assert.NoError(t, ValidateExchange(Exchange{Name: "orders", Kind: KindTopic}, cfg, "orders"))
}

func TestValidateExchangeAlternate(t *testing.T) {
	cfg := &Config{Exchanges: []Exchange{
		{Name: "orders", Kind: KindTopic},
		{Name: "fallback", Kind: KindFanout},
	}}

	assert.NoError(t, ValidateExchange(Exchange{
		Name: "events", Kind: KindTopic, AlternateExchange: "fallback",
	}, cfg, ""))

	assert.ErrorIs(t, ValidateExchange(Exchange{
		Name: "events", Kind: KindTopic, AlternateExchange: "events",
	}, cfg, ""), ErrAlternateSelf)

	assert.ErrorIs(t, ValidateExchange(Exchange{
		Name: "events", Kind: KindTopic, AlternateExchange: "nowhere",
	}, cfg, ""), ErrAlternateMissing)
}

func TestValidateExchangeAlternateCycle(t *testing.T) {
	cfg := &Config{Exchanges: []Exchange{
		{Name: "a", Kind: KindTopic, AlternateExchange: "b"},
		{Name: "b", Kind: KindTopic},
	}}

	// Closing the loop b -> a while a -> b already exists.
	err := ValidateExchange(Exchange{Name: "b", Kind: KindTopic, AlternateExchange: "a"}, cfg, "b")
	assert.ErrorIs(t, err, ErrAlternateCycle)

	// A chain without a loop is fine: c -> a -> b.
	cfg.Exchanges = append(cfg.Exchanges, Exchange{Name: "c", Kind: KindTopic})
	assert.NoError(t, ValidateExchange(Exchange{Name: "c", Kind: KindTopic, AlternateExchange: "a"}, cfg, "c"))
}

func TestValidateQueue(t *testing.T) {
	cfg := &Config{Queues: []Queue{{Name: "jobs"}}}

	assert.NoError(t, ValidateQueue(Queue{Name: "mail"}, cfg, ""))
	assert.ErrorIs(t, ValidateQueue(Queue{Name: "jobs"}, cfg, ""), ErrDuplicateName)
	assert.NoError(t, ValidateQueue(Queue{Name: "jobs"}, cfg, "jobs"))
	assert.Error(t, ValidateQueue(Queue{Name: "mail", MaxLength: -1}, cfg, ""))
}

func TestValidatePolicy(t *testing.T) {
	cfg := &Config{Policies: []Policy{{Name: "ha", Pattern: ".*", ApplyTo: ApplyToQueues}}}

	assert.NoError(t, ValidatePolicy(Policy{Name: "ttl", Pattern: "^orders\\.", ApplyTo: ApplyToAll}, cfg, ""))
	assert.ErrorIs(t, ValidatePolicy(Policy{Name: "ha", Pattern: ".*", ApplyTo: ApplyToQueues}, cfg, ""), ErrDuplicateName)
	assert.ErrorIs(t, ValidatePolicy(Policy{Name: "ttl", Pattern: ".*", ApplyTo: "nothing"}, cfg, ""), ErrUnknownApplyTo)
	assert.Error(t, ValidatePolicy(Policy{Name: "ttl", Pattern: "(", ApplyTo: ApplyToQueues}, cfg, ""))
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := &Config{
		Exchanges: []Exchange{{Name: "orders", Kind: KindTopic, Args: map[string]interface{}{"k": "v"}}},
		Queues:    []Queue{{Name: "jobs"}},
		Bindings:  []Binding{{ID: "b1", Source: "orders", Destination: "jobs"}},
	}

	clone := cfg.Clone()
	clone.Exchanges[0].Name = "renamed"
	clone.Exchanges[0].Args["k"] = "changed"
	clone.Queues = append(clone.Queues, Queue{Name: "extra"})

	assert.Equal(t, "orders", cfg.Exchanges[0].Name)
	assert.Equal(t, "v", cfg.Exchanges[0].Args["k"])
	assert.Len(t, cfg.Queues, 1)
}
