package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfig() *Config {
	return &Config{
		Exchanges: []Exchange{
			{Name: "orders", Kind: KindTopic, Durable: true},
			{Name: "unrouted", Kind: KindFanout},
		},
		Queues: []Queue{
			{Name: "orders.eu", Durable: true, MaxLength: 1000},
			{Name: "orders.us", Durable: true},
		},
		Bindings: []Binding{
			{ID: "b1", Source: "orders", Destination: "orders.eu", RoutingKey: "orders.eu.#"},
			{ID: "b2", Source: "orders", Destination: "orders.us", RoutingKey: "orders.us.#"},
		},
		Policies: []Policy{
			{Name: "limit", Pattern: "^orders\\.", ApplyTo: ApplyToQueues, Priority: 1,
				Definition: map[string]interface{}{"max-length": 500}},
		},
	}
}

func TestDefinitionsRoundTrip(t *testing.T) {
	doc := ExportDefinitions("checkout", sampleConfig())

	for _, format := range []string{"json", "yaml"} {
		data, err := doc.Marshal(format)
		require.NoError(t, err, format)

		parsed, err := ParseDefinitions(data, format)
		require.NoError(t, err, format)

		assert.Equal(t, "checkout", parsed.Design)
		assert.Equal(t, doc.Exchanges, parsed.Exchanges, format)
		assert.Equal(t, doc.Queues, parsed.Queues, format)
		assert.Equal(t, doc.Bindings, parsed.Bindings, format)
		require.Len(t, parsed.Policies, 1, format)
		assert.Equal(t, "limit", parsed.Policies[0].Name)
		assert.NoError(t, parsed.Validate(), format)
	}
}

func TestDefinitionsMarshalUnknownFormat(t *testing.T) {
	doc := ExportDefinitions("checkout", sampleConfig())
	_, err := doc.Marshal("toml")
	assert.Error(t, err)

	_, err = ParseDefinitions([]byte("{}"), "toml")
	assert.Error(t, err)
}

func TestDefinitionsValidate(t *testing.T) {
	t.Run("binding to missing queue", func(t *testing.T) {
		doc := ExportDefinitions("d", sampleConfig())
		doc.Bindings = append(doc.Bindings, Binding{ID: "b3", Source: "orders", Destination: "nowhere"})
		err := doc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `Queue "nowhere" does not exist`)
	})

	t.Run("unknown exchange kind", func(t *testing.T) {
		doc := ExportDefinitions("d", sampleConfig())
		doc.Exchanges = append(doc.Exchanges, Exchange{Name: "weird", Kind: "quantum"})
		assert.ErrorIs(t, doc.Validate(), ErrUnknownKind)
	})

	t.Run("duplicate queue", func(t *testing.T) {
		doc := ExportDefinitions("d", sampleConfig())
		doc.Queues = append(doc.Queues, Queue{Name: "orders.eu"})
		assert.ErrorIs(t, doc.Validate(), ErrDuplicateName)
	})

	t.Run("durable exclusive queue rejected", func(t *testing.T) {
		doc := ExportDefinitions("d", sampleConfig())
		doc.Queues = append(doc.Queues, Queue{Name: "broken", Durable: true, Exclusive: true})
		err := doc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("alternate exchange cycle rejected", func(t *testing.T) {
		doc := ExportDefinitions("d", &Config{Exchanges: []Exchange{
			{Name: "a", Kind: KindTopic, AlternateExchange: "b"},
			{Name: "b", Kind: KindTopic, AlternateExchange: "a"},
		}})
		assert.ErrorIs(t, doc.Validate(), ErrAlternateCycle)
	})

	t.Run("headers binding without x-match rejected", func(t *testing.T) {
		doc := ExportDefinitions("d", &Config{
			Exchanges: []Exchange{{Name: "meta", Kind: KindHeaders}},
			Queues:    []Queue{{Name: "sink"}},
			Bindings:  []Binding{{ID: "b1", Source: "meta", Destination: "sink"}},
		})
		err := doc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x-match")
	})
}
