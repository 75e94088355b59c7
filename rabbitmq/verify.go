package rabbitmq

import (
	"fmt"

	"mq-designer/topology"
)

// VerifyResult reports which of a design's entities are already declared on
// the live broker.
type VerifyResult struct {
	PresentExchanges []string `json:"present_exchanges"`
	MissingExchanges []string `json:"missing_exchanges"`
	PresentQueues    []string `json:"present_queues"`
	MissingQueues    []string `json:"missing_queues"`
}

// VerifyDesign checks the design against the broker using passive declares.
// An entity that does not exist, or exists with different properties, is
// reported missing. A failed passive declare closes its channel, so every
// check runs on a fresh one.
func (p *Provisioner) VerifyDesign(cfg *topology.Config) (*VerifyResult, error) {
	result := &VerifyResult{}

	for i := range cfg.Exchanges {
		ex := &cfg.Exchanges[i]
		ch, err := p.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open a channel: %w", err)
		}
		err = ch.ExchangeDeclarePassive(ex.Name, ex.Kind, ex.Durable, ex.AutoDelete, ex.Internal, false, exchangeArgs(ex))
		_ = ch.Close()
		if err != nil {
			result.MissingExchanges = append(result.MissingExchanges, ex.Name)
			continue
		}
		result.PresentExchanges = append(result.PresentExchanges, ex.Name)
	}

	for i := range cfg.Queues {
		q := &cfg.Queues[i]
		ch, err := p.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open a channel: %w", err)
		}
		_, err = ch.QueueDeclarePassive(q.Name, q.Durable, q.AutoDelete, q.Exclusive, false, queueArgs(q))
		_ = ch.Close()
		if err != nil {
			result.MissingQueues = append(result.MissingQueues, q.Name)
			continue
		}
		result.PresentQueues = append(result.PresentQueues, q.Name)
	}

	p.logger.Info("design verified against broker",
		"present_exchanges", len(result.PresentExchanges), "missing_exchanges", len(result.MissingExchanges),
		"present_queues", len(result.PresentQueues), "missing_queues", len(result.MissingQueues))
	return result, nil
}
