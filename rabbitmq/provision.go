package rabbitmq

import (
	"fmt"

	"mq-designer/metrics"
	"mq-designer/topology"

	"github.com/rabbitmq/amqp091-go"
)

// ProvisionDesign declares every exchange, queue and binding of a design on
// the live broker, stopping at the first error. Entities that were already
// declared stay in place. Policies are design data only and are not applied.
func (p *Provisioner) ProvisionDesign(cfg *topology.Config) error {
	for i := range cfg.Exchanges {
		if err := p.declareExchange(&cfg.Exchanges[i]); err != nil {
			metrics.ProvisionsTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	for i := range cfg.Queues {
		if err := p.declareQueue(&cfg.Queues[i]); err != nil {
			metrics.ProvisionsTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	for i := range cfg.Bindings {
		if err := p.declareBinding(&cfg.Bindings[i]); err != nil {
			metrics.ProvisionsTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	metrics.ProvisionsTotal.WithLabelValues("ok").Inc()
	p.logger.Info("design provisioned", "exchanges", len(cfg.Exchanges), "queues", len(cfg.Queues), "bindings", len(cfg.Bindings))
	return nil
}

func (p *Provisioner) declareExchange(ex *topology.Exchange) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	p.logger.Info("declaring exchange", "exchange", ex.Name, "kind", ex.Kind)
	if err := ch.ExchangeDeclare(ex.Name, ex.Kind, ex.Durable, ex.AutoDelete, ex.Internal, false, exchangeArgs(ex)); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", ex.Name, err)
	}
	return nil
}

func (p *Provisioner) declareQueue(q *topology.Queue) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	p.logger.Info("declaring queue", "queue", q.Name)
	if _, err := ch.QueueDeclare(q.Name, q.Durable, q.AutoDelete, q.Exclusive, false, queueArgs(q)); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", q.Name, err)
	}
	return nil
}

func (p *Provisioner) declareBinding(b *topology.Binding) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	p.logger.Info("binding queue", "queue", b.Destination, "exchange", b.Source, "routing_key", b.RoutingKey)
	if err := ch.QueueBind(b.Destination, b.RoutingKey, b.Source, false, bindingArgs(b)); err != nil {
		return fmt.Errorf("failed to bind queue %q to exchange %q: %w", b.Destination, b.Source, err)
	}
	return nil
}

// exchangeArgs merges the exchange arguments with the alternate-exchange
// setting, which the broker only reads from the declare arguments table.
func exchangeArgs(ex *topology.Exchange) amqp091.Table {
	if len(ex.Args) == 0 && ex.AlternateExchange == "" {
		return nil
	}
	table := amqp091.Table{}
	for k, v := range ex.Args {
		table[k] = v
	}
	if ex.AlternateExchange != "" {
		table["alternate-exchange"] = ex.AlternateExchange
	}
	return table
}

// queueArgs merges the queue arguments with the x-max-length limit.
func queueArgs(q *topology.Queue) amqp091.Table {
	if len(q.Args) == 0 && q.MaxLength <= 0 {
		return nil
	}
	table := amqp091.Table{}
	for k, v := range q.Args {
		table[k] = v
	}
	if q.MaxLength > 0 {
		table["x-max-length"] = q.MaxLength
	}
	return table
}

func bindingArgs(b *topology.Binding) amqp091.Table {
	if len(b.Args) == 0 {
		return nil
	}
	table := amqp091.Table{}
	for k, v := range b.Args {
		table[k] = v
	}
	return table
}
