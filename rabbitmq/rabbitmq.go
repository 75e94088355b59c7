package rabbitmq

import (
	"fmt"
	"log/slog"

	"mq-designer/config"

	"github.com/rabbitmq/amqp091-go"
)

// Provisioner holds the connection used to apply designs to a live broker.
type Provisioner struct {
	conn   *amqp091.Connection
	logger *slog.Logger
	cfg    *config.RabbitMQConfig
}

// New creates a new Provisioner and connects to the broker.
func New(cfg *config.RabbitMQConfig, logger *slog.Logger) (*Provisioner, error) {
	conn, err := amqp091.Dial(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("connected to RabbitMQ successfully")

	return &Provisioner{
		conn:   conn,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// Close
func (p *Provisioner) Close() error {
	return p.conn.Close()
}
