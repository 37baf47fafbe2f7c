package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange all planner and review events flow
// through. Routing keys: routine.due, task.overdue, task.materialized,
// goal.review.due, review.remind, session.closed.
const ExchangeName = "events"

// NewConnection dials RabbitMQ, naming the connection so it is identifiable
// in the broker's management UI.
func NewConnection(url string) (*amqp091.Connection, error) {
	cfg := amqp091.Config{
		Properties: amqp091.Table{
			"connection_name": "routinekeeper",
		},
	}
	conn, err := amqp091.DialConfig(url, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the events exchange. Declaration is idempotent,
// so both publishers and consumers call it on startup.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
