// Package amqp publishes and consumes budget ledger events. The server
// publishes after a successful local mutation; the snapshot worker
// consumes. Publishing is best-effort: a broker outage never fails the
// originating request.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishPurchaseConfirmed publishes a purchase-confirmed event.
func (c *Client) PublishPurchaseConfirmed(ctx context.Context, msg *PurchaseConfirmedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypePurchaseConfirmed, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published purchase confirmed event",
		"expense_id", msg.ExpenseID,
		"category_id", msg.CategoryID,
		"month", msg.Month,
		"price_cents", msg.PriceCents)
	return nil
}

// PublishBudgetChanged publishes an allocation change event.
func (c *Client) PublishBudgetChanged(ctx context.Context, msg *BudgetChangedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeBudgetChanged, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published budget changed event",
		"month", msg.Month,
		"category_id", msg.CategoryID,
		"amount_cents", msg.AmountCents,
		"removed", msg.Removed)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeEvents consumes ledger events and dispatches by message type.
// Handler errors requeue the delivery; undecodable messages are dropped.
func (c *Client) ConsumeEvents(ctx context.Context,
	onPurchase func(*PurchaseConfirmedMessage) error,
	onBudget func(*BudgetChangedMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			requeue, err := dispatch(delivery, onPurchase, onBudget)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to handle event",
					"type", delivery.Type, "error", err)
				delivery.Nack(false, requeue)
				continue
			}
			delivery.Ack(false)
		}
	}
}

// dispatch decodes and handles one delivery. requeue reports whether a
// failed delivery should go back on the queue: handler failures are
// retryable, undecodable or unknown messages are not.
func dispatch(delivery amqp091.Delivery,
	onPurchase func(*PurchaseConfirmedMessage) error,
	onBudget func(*BudgetChangedMessage) error,
) (requeue bool, err error) {
	switch delivery.Type {
	case TypePurchaseConfirmed:
		msg, err := PurchaseConfirmedMessageFromJSON(delivery.Body)
		if err != nil {
			return false, fmt.Errorf("unmarshal purchase event: %w", err)
		}
		if err := onPurchase(msg); err != nil {
			return true, err
		}
		return false, nil
	case TypeBudgetChanged:
		msg, err := BudgetChangedMessageFromJSON(delivery.Body)
		if err != nil {
			return false, fmt.Errorf("unmarshal budget event: %w", err)
		}
		if err := onBudget(msg); err != nil {
			return true, err
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown event type %q", delivery.Type)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
