// Package amqp publishes and consumes the engine's change events: input
// mutations that require cache invalidation, and monthly savings posting
// triggers.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Client wraps one AMQP connection and channel bound to the events exchange.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewClient dials the broker and declares the exchange, queue, and binding.
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
	// Fanout: every process binds its own queue and sees every event. The
	// server invalidates its cache, the worker posts savings.
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

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

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		"",             // routing key (ignored by fanout)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishDataChanged announces a mutated input collection.
func (c *Client) PublishDataChanged(ctx context.Context, collection string) error {
	body, err := NewDataChangedMessage(collection).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, KindDataChanged, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published data changed message",
		"collection", collection,
		"exchange", c.exchangeName)
	return nil
}

// PublishSavingsPost requests posting of one month's recurring savings.
func (c *Client) PublishSavingsPost(ctx context.Context, year, month int) error {
	body, err := NewSavingsPostMessage(year, month).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, KindSavingsPost, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published savings post message",
		"year", year,
		"month", month,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, kind string, payload []byte) error {
	body, err := json.Marshal(envelope{Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Handler receives decoded messages from Consume. A nil message field means
// the delivery carried the other kind.
type Handler interface {
	HandleDataChanged(ctx context.Context, msg *DataChangedMessage) error
	HandleSavingsPost(ctx context.Context, msg *SavingsPostMessage) error
}

// Consume reads deliveries until ctx is cancelled, dispatching each to the
// handler. Failed messages are rejected without requeue after logging; the
// engine tolerates a lost invalidation because version-hashed keys still miss
// on changed inputs.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.dispatch(ctx, handler, delivery.Body); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "error", err)
				delivery.Nack(false, false)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, handler Handler, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Kind {
	case KindDataChanged:
		msg, err := DataChangedMessageFromJSON(env.Payload)
		if err != nil {
			return fmt.Errorf("unmarshal data changed: %w", err)
		}
		return handler.HandleDataChanged(ctx, msg)
	case KindSavingsPost:
		msg, err := SavingsPostMessageFromJSON(env.Payload)
		if err != nil {
			return fmt.Errorf("unmarshal savings post: %w", err)
		}
		return handler.HandleSavingsPost(ctx, msg)
	default:
		return fmt.Errorf("unknown message kind %q", env.Kind)
	}
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close amqp client: %v", errs)
	}
	return nil
}
