package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client представляет собой клиент RabbitMQ
type Client struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *slog.Logger
}

var (
	_ ports.UserEventPublisher = (*Client)(nil)
	_ ports.UserEventConsumer  = (*Client)(nil)
)

// NewClient подключается к RabbitMQ и объявляет очередь событий
func NewClient(url, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Объявление идемпотентно: очередь создаётся, только если её ещё нет
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	logger.Info("connected to RabbitMQ", "queue", q.Name, "messages", q.Messages)
	return &Client{conn: conn, channel: ch, queueName: q.Name, logger: logger}, nil
}

// Close закрывает канал и соединение RabbitMQ
func (c *Client) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ connection", "error", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
}

// PublishUserEvent публикует событие об изменении пользователя
func (c *Client) PublishUserEvent(ctx context.Context, event payloads.UserEventPayload) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal user event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     event.EventID,
			CorrelationId: event.CorrelationID,
			Type:          event.Type,
			Timestamp:     event.OccurredAt,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish user event: %w", err)
	}

	c.logger.Debug("user event published", "queue", c.queueName, "type", event.Type, "event_id", event.EventID)
	return nil
}

// StartConsumingUserEvents регистрирует потребителя и обрабатывает сообщения в отдельной горутине
func (c *Client) StartConsumingUserEvents(ctx context.Context, handler func(context.Context, payloads.UserEventPayload) error) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack, подтверждаем вручную
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("consumer registered, waiting for messages", "queue", c.queueName)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("RabbitMQ delivery channel closed, stopping consumer")
					return
				}
				HandleMessage(ctx, c.logger, msg.Body, msg, handler)
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping RabbitMQ consumer")
				return
			}
		}
	}()

	return nil
}

// Acknowledger — часть amqp.Delivery, нужная для подтверждения
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// HandleMessage декодирует событие и подтверждает его по результату обработки.
// Битое сообщение отклоняется без возврата в очередь, иначе оно зациклится.
// Ошибка обработчика возвращает сообщение в очередь.
func HandleMessage(ctx context.Context, logger *slog.Logger, body []byte, ack Acknowledger, handler func(context.Context, payloads.UserEventPayload) error) {
	var event payloads.UserEventPayload
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("error unmarshalling user event", "error", err, "body", string(body))
		if err := ack.Nack(false, false); err != nil {
			logger.Error("error NACKing malformed message", "error", err)
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		logger.Error("error processing user event", "event_id", event.EventID, "type", event.Type, "error", err)
		if err := ack.Nack(false, true); err != nil {
			logger.Error("error NACKing message after processing failure", "error", err)
		}
		return
	}

	if err := ack.Ack(false); err != nil {
		logger.Error("error ACKing message", "error", err)
		return
	}
	logger.Debug("user event processed and ACKed", "event_id", event.EventID)
}

// NoopPublisher используется, когда брокер не настроен
type NoopPublisher struct{}

func (NoopPublisher) PublishUserEvent(context.Context, payloads.UserEventPayload) error {
	return nil
}
