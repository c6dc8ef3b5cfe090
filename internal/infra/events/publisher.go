package events

import (
	"context"
	"fmt"
	"time"

	"tontine-app/internal/domain/carnets"

	json "github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DayMarkedRoutingKey = "carnet.day_marked"

// Publisher sends carnet events to a durable direct exchange.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	log      *zap.Logger
}

func NewPublisher(url, exchange, queue string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
		log:      log,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := p.channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := p.channel.QueueBind(p.queue, DayMarkedRoutingKey, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (p *Publisher) PublishDayMarked(ctx context.Context, evt carnets.DayMarked) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, p.exchange, DayMarkedRoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    evt.CarnetID + ":" + fmt.Sprint(evt.Jour) + ":" + evt.OccurredAt.UTC().Format(time.RFC3339Nano),
		Timestamp:    evt.OccurredAt,
		Type:         DayMarkedRoutingKey,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.Debug("published carnet event",
		zap.String("carnet_id", evt.CarnetID),
		zap.Int("jour", evt.Jour),
		zap.String("type", string(evt.Type)),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) PublishDayMarked(context.Context, carnets.DayMarked) error { return nil }

func (Noop) Close() error { return nil }
