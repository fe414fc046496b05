package dispatch

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/streadway/amqp"

	"github.com/xtding233/wish-backend/internal/gacha"
)

// RewardEvent is the message body published for each applied action.
type RewardEvent struct {
	Account  string    `json:"account"`
	Reward   string    `json:"reward"`
	Amount   int       `json:"amount"`
	Commands []string  `json:"commands"`
	At       time.Time `json:"at"`
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes reward events to an exchange; a worker on the
// host side consumes them and runs the commands.
type AMQPDispatcher struct {
	ch         publisher
	conn       *amqp.Connection
	exchange   string
	routingKey string
	now        func() time.Time
}

// DialAMQP connects and declares a durable direct exchange.
func DialAMQP(url, exchange, routingKey string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPDispatcher{ch: ch, conn: conn, exchange: exchange, routingKey: routingKey, now: time.Now}, nil
}

func (d *AMQPDispatcher) Apply(_ context.Context, account string, action gacha.Action) error {
	body, err := jsoniter.Marshal(RewardEvent{
		Account:  account,
		Reward:   SanitizeItem(action.Name),
		Amount:   action.Amount(),
		Commands: Render(account, action),
		At:       d.now(),
	})
	if err != nil {
		return err
	}
	return d.ch.Publish(d.exchange, d.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    d.now(),
		Body:         body,
	})
}

func (d *AMQPDispatcher) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
