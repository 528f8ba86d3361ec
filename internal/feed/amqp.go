package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cashflow/internal/logger"
)

// TransactionsCollection is the collection name carried by change notices
// for transaction writes.
const TransactionsCollection = "transactions"

// Broker fans change notices out to every replica through a fanout
// exchange. Each replica consumes through its own exclusive queue and
// forwards notices to its local Notifier.
type Broker struct {
	url      string
	exchange string
	local    Notifier

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewBroker dials url and declares the exchange. local receives notices
// consumed from the exchange, and every notice directly whenever
// publishing fails.
func NewBroker(url, exchange string, local Notifier) (*Broker, error) {
	b := &Broker{url: url, exchange: exchange, local: local}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp091.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		b.exchange, // name
		"fanout",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	b.mu.Lock()
	b.conn, b.channel = conn, channel
	b.mu.Unlock()
	return nil
}

// Changed publishes a notice for userID. A failed publish is logged and the
// local notifier is told directly so this replica still updates.
func (b *Broker) Changed(ctx context.Context, userID string) {
	if err := b.publish(ctx, NewChangeNotice(userID, TransactionsCollection)); err != nil {
		logger.Named("feed").Warnw("publish change notice failed, notifying locally",
			"user_id", userID,
			"exchange", b.exchange,
			"error", err,
		)
		b.local.Changed(ctx, userID)
	}
}

func (b *Broker) publish(ctx context.Context, notice *ChangeNotice) error {
	body, err := notice.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	b.mu.Lock()
	channel := b.channel
	b.mu.Unlock()
	if channel == nil || channel.IsClosed() {
		return fmt.Errorf("channel closed")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		b.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   notice.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

// Run consumes notices until ctx is cancelled, reconnecting with
// exponential backoff when the connection drops.
func (b *Broker) Run(ctx context.Context) error {
	log := logger.Named("feed")
	for attempt := 0; ; attempt++ {
		err := b.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		log.Warnw("change notice consumer disconnected, reconnecting",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if err := b.connect(); err != nil {
			log.Warnw("reconnect failed", "error", err)
			continue
		}
		attempt = -1
	}
}

func (b *Broker) consume(ctx context.Context) error {
	b.mu.Lock()
	channel := b.channel
	b.mu.Unlock()
	if channel == nil || channel.IsClosed() {
		return fmt.Errorf("channel closed")
	}

	queue, err := channel.QueueDeclare(
		"",    // name, server-generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log := logger.Named("feed")
	log.Infow("consuming change notices", "exchange", b.exchange, "queue", queue.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("connection closed")
			}
			notice, err := ChangeNoticeFromJSON(delivery.Body)
			if err != nil || notice.UserID == "" {
				log.Warnw("dropping malformed change notice", "error", err)
				continue
			}
			b.local.Changed(ctx, notice.UserID)
		}
	}
}

// Close closes the channel and connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	const maxBackoff = 30 * time.Second
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "closed", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
