// Package amqp publishes and consumes the service's RabbitMQ messages: report
// requests for the worker and record-created events.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"arwaeduc/internal/metrics"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client owns one connection and channel. Both queues are bound to a direct
// exchange with their own name as routing key.
type Client struct {
	url          string
	exchangeName string
	reportQueue  string
	eventQueue   string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, reportQueue, eventQueue string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		reportQueue:  reportQueue,
		eventQueue:   eventQueue,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.reportQueue, c.eventQueue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}
	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange string, queues ...string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range queues {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// PublishReportRequested asks the worker to build the export for year/month.
func (c *Client) PublishReportRequested(ctx context.Context, year, month int) error {
	msg := NewReportRequestedMessage(year, month)
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.reportQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published report request", "year", year, "month", month, "queue", c.reportQueue)
	return nil
}

// PublishRecordCreated announces a new record.
func (c *Client) PublishRecordCreated(ctx context.Context, kind RecordKind, id string) error {
	body, err := NewRecordCreatedMessage(kind, id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.eventQueue, body); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Published record created", "kind", kind, "id", id, "queue", c.eventQueue)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("publish: circuit breaker is open")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		c.recordFailure()
		return errors.New("publish: channel not open")
	}

	err := ch.PublishWithContext(ctx, c.exchangeName, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			go c.reconnect(context.WithoutCancel(ctx))
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// reconnect retries with exponential backoff until it succeeds or ctx ends.
func (c *Client) reconnect(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(exponentialBackoff(attempt)):
		}
		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}
		c.recordSuccess()
		slog.InfoContext(ctx, "AMQP reconnected", "attempt", attempt+1)
		return
	}
}

// ConsumeReportRequests delivers report requests to handler until ctx ends.
// Malformed messages are dropped; handler errors requeue the message.
func (c *Client) ConsumeReportRequests(ctx context.Context, handler func(context.Context, *ReportRequestedMessage) error) error {
	return c.consume(ctx, c.reportQueue, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := ReportRequestedMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg)
	})
}

// ConsumeRecordCreated delivers record-created events to handler until ctx ends.
func (c *Client) ConsumeRecordCreated(ctx context.Context, handler func(context.Context, *RecordCreatedMessage) error) error {
	return c.consume(ctx, c.eventQueue, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := RecordCreatedMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg)
	})
}

// consume acks on success. handle reports decoded=false for messages that
// can never succeed; those are rejected without requeue.
func (c *Client) consume(ctx context.Context, queue string, handle func(context.Context, []byte) (decoded bool, err error)) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("consume: channel not open")
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}
	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel %s closed", queue)
			}
			decoded, err := handle(ctx, d.Body)
			switch {
			case !decoded:
				slog.ErrorContext(ctx, "Dropping malformed message", "queue", queue, "error", err)
				_ = d.Nack(false, false)
			case err != nil:
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
				_ = d.Nack(false, true)
			default:
				_ = d.Ack(false)
			}
			metrics.MessageConsumed(queue, err)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
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
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
