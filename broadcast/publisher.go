// Package broadcast publishes tab events to a RabbitMQ topic exchange so
// kitchen displays, waiter handhelds and dashboards can follow the floor.
//
// Every event is a JSON Envelope routed by its type, e.g. "order.updated"
// or "bill.paid". Consumers bind queues with patterns such as "order.*".
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/plugin"
	"github.com/xraph/tab/request"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "tab.events"

// Routing keys.
const (
	TypeOrderCreated      = "order.created"
	TypeOrderUpdated      = "order.updated"
	TypeOrderArchived     = "order.archived"
	TypeNoteClosed        = "note.closed"
	TypeTableCreated      = "table.created"
	TypeTableTransferred  = "table.transferred"
	TypeServerTransferred = "server.transferred"
	TypeBillCreated       = "bill.created"
	TypeBillPaid          = "bill.paid"
	TypeServiceRequested  = "service.requested"
	TypeServiceCompleted  = "service.completed"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Publisher)(nil)
	_ plugin.OnShutdown          = (*Publisher)(nil)
	_ plugin.OnOrderCreated      = (*Publisher)(nil)
	_ plugin.OnOrderUpdated      = (*Publisher)(nil)
	_ plugin.OnOrderArchived     = (*Publisher)(nil)
	_ plugin.OnNoteClosed        = (*Publisher)(nil)
	_ plugin.OnTableCreated      = (*Publisher)(nil)
	_ plugin.OnTableTransferred  = (*Publisher)(nil)
	_ plugin.OnServerTransferred = (*Publisher)(nil)
	_ plugin.OnBillCreated       = (*Publisher)(nil)
	_ plugin.OnBillPaid          = (*Publisher)(nil)
	_ plugin.OnServiceRequested  = (*Publisher)(nil)
	_ plugin.OnServiceCompleted  = (*Publisher)(nil)
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Envelope is the message body of every published event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Table      string          `json:"table,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Publisher is a tab plugin that forwards events to RabbitMQ.
type Publisher struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithExchange overrides DefaultExchange.
func WithExchange(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.exchange = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithPublishTimeout bounds each publish call (default 5s).
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a Publisher on an open channel and declares the exchange.
func New(ch Channel, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		ch:       ch,
		exchange: DefaultExchange,
		timeout:  5 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("broadcast: declare exchange %q: %w", p.exchange, err)
	}
	return p, nil
}

// Dial connects to the broker at url and returns a Publisher that owns the
// connection.
func Dial(url string, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broadcast: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broadcast: open channel: %w", err)
	}
	p, err := New(ch, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "broadcast-amqp" }

// Close closes the channel and, when the publisher dialled it, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil && !p.conn.IsClosed() {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.Close()
}

// ──────────────────────────────────────────────────
// Hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (p *Publisher) OnOrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, TypeOrderCreated, o.Table, o)
}

// OnOrderUpdated implements plugin.OnOrderUpdated.
func (p *Publisher) OnOrderUpdated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, TypeOrderUpdated, o.Table, o)
}

// OnOrderArchived implements plugin.OnOrderArchived.
func (p *Publisher) OnOrderArchived(ctx context.Context, o *order.Order, rec *archive.Record) error {
	return p.publish(ctx, TypeOrderArchived, o.Table, rec)
}

// OnNoteClosed implements plugin.OnNoteClosed.
func (p *Publisher) OnNoteClosed(ctx context.Context, rec *archive.Record) error {
	return p.publish(ctx, TypeNoteClosed, rec.Table, rec)
}

// OnTableCreated implements plugin.OnTableCreated.
func (p *Publisher) OnTableCreated(ctx context.Context, table string, o *order.Order) error {
	return p.publish(ctx, TypeTableCreated, table, o)
}

type tableMove struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Orders []*order.Order `json:"orders"`
}

// OnTableTransferred implements plugin.OnTableTransferred.
func (p *Publisher) OnTableTransferred(ctx context.Context, from, to string, orders []*order.Order) error {
	return p.publish(ctx, TypeTableTransferred, to, tableMove{From: from, To: to, Orders: orders})
}

type serverChange struct {
	Server string         `json:"server"`
	Orders []*order.Order `json:"orders"`
}

// OnServerTransferred implements plugin.OnServerTransferred.
func (p *Publisher) OnServerTransferred(ctx context.Context, table, server string, orders []*order.Order) error {
	return p.publish(ctx, TypeServerTransferred, table, serverChange{Server: server, Orders: orders})
}

// OnBillCreated implements plugin.OnBillCreated.
func (p *Publisher) OnBillCreated(ctx context.Context, b *bill.Bill) error {
	return p.publish(ctx, TypeBillCreated, b.Table, b)
}

type billPayment struct {
	BillID    int64         `json:"bill_id"`
	Payment   *bill.Payment `json:"payment"`
	Remaining int64         `json:"remaining"`
}

// OnBillPaid implements plugin.OnBillPaid.
func (p *Publisher) OnBillPaid(ctx context.Context, b *bill.Bill, pay *bill.Payment) error {
	return p.publish(ctx, TypeBillPaid, b.Table, billPayment{
		BillID:    b.ID,
		Payment:   pay,
		Remaining: b.Remaining().Amount,
	})
}

// OnServiceRequested implements plugin.OnServiceRequested.
func (p *Publisher) OnServiceRequested(ctx context.Context, r *request.ServiceRequest) error {
	return p.publish(ctx, TypeServiceRequested, r.Table, r)
}

// OnServiceCompleted implements plugin.OnServiceCompleted.
func (p *Publisher) OnServiceCompleted(ctx context.Context, r *request.ServiceRequest) error {
	return p.publish(ctx, TypeServiceCompleted, r.Table, r)
}

func (p *Publisher) publish(ctx context.Context, typ, table string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broadcast: encode %s: %w", typ, err)
	}
	env := Envelope{
		ID:         id.NewEventID().String(),
		Type:       typ,
		OccurredAt: p.now().UTC(),
		Table:      table,
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("broadcast: encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		typ,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    env.ID,
			Timestamp:    env.OccurredAt,
			Type:         typ,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("broadcast: publish %s: %w", typ, err)
	}

	p.logger.Debug("broadcast: event published",
		"type", typ,
		"event_id", env.ID,
		"table", table,
	)
	return nil
}
