package service

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/queue"
)

// Publisher delivers ledger events. Callers treat failures as non-fatal:
// the mutation has already been committed when an event is published.
type Publisher interface {
    Publish(ctx context.Context, ev queue.LedgerEvent) error
}

const dialTimeout = 3 * time.Second

// AMQPPublisher publishes each event as a persistent JSON message to the
// ledger.events queue. A connection is opened per publish; errors are
// logged and returned so the caller can choose to ignore them.
type AMQPPublisher struct {
    URL string
    Log *logrus.Logger
}

func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
    return &AMQPPublisher{URL: url, Log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.LedgerEvent) error {
    log := p.Log.WithField("component", "publisher").WithField("resource", ev.Resource)

    conn, err := amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(dialTimeout), // a missing broker must not stall the request
    })
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.LedgerQueue, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        queue.LedgerQueue, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

// NopPublisher drops every event. It is used when AMQP_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.LedgerEvent) error { return nil }

// RecordingPublisher keeps published events in memory.
type RecordingPublisher struct {
    mu     sync.Mutex
    events []queue.LedgerEvent
}

func (r *RecordingPublisher) Publish(_ context.Context, ev queue.LedgerEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
    return nil
}

// Events returns a copy of what was published so far.
func (r *RecordingPublisher) Events() []queue.LedgerEvent {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]queue.LedgerEvent(nil), r.events...)
}
