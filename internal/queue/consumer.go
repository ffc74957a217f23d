// Package queue contains the background consumer that listens to the
// ledger.events queue and appends one line per event to <dir>/audit.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// AuditFile is the name of the file written under the audit directory.
const AuditFile = "audit.log"

// StartAuditConsumer connects to RabbitMQ, declares the ledger.events queue
// (durable), and starts consuming messages. It runs a reconnect loop with
// exponential backoff and only returns when ctx is cancelled. Messages that
// cannot be handled are rejected without requeue so a bad payload cannot
// spin the loop.
func StartAuditConsumer(ctx context.Context, url, dir string, log *logrus.Logger) error {
    entry := log.WithField("component", "audit-consumer")
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            entry.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, dir, entry)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        entry.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *logrus.Entry) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("set QoS failed")
    }

    if _, err := ch.QueueDeclare(LedgerQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(LedgerQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(dir, d.Body); err != nil {
                log.WithError(err).Error("handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir string, body []byte) error {
    var ev LedgerEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Action == "" || ev.Resource == "" {
        return errors.New("event without action or resource")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write audit file: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single newline-terminated audit line.
func FormatLine(ev LedgerEvent) string {
    return fmt.Sprintf("[%s] %s %s | id=%d | user_id=%d | actor_id=%d\n",
        ev.OccurredAt, ev.Resource, ev.Action, ev.ResourceID, ev.UserID, ev.ActorID)
}
