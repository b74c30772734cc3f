package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLogFile is the file, inside the configured directory, that the
// audit consumer appends to.
const AuditLogFile = "availability.log"

// StartAuditConsumer consumes availability.changed and appends one line
// per event to dir/availability.log. It reconnects with backoff until ctx
// is cancelled.
func StartAuditConsumer(ctx context.Context, url, dir string, log *zap.Logger) error {
	if url == "" {
		return errors.New("rabbitmq url not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("audit-consumer")

	backoff := time.Second
	for {
		conn, err := dialBroker(url)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(WindowsChangedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(WindowsChangedQueue, "", false, false, false, false, nil)
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
				log.Error("handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
				// no requeue: a poison message would spin forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(dir string, body []byte) error {
	var ev WindowsChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatAuditLine(ev WindowsChangedEvent) string {
	spans := make([]string, 0, len(ev.Windows))
	for _, w := range ev.Windows {
		spans = append(spans, fmt.Sprintf("#%d %s..%s %s-%s", w.ID, w.DateStart, w.DateEnd, w.TimeStart, w.TimeEnd))
	}
	return fmt.Sprintf("[%s] Window %s | event_id=%s | vendor_id=%d | window_id=%d | actor_id=%d | mode=%s | windows=[%s]\n",
		ev.OccurredAt, ev.Kind, ev.EventID, ev.VendorID, ev.WindowID, ev.ActorID, ev.Mode, strings.Join(spans, ", "))
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
