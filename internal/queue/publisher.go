package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/availability"
)

const (
	// DialTimeout bounds the TCP connect and AMQP handshake.
	DialTimeout = 2 * time.Second
	// RedialBackoff is how long a failed dial keeps the publisher from
	// dialing again.
	RedialBackoff = 5 * time.Second

	publishTimeout = 5 * time.Second
	backlogSize    = 256
)

var (
	// ErrBacklogFull is returned by WindowsChanged when events arrive faster
	// than the broker accepts them. The event is dropped.
	ErrBacklogFull = errors.New("event backlog full")
	// ErrBrokerUnavailable is returned while a failed dial is backing off.
	ErrBrokerUnavailable = errors.New("broker unavailable, backing off")
)

type dialFunc func(url string) (*amqp.Connection, error)

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Dial:      amqp.DefaultDial(DialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
}

// Publisher sends WindowsChangedEvent messages. WindowsChanged only
// enqueues; a single goroutine owns the connection and publishes in
// order, redialing after failures no more often than RedialBackoff.
type Publisher struct {
	url     string
	log     *zap.Logger
	dial    dialFunc
	backoff time.Duration

	events    chan WindowsChangedEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu      sync.Mutex
	now     func() time.Time
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewPublisher starts the publishing goroutine. It does not dial; the
// first event does. Close stops it.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return newPublisher(url, log, dialBroker, backlogSize)
}

func newPublisher(url string, log *zap.Logger, dial dialFunc, backlog int) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:     url,
		log:     log.Named("publisher"),
		dial:    dial,
		backoff: RedialBackoff,
		events:  make(chan WindowsChangedEvent, backlog),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// WindowsChanged implements availability.Notifier. It never waits on the
// broker.
func (p *Publisher) WindowsChanged(_ context.Context, c availability.Change) error {
	if p.url == "" {
		return errors.New("rabbitmq url not configured")
	}
	ev := NewWindowsChangedEvent(c, time.Now())
	select {
	case <-p.done:
		return errors.New("publisher closed")
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s event for vendor %d", ErrBacklogFull, ev.Kind, ev.VendorID)
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.events:
			p.publishLogged(ev)
		case <-p.done:
			// Flush what is already queued; backoff keeps this short when
			// the broker is gone.
			for {
				select {
				case ev := <-p.events:
					p.publishLogged(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publishLogged(ev WindowsChangedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		p.log.Warn("event not published", zap.String("event_id", ev.EventID), zap.String("kind", ev.Kind),
			zap.Uint64("vendor_id", ev.VendorID), zap.Error(err))
	}
}

// Publish sends ev as a persistent JSON message and waits for the broker.
// A failed publish drops the cached channel so the next call starts from
// a fresh connection.
func (p *Publisher) Publish(ctx context.Context, ev WindowsChangedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", WindowsChangedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	p.log.Debug("event published", zap.String("event_id", ev.EventID), zap.String("kind", ev.Kind),
		zap.Uint64("vendor_id", ev.VendorID))
	return nil
}

// channel returns the open channel, dialing and declaring the queue when
// needed. Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.url == "" {
		return nil, errors.New("rabbitmq url not configured")
	}
	if now := p.now(); now.Before(p.retryAt) {
		return nil, fmt.Errorf("%w for %s", ErrBrokerUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
	}
	conn, err := p.dial(p.url)
	if err != nil {
		p.retryAt = p.now().Add(p.backoff)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = p.now().Add(p.backoff)
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(WindowsChangedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = p.now().Add(p.backoff)
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops accepting events, flushes the backlog and releases the
// broker connection.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
