// Package messaging implements the event buses that carry "state changed"
// notifications from the engine and the session store to subscribers:
// an in-process bus, and a Redis pub/sub bus that fans events out to
// other processes sharing the same storage.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")

	errNilHandler = errors.New("handler cannot be nil")
	errNilEvent   = errors.New("event cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps every handler the bus invokes.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware turns a handler panic into ErrHandlerPanic.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("event handler panicked",
						logger.String("event_type", string(event.EventType())),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs slow or failing handlers.
func LoggingMiddleware(log *logger.Logger, slow time.Duration) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				log.Warn("event handler failed",
					logger.String("event_type", string(event.EventType())),
					logger.Latency(elapsed),
					logger.Err(err),
				)
			case slow > 0 && elapsed > slow:
				log.Warn("slow event handler",
					logger.String("event_type", string(event.EventType())),
					logger.Latency(elapsed),
				)
			}
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers in this process. In sync
// mode Publish returns after every handler ran; in async mode handlers
// run on a bounded worker pool and Close waits for them.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	middlewares []Middleware
	asyncMode   bool
	workerPool  chan struct{}
	log         *logger.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode enables asynchronous event processing.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent async handlers.
	WorkerPoolSize int

	// SlowHandler is the threshold above which a handler is logged.
	SlowHandler time.Duration

	Logger *logger.Logger
}

// DefaultInMemoryEventBusConfig returns a synchronous bus.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      false,
		WorkerPoolSize: 4,
		SlowHandler:    100 * time.Millisecond,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 4
	}
	log := config.Logger.With(logger.Component("eventbus"))

	bus := &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		log:        log,
		metrics:    NewEventBusMetrics(),
		closeCh:    make(chan struct{}),
	}
	bus.middlewares = []Middleware{
		RecoveryMiddleware(log),
		LoggingMiddleware(log, config.SlowHandler),
	}
	return bus
}

// Use appends a middleware. Middlewares apply in registration order,
// outermost first.
func (b *InMemoryEventBus) Use(m Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, m)
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers. Handler errors are
// logged and counted, never returned.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	middlewares := b.middlewares
	b.mu.RUnlock()

	b.metrics.RecordPublish(event.EventType())

	for _, h := range handlers {
		wrapped := h
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		if b.asyncMode {
			b.executeAsync(event, wrapped)
		} else {
			b.execute(event, wrapped)
		}
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}
		b.execute(event, handler)
	}()
}

func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) {
	start := time.Now()
	err := handler(event)
	b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
}

// Wait blocks until in-flight async handlers finish.
func (b *InMemoryEventBus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for pending handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	close(b.closeCh)
	return nil
}

// Metrics returns the live metrics.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus publishes every event to a Redis channel and re-publishes
// events from other instances on its local bus.
type RedisEventBus struct {
	client      *redis.Client
	pubsub      *redis.PubSub
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client *redis.Client

	// ChannelName defaults to "gd-coach:events".
	ChannelName string

	// InstanceID filters out this process's own messages. Generated when empty.
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig
	Logger         *logger.Logger
}

// NewRedisEventBus subscribes to the channel and starts the receive loop.
func NewRedisEventBus(ctx context.Context, config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "gd-coach:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	if config.LocalBusConfig.Logger == nil {
		config.LocalBusConfig.Logger = config.Logger
	}

	pubsub := config.Client.Subscribe(ctx, config.ChannelName)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", config.ChannelName, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b := &RedisEventBus{
		client:      config.Client,
		pubsub:      pubsub,
		localBus:    NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  config.InstanceID,
		log:         config.Logger.With(logger.Component("redis-eventbus")),
		ctx:         loopCtx,
		cancel:      cancel,
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.subscriptionLoop(pubsub.Channel())
	}()
	return b, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends the event to Redis and to local handlers. A Redis
// failure is logged; local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := encodeEnvelope(b.instanceID, event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(b.ctx, b.channelName, data).Err(); err != nil {
		b.log.Warn("failed to publish to redis",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) subscriptionLoop(messages <-chan *redis.Message) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisEventBus) handleMessage(payload string) {
	env, err := decodeEnvelope([]byte(payload))
	if err != nil {
		b.log.Warn("failed to decode remote event", logger.Err(err))
		return
	}
	if env.InstanceID == b.instanceID {
		return
	}

	if err := b.localBus.Publish(env.event()); err != nil {
		b.log.Warn("failed to deliver remote event", logger.Err(err))
	}
}

// Close unsubscribes and shuts the local bus down.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()

	if lerr := b.localBus.Close(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// Metrics returns the local bus metrics.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.localBus.Metrics()
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func encodeEnvelope(instanceID string, event shared.Event) ([]byte, error) {
	data, err := json.Marshal(eventEnvelope{
		InstanceID:  instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (eventEnvelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("unmarshal event: %w", err)
	}
	if env.EventType == "" {
		return env, errors.New("event envelope without type")
	}
	return env, nil
}

func (e eventEnvelope) event() shared.Event {
	return &reconstructedEvent{
		eventType:   e.EventType,
		aggregateID: e.AggregateID,
		occurredAt:  e.OccurredAt,
		payload:     e.Payload,
	}
}

// reconstructedEvent is an event received from another instance.
type reconstructedEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *reconstructedEvent) EventType() shared.EventType { return e.eventType }

func (e *reconstructedEvent) AggregateID() string { return e.aggregateID }

func (e *reconstructedEvent) OccurredAt() time.Time { return e.occurredAt }

func (e *reconstructedEvent) Payload() map[string]interface{} { return e.payload }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes and handler outcomes.
type EventBusMetrics struct {
	mu sync.RWMutex

	PublishedTotal       map[shared.EventType]int64
	HandlerExecutions    int64
	HandlerSuccesses     int64
	HandlerFailures      int64
	HandlerTotalDuration time.Duration
}

// NewEventBusMetrics creates an empty metrics tracker.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{
		PublishedTotal: make(map[shared.EventType]int64),
	}
}

// RecordPublish records a publish.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedTotal[eventType]++
}

// RecordHandlerExecution records a handler execution.
func (m *EventBusMetrics) RecordHandlerExecution(_ shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.HandlerExecutions++
	m.HandlerTotalDuration += duration
	if success {
		m.HandlerSuccesses++
	} else {
		m.HandlerFailures++
	}
}

// EventBusMetricsSnapshot is a point-in-time copy of the counters.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	PublishedByType        map[shared.EventType]int64
	TotalHandlerExecs      int64
	HandlerFailures        int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
}

// Snapshot returns a copy of the current metrics.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := EventBusMetricsSnapshot{
		PublishedByType:    make(map[shared.EventType]int64, len(m.PublishedTotal)),
		TotalHandlerExecs:  m.HandlerExecutions,
		HandlerFailures:    m.HandlerFailures,
		HandlerSuccessRate: 1.0,
	}
	for t, n := range m.PublishedTotal {
		snap.PublishedByType[t] = n
		snap.TotalPublished += n
	}
	if m.HandlerExecutions > 0 {
		snap.HandlerSuccessRate = float64(m.HandlerSuccesses) / float64(m.HandlerExecutions)
		snap.AverageHandlerDuration = m.HandlerTotalDuration / time.Duration(m.HandlerExecutions)
	}
	return snap
}
