package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/keymarks/internal/event/topic"
	"github.com/dshills/keymarks/internal/logging"
)

// Publisher publishes events. Components that only emit events depend on
// this rather than on the full Bus.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Bus is the central event bus interface.
type Bus interface {
	Publisher

	Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)
	Unsubscribe(sub Subscription) error

	// SubscriptionCount returns the number of active subscriptions.
	SubscriptionCount() int
}

// BusOption configures an event Bus.
type BusOption func(*bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *logging.Logger) BusOption {
	return func(b *bus) {
		b.log = logging.OrNop(l).WithComponent("event")
	}
}

// bus is the default Bus implementation. Delivery is synchronous.
type bus struct {
	mu   sync.RWMutex
	subs map[string]*subscription
	seq  uint64
	log  *logging.Logger
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	b := &bus{
		subs: make(map[string]*subscription),
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for every event whose topic matches topicPattern.
func (b *bus) Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if !topicPattern.IsValid() {
		return nil, ErrInvalidTopic
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	cfg := subscriptionConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &subscription{
		id:      uuid.NewString(),
		pattern: topicPattern,
		handler: handler,
		config:  cfg,
		seq:     b.seq,
	}
	b.subs[sub.id] = sub
	return sub, nil
}

// SubscribeFunc registers a function handler.
func (b *bus) SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(topicPattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.subs[sub.ID()]
	if !ok {
		return ErrSubscriptionNotFound
	}
	s.Cancel()
	delete(b.subs, s.id)
	return nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers event to every matching subscription in priority order.
// All handlers run even if one fails; their errors are joined.
func (b *bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok {
		return fmt.Errorf("%w: %T does not provide a topic", ErrInvalidEvent, event)
	}
	eventTopic := tp.EventTopic()
	if !eventTopic.IsValid() || eventTopic.IsWildcard() {
		return ErrInvalidTopic
	}

	var errs []error
	for _, sub := range b.matching(eventTopic) {
		if !sub.IsActive() {
			continue
		}
		if sub.config.once {
			sub.Cancel()
			b.remove(sub)
		}
		if err := b.deliver(ctx, sub, event); err != nil {
			herr := &HandlerError{SubscriptionID: sub.id, Topic: eventTopic.String(), Err: err}
			b.log.Warn("%v", herr)
			errs = append(errs, herr)
		}
	}
	return errors.Join(errs...)
}

// matching returns a priority-ordered snapshot of subscriptions for eventTopic.
func (b *bus) matching(eventTopic topic.Topic) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscription
	for _, sub := range b.subs {
		if eventTopic.Matches(sub.pattern) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].config.priority != out[j].config.priority {
			return out[i].config.priority < out[j].config.priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (b *bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
}

// deliver runs a single handler, converting panics into ErrHandlerPanic.
func (b *bus) deliver(ctx context.Context, sub *subscription, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Debug("handler panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return sub.handler.Handle(ctx, event)
}

// SubscribePayload subscribes a handler that receives only the payload of
// Event[T] values. Events carrying another payload type are skipped.
func SubscribePayload[T any](b Bus, topicPattern topic.Topic, handler func(ctx context.Context, payload T) error, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	wrapped := HandlerFunc(func(ctx context.Context, event any) error {
		if e, ok := event.(Event[T]); ok {
			return handler(ctx, e.Payload)
		}
		return nil
	})
	return b.Subscribe(topicPattern, wrapped, opts...)
}
