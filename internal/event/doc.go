// Package event provides the in-process event bus for keymarks.
//
// Components publish typed events on hierarchical topics and subscribe with
// wildcard patterns:
//
//	marks.navigate       - a mark was selected and its buffer became current
//	host.buffer.leave    - the host left a buffer (lifecycle hook source)
//	marks.**             - every marks event
//
// Delivery is synchronous and serial. Handlers run in the publisher's
// goroutine, ordered by priority and then by subscription order, which keeps
// in-place mutation of mark positions free of data races as long as the host
// delivers its events from a single goroutine.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	sub, err := event.SubscribePayload(bus, events.TopicNavigate,
//	    func(ctx context.Context, nav events.Navigate) error {
//	        fmt.Println("now at", nav.Buffer)
//	        return nil
//	    })
//	defer bus.Unsubscribe(sub)
//
//	bus.Publish(ctx, event.NewEvent(events.TopicNavigate, events.Navigate{Buffer: id}, "marks"))
//
// # Subpackages
//
//   - events: Strongly-typed event payload definitions
//   - topic: Topic type and wildcard matching
package event
