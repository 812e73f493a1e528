package marks

import (
	"context"
	"errors"
	"slices"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/event/events"
)

// wireAutocmds replaces the lifecycle subscriptions with one per event name
// the configuration asks for.
func (m *Marks) wireAutocmds() error {
	m.mu.Lock()
	old := m.subs
	m.subs = nil
	names := autocmdNames(m.cfg)
	m.mu.Unlock()

	for _, s := range old {
		_ = m.bus.Unsubscribe(s)
	}

	var subs []event.Subscription
	for _, name := range names {
		t, ok := events.LifecycleTopics[name]
		if !ok {
			m.log.Warn("no host event for autocmd %q", name)
			continue
		}
		sub, err := m.bus.SubscribeFunc(t, func(_ context.Context, evt any) error {
			return m.runHooks(name, evt)
		})
		if err != nil {
			for _, s := range subs {
				_ = m.bus.Unsubscribe(s)
			}
			return err
		}
		subs = append(subs, sub)
	}

	m.mu.Lock()
	m.subs = subs
	m.mu.Unlock()
	return nil
}

// runHooks calls the hook for name on every loaded list whose config lists
// name in its autocmds.
func (m *Marks) runHooks(name string, evt any) error {
	arg, ok := hookArg(name, evt)
	if !ok {
		return nil
	}

	var errs []error
	for _, list := range m.Loaded() {
		lc := config.ListConfigOf(list)
		if lc == nil || !slices.Contains(lc.Autocmds, name) {
			continue
		}
		hook, ok := lc.Hook(name)
		if !ok {
			continue
		}
		if err := hook(arg, list); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// hookArg extracts the hook argument from a lifecycle event.
func hookArg(name string, evt any) (config.HookArg, bool) {
	switch e := evt.(type) {
	case event.Event[events.BufferLeave]:
		return config.HookArg{Event: name, Buffer: e.Payload.Buffer, Name: e.Payload.Name}, true
	default:
		return config.HookArg{}, false
	}
}
