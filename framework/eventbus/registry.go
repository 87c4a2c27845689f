package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"eventcore/framework/core"

	"golang.org/x/sync/singleflight"
)

// registry indexes subscribers by the concrete or interface event type
// they registered for, and memoizes the set of registered types a given
// concrete event type satisfies (its own type, every interface type it
// implements, and Any, in that order).
type registry struct {
	mu                     sync.RWMutex
	subscribersByType      map[reflect.Type][]*Subscriber
	interfaceTypes         []reflect.Type
	flattenCache           atomic.Pointer[sync.Map]
	flattenGroup           singleflight.Group
	maxSubscribersPerEvent int
}

func newRegistry(maxSubscribersPerEvent int) *registry {
	r := &registry{
		subscribersByType:      make(map[reflect.Type][]*Subscriber),
		maxSubscribersPerEvent: maxSubscribersPerEvent,
	}
	r.flattenCache.Store(new(sync.Map))
	return r
}

func (r *registry) register(group *HandlerGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.subscribersByType[group.eventType]
	for _, s := range existing {
		if s.group.listenerKey == group.listenerKey {
			return core.NewError(core.ErrRegistrationFailed, fmt.Sprintf("listener already registered for event type %s", group.eventType))
		}
	}
	if r.maxSubscribersPerEvent > 0 && len(existing) >= r.maxSubscribersPerEvent {
		return core.NewError(core.ErrRegistrationFailed, fmt.Sprintf("max subscribers per event (%d) exceeded for event type %s", r.maxSubscribersPerEvent, group.eventType))
	}

	next := make([]*Subscriber, len(existing)+1)
	copy(next, existing)
	next[len(existing)] = &Subscriber{group: group}
	r.subscribersByType[group.eventType] = next

	if group.eventType.Kind() == reflect.Interface {
		isNew := true
		for _, t := range r.interfaceTypes {
			if t == group.eventType {
				isNew = false
				break
			}
		}
		if isNew {
			r.interfaceTypes = append(r.interfaceTypes, group.eventType)
			// A new supertype can change which registered types any
			// already-cached concrete type flattens to, so the memoized
			// lookups must be dropped.
			r.flattenCache.Store(new(sync.Map))
		}
	}
	return nil
}

func (r *registry) unregister(listener any) error {
	if listener == nil {
		return core.NewError(core.ErrRegistrationFailed, "listener must not be nil")
	}
	if !reflect.TypeOf(listener).Comparable() {
		return core.NewError(core.ErrRegistrationFailed, fmt.Sprintf("listener type %T is not comparable", listener))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for t, subs := range r.subscribersByType {
		filtered := make([]*Subscriber, 0, len(subs))
		for _, s := range subs {
			if s.group.listenerKey == listener {
				removed = true
				continue
			}
			filtered = append(filtered, s)
		}
		if len(filtered) != len(subs) {
			r.subscribersByType[t] = filtered
		}
	}
	if !removed {
		return core.NewError(core.ErrRegistrationFailed, "listener is not registered")
	}
	return nil
}

// lookup returns every subscriber interested in event, in the order:
// subscribers of the event's own concrete type, then subscribers of each
// interface type the event implements (in first-registration order),
// then subscribers of Any.
func (r *registry) lookup(event any) []*Subscriber {
	concrete := reflect.TypeOf(event)
	if concrete == nil {
		return nil
	}
	types := r.flattenTypes(concrete)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*Subscriber
	for _, t := range types {
		result = append(result, r.subscribersByType[t]...)
	}
	return result
}

func (r *registry) flattenTypes(concrete reflect.Type) []reflect.Type {
	cache := r.flattenCache.Load()
	if cached, ok := cache.Load(concrete); ok {
		return cached.([]reflect.Type)
	}

	v, _, _ := r.flattenGroup.Do(fmt.Sprintf("%p", concrete), func() (any, error) {
		r.mu.RLock()
		ifaces := make([]reflect.Type, len(r.interfaceTypes))
		copy(ifaces, r.interfaceTypes)
		r.mu.RUnlock()

		anyType := reflect.TypeOf((*Any)(nil)).Elem()
		types := make([]reflect.Type, 0, len(ifaces)+2)
		types = append(types, concrete)
		for _, it := range ifaces {
			if it == anyType {
				continue
			}
			if concrete.Implements(it) {
				types = append(types, it)
			}
		}
		types = append(types, anyType)

		cache.Store(concrete, types)
		return types, nil
	})
	return v.([]reflect.Type)
}
