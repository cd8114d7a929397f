// Package events implements the process-wide broadcast of authentication
// lifecycle events.
//
// A Broadcaster delivers events synchronously to whatever handlers are
// subscribed at publish time. Handlers subscribed later do not observe
// earlier events, and no payload is carried beyond the event tag itself.
// Consumers such as a view router subscribe to the tags they care about and
// react to state transitions.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event is one of the closed set of lifecycle event tags published on
// authentication state transitions.
type Event string

const (
	// SignInSuccess fires after a credential established a new session.
	SignInSuccess Event = "sign-in:success"

	// SignInError fires when establishing a new session failed.
	SignInError Event = "sign-in:error"

	// SignOutSuccess fires after the current session was cleared.
	SignOutSuccess Event = "sign-out:success"

	// SignOutError fires when clearing the current session failed.
	SignOutError Event = "sign-out:error"

	// LinkSuccess fires after a credential was linked to the existing session.
	LinkSuccess Event = "link:success"

	// LinkError fires when linking a credential to the existing session failed.
	LinkError Event = "link:error"
)

// Handler is a function invoked with the event it was subscribed to.
type Handler func(Event)

type subscription struct {
	token string
	fn    Handler
}

// Broadcaster is a publish/subscribe registry keyed by Event.
//
// Delivery is synchronous on the publishing goroutine: Publish invokes every
// handler registered for the tag, in subscription order, before returning.
// Repeated publishes of the same tag therefore reach each handler in FIFO
// order. No ordering is defined across different tags.
//
// The zero value is not usable; create instances with NewBroadcaster.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[Event][]subscription
	tokens map[string]Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[Event][]subscription),
		tokens: make(map[string]Event),
	}
}

// Subscribe registers a handler for the given event tag and returns an opaque
// token that can be passed to Unsubscribe.
func (b *Broadcaster) Subscribe(event Event, fn Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := uuid.NewString()
	b.subs[event] = append(b.subs[event], subscription{token: token, fn: fn})
	b.tokens[token] = event
	return token
}

// Unsubscribe removes the subscription identified by token. Unknown tokens
// are ignored.
func (b *Broadcaster) Unsubscribe(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	event, ok := b.tokens[token]
	if !ok {
		return
	}
	delete(b.tokens, token)

	subs := b.subs[event]
	for i, s := range subs {
		if s.token == token {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Publish delivers the event to all currently registered handlers for its
// tag. Delivery is fire-and-forget: handler return values and panics are the
// subscriber's own concern, and there is no redelivery.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	subs := b.subs[event]
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(event)
	}
}
