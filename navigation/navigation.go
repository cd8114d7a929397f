// Package navigation implements the view routing consumer of the lifecycle
// event broadcast.
//
// A Router owns which of the application's root views is active and swaps it
// in response to authentication state transitions: a successful sign-in shows
// the main view, a successful sign-out returns to the sign-in view. The actual
// rendering is delegated to a caller-supplied callback; this package only
// decides what should be shown.
package navigation

import (
	"sync"

	"github.com/monibu1548/JKFirebaseSDK/events"
)

// View identifies one of the application's root views.
type View int

const (
	// ViewSignIn is the unauthenticated root view.
	ViewSignIn View = iota

	// ViewMain is the authenticated root view.
	ViewMain
)

// String returns a human-readable view name.
func (v View) String() string {
	switch v {
	case ViewSignIn:
		return "sign-in"
	case ViewMain:
		return "main"
	default:
		return "unknown"
	}
}

// Router swaps the active root view in response to lifecycle events.
type Router struct {
	broadcaster *events.Broadcaster
	show        func(View)

	mu      sync.Mutex
	current View
	tokens  []string
}

// NewRouter creates a Router subscribed to the broadcaster and shows the
// initial view: ViewMain when signedIn, ViewSignIn otherwise.
//
// The show callback is invoked synchronously from the goroutine publishing
// the event, once per view transition, and also once from NewRouter itself
// for the initial view. It must not block.
func NewRouter(broadcaster *events.Broadcaster, signedIn bool, show func(View)) *Router {
	r := &Router{
		broadcaster: broadcaster,
		show:        show,
	}

	initial := ViewSignIn
	if signedIn {
		initial = ViewMain
	}
	r.current = initial
	show(initial)

	r.tokens = append(r.tokens,
		broadcaster.Subscribe(events.SignInSuccess, func(events.Event) {
			r.swap(ViewMain)
		}),
		broadcaster.Subscribe(events.SignOutSuccess, func(events.Event) {
			r.swap(ViewSignIn)
		}),
	)
	return r
}

// Current returns the view the router last showed.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Close unsubscribes the router from the broadcaster. Further lifecycle
// events no longer affect the active view.
func (r *Router) Close() {
	for _, token := range r.tokens {
		r.broadcaster.Unsubscribe(token)
	}
	r.tokens = nil
}

func (r *Router) swap(v View) {
	r.mu.Lock()
	if r.current == v {
		r.mu.Unlock()
		return
	}
	r.current = v
	r.mu.Unlock()

	r.show(v)
}
