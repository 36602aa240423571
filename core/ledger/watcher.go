package ledger

import (
	"sync"

	"go.dedis.ch/lottery"
)

// observer is the interface to implement to watch the events of the ledger.
type observer interface {
	NotifyCallback(evt Event)
}

// watcher keeps a set of observers and notifies them of new events.
type watcher struct {
	sync.RWMutex

	observers map[observer]struct{}
}

func newWatcher() *watcher {
	return &watcher{
		observers: make(map[observer]struct{}),
	}
}

// Add adds the observer to the list of observers that will be notified of new
// events.
func (w *watcher) Add(obs observer) {
	w.Lock()
	w.observers[obs] = struct{}{}
	w.Unlock()
}

// Remove removes the observer from the list thus stopping it from receiving
// new events.
func (w *watcher) Remove(obs observer) {
	w.Lock()
	delete(w.observers, obs)
	w.Unlock()
}

// Notify notifies the whole list of observers one after each other.
func (w *watcher) Notify(evt Event) {
	w.RLock()
	defer w.RUnlock()

	for obs := range w.observers {
		obs.NotifyCallback(evt)
	}
}

// Len returns the number of observers.
func (w *watcher) Len() int {
	w.RLock()
	defer w.RUnlock()

	return len(w.observers)
}

// chanObserver forwards the events to a channel. An event is dropped when the
// reader is too slow so that the ledger never blocks on a watcher.
type chanObserver struct {
	ch chan Event
}

func (obs chanObserver) NotifyCallback(evt Event) {
	select {
	case obs.ch <- evt:
	default:
		lottery.Logger.Warn().
			Str("event", evt.Name).
			Uint64("height", evt.Height).
			Msg("watcher is full, event dropped")
	}
}
