package auth

import (
	"sync"

	"github.com/medtrack/clinic-service/internal/users"
)

// Watcher fans out session changes to subscribers. A login notifies
// with the resolved user; a logout notifies with nil.
type Watcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*users.User)
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[int]func(*users.User))}
}

// Subscribe registers a callback and returns a function that removes it.
func (w *Watcher) Subscribe(fn func(*users.User)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Notify invokes every subscriber with the current session user. A nil
// watcher is a no-op.
func (w *Watcher) Notify(user *users.User) {
	if w == nil {
		return
	}
	w.mu.Lock()
	fns := make([]func(*users.User), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
