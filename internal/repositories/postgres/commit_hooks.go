package postgres

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type commitHooksKey struct{}

// commitHooks collects work that must only happen once a transaction has
// committed, such as dropping cache entries readers could otherwise refill
// with pre-commit rows
type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func withCommitHooks(ctx context.Context) (context.Context, *commitHooks) {
	hooks := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

func (h *commitHooks) add(fn func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// afterCommit defers fn until the transaction carried by tx commits. Outside
// a WithTransaction block fn runs immediately.
func afterCommit(tx *gorm.DB, fn func()) {
	if tx != nil && tx.Statement != nil && tx.Statement.Context != nil {
		if hooks, ok := tx.Statement.Context.Value(commitHooksKey{}).(*commitHooks); ok {
			hooks.add(fn)
			return
		}
	}
	fn()
}
