package composer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectcomments/internal/session"
)

// Registry keeps the live composers of this process.
type Registry struct {
	mu        sync.RWMutex
	composers map[string]*Composer

	deps    Deps
	lister  CommentLister
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRegistry(deps Deps, lister CommentLister, idleTTL time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		composers: make(map[string]*Composer),
		deps:      deps,
		lister:    lister,
		idleTTL:   idleTTL,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Create registers a new composer for owner. Its parent view is the comment
// list of the composer's subject.
func (r *Registry) Create(owner session.Context, opts Options) *Composer {
	c := New(owner, opts, r.deps)
	if opts.Parent == nil && r.lister != nil {
		c.SetParent(NewCommentListView(c, r.lister, r.deps.Emitter))
	}

	r.mu.Lock()
	r.composers[c.ID()] = c
	r.mu.Unlock()

	r.logger.Debug("composer created",
		zap.String("composer_id", c.ID()),
		zap.String("user", owner.Username),
		zap.String("type", opts.SubjectType))
	return c
}

// Get returns the composer if sess owns it.
func (r *Registry) Get(id string, sess session.Context) (*Composer, error) {
	r.mu.RLock()
	c, ok := r.composers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrComposerNotFound
	}
	owner := c.Owner()
	if owner.Username != sess.Username || owner.AccountID != sess.AccountID {
		return nil, ErrNotOwner
	}
	return c, nil
}

// Remove discards the composer and forgets it.
func (r *Registry) Remove(id string, sess session.Context) error {
	c, err := r.Get(id, sess)
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.composers, id)
	r.mu.Unlock()
	c.Discard()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.composers)
}

// Sweep discards composers idle for longer than the idle TTL and returns
// how many were dropped.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	var expired []*Composer
	r.mu.Lock()
	for id, c := range r.composers {
		if c.IdleSince().Before(cutoff) {
			expired = append(expired, c)
			delete(r.composers, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Discard()
	}
	if len(expired) > 0 {
		r.logger.Info("idle composers discarded", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}
