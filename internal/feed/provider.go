package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"inkwell/internal/category"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"golang.org/x/sync/errgroup"
)

// State is the provider lifecycle.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of provider state. Callers must not modify
// Blogs or Profile.
type Snapshot struct {
	State         State
	Blogs         []models.Blog
	Profile       *models.User
	Authenticated bool
	// Version increases with every change.
	Version uint64

	pending int
}

// Options configures a Provider.
type Options struct {
	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Provider is the single source of truth for client state.
type Provider struct {
	api     API
	timeout time.Duration
	log     *slog.Logger

	snap atomic.Pointer[Snapshot]

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int

	// notifyMu serializes delivery; notified is the last Version sent.
	notifyMu sync.Mutex
	notified uint64
}

// NewProvider returns a provider in the Uninitialized state.
func NewProvider(api API, opts Options) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = middleware.Logger
	}
	p := &Provider{
		api:     api,
		timeout: opts.Timeout,
		log:     opts.Logger,
		subs:    make(map[int]func(Snapshot)),
	}
	p.snap.Store(&Snapshot{State: Uninitialized, Blogs: []models.Blog{}})
	return p
}

// Snapshot returns the state as of the most recent completed change.
func (p *Provider) Snapshot() Snapshot {
	return *p.snap.Load()
}

// Category returns the cached blogs in the named category, in feed order.
func (p *Provider) Category(name string) []models.Blog {
	return category.Filter(p.Snapshot().Blogs, name)
}

// Subscribe registers fn to receive the snapshot after completed fetches.
// Deliveries are serial and in increasing Version order; a snapshot already
// superseded by a delivered one is skipped. fn must not call Start, Refresh
// or CheckAuth synchronously. The returned func removes the subscription.
func (p *Provider) Subscribe(fn func(Snapshot)) func() {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

// Start loads the profile and the blog collection concurrently and returns
// once both have completed. Failures are converted into state, so the group
// never carries an error; it only joins the two fetches under ctx.
func (p *Provider) Start(ctx context.Context) {
	p.begin(2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.loadProfile(gctx)
		return nil
	})
	g.Go(func() error {
		p.loadBlogs(gctx)
		return nil
	})
	_ = g.Wait()
}

// Refresh re-fetches the blog collection and replaces it wholesale.
func (p *Provider) Refresh(ctx context.Context) {
	p.begin(1)
	p.loadBlogs(ctx)
}

// CheckAuth re-fetches the profile only.
func (p *Provider) CheckAuth(ctx context.Context) {
	p.begin(1)
	p.loadProfile(ctx)
}

func (p *Provider) loadProfile(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	user, err := p.api.Profile(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			p.log.WarnContext(ctx, "profile fetch failed", slog.String("error", err.Error()))
		}
		p.api.ClearCredential()
		user = nil
	}
	p.finish(func(s *Snapshot) {
		s.Profile = user
		s.Authenticated = user != nil
	})
}

func (p *Provider) loadBlogs(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	blogs, err := p.api.Blogs(ctx)
	if err != nil {
		p.log.WarnContext(ctx, "blog fetch failed", slog.String("error", err.Error()))
		blogs = []models.Blog{}
	}
	p.finish(func(s *Snapshot) {
		s.Blogs = blogs
	})
}

// begin records n fetches in flight and enters Loading.
func (p *Provider) begin(n int) {
	p.update(func(s *Snapshot) {
		s.pending += n
		s.State = Loading
	})
}

// finish applies one completed fetch and enters Ready when none remain.
func (p *Provider) finish(apply func(*Snapshot)) {
	next := p.update(func(s *Snapshot) {
		apply(s)
		if s.pending > 0 {
			s.pending--
		}
		if s.pending == 0 {
			s.State = Ready
		}
	})
	p.notify(next)
}

// update swaps in a modified copy of the current snapshot.
func (p *Provider) update(fn func(*Snapshot)) Snapshot {
	for {
		cur := p.snap.Load()
		next := *cur
		fn(&next)
		next.Version = cur.Version + 1
		if p.snap.CompareAndSwap(cur, &next) {
			return next
		}
	}
}

func (p *Provider) notify(s Snapshot) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if s.Version <= p.notified {
		return
	}
	p.notified = s.Version

	p.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
