// Package paging coordinates first-page reloads and incremental page loads
// of an expense list.
package paging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"expensebook/internal/core"
	"expensebook/internal/grouping"
)

// State is the in-flight state of a list.
type State int

const (
	Idle State = iota
	Loading
	LoadingMore
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case LoadingMore:
		return "loading_more"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Op identifies the coordinator call that completed.
type Op string

const (
	OpReload   Op = "reload"
	OpLoadMore Op = "load_more"
)

// Outcome tells how a call ended.
type Outcome int

const (
	// OutcomeLoaded means a page was fetched and folded.
	OutcomeLoaded Outcome = iota
	// OutcomeSkipped means the call was a no-op: a load was already in
	// flight, the last page had been reached, or nothing was loaded yet.
	OutcomeSkipped
	// OutcomeStale means a newer reload superseded the call and its
	// response was dropped.
	OutcomeStale
	// OutcomeFailed means the fetch returned an error.
	OutcomeFailed
)

// String implements fmt.Stringer
func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Fetcher loads one page of expenses.
type Fetcher interface {
	FetchExpensePage(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error)

// FetchExpensePage implements Fetcher
func (f FetcherFunc) FetchExpensePage(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error) {
	return f(ctx, c)
}

// Result describes a completed Reload or LoadMore.
type Result struct {
	Op      Op
	Outcome Outcome
	Err     error
	Page    int
	Last    bool
}

// Snapshot is a consistent copy of the coordinator state.
type Snapshot struct {
	Page     int
	Last     bool
	State    State
	Session  uint64
	Loaded   bool
	Criteria core.ExpenseCriteria
	Mode     grouping.Mode
	Groups   []grouping.Group
}

// Options tune a Coordinator.
type Options struct {
	// OnComplete is invoked after every Reload and LoadMore, including
	// no-ops, dropped responses and failures. It runs on the calling
	// goroutine without the coordinator lock held.
	OnComplete func(Result)
}

// Coordinator tracks the page index and last-page flag of one list and
// folds fetched pages into its grouping engine.
//
// The lock is held only across state transitions, never across a fetch.
// Every Reload starts a new session; responses belonging to an older
// session are dropped.
type Coordinator struct {
	fetcher Fetcher
	opts    Options

	mu      sync.Mutex
	engine  *grouping.Engine
	pending core.ExpenseCriteria
	mode    grouping.Mode
	active  core.ExpenseCriteria
	page    int
	last    bool
	loaded  bool
	state   State
	session uint64
	cancel  context.CancelFunc
}

// New creates a coordinator that fetches with f and groups by mode.
func New(f Fetcher, initial core.ExpenseCriteria, mode grouping.Mode, opts Options) *Coordinator {
	if !initial.Sort.Valid() {
		initial.Sort = core.DefaultSort
	}
	if initial.Size <= 0 {
		initial.Size = core.DefaultPageSize
	}
	initial.Page = 0
	return &Coordinator{
		fetcher: f,
		opts:    opts,
		engine:  grouping.NewEngine(mode, initial.Sort),
		pending: initial,
		active:  initial,
		mode:    mode,
	}
}

// SetCriteria replaces the criteria used by the next Reload. The page
// field is ignored. Loaded pages keep the criteria they were fetched with
// until that reload succeeds.
func (c *Coordinator) SetCriteria(crit core.ExpenseCriteria) {
	if !crit.Sort.Valid() {
		crit.Sort = core.DefaultSort
	}
	c.mu.Lock()
	c.pending = crit
	c.mu.Unlock()
}

// SetMode changes the grouping mode used by the next Reload.
func (c *Coordinator) SetMode(mode grouping.Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// Reload fetches page 0 with the latest criteria and replaces every group.
// It is valid in any state; a load already in flight is cancelled and its
// response dropped. On failure the previously loaded groups are kept.
func (c *Coordinator) Reload(ctx context.Context) Result {
	c.mu.Lock()
	c.session++
	token := c.session
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Loading
	crit := c.pending
	crit.Page = 0
	mode := c.mode
	c.mu.Unlock()
	defer cancel()

	slog.DebugContext(ctx, "Reloading expense list", "session", token, "sort", crit.Sort.String())
	page, err := c.fetcher.FetchExpensePage(ctx, crit)

	c.mu.Lock()
	if token != c.session {
		c.mu.Unlock()
		slog.DebugContext(ctx, "Dropped stale reload response", "session", token)
		return c.complete(Result{Op: OpReload, Outcome: OutcomeStale})
	}
	c.state = Idle
	c.cancel = nil
	if err != nil {
		res := Result{Op: OpReload, Outcome: OutcomeFailed, Err: err, Page: c.page, Last: c.last}
		c.mu.Unlock()
		slog.WarnContext(ctx, "Failed to reload expense list", "session", token, "error", err)
		return c.complete(res)
	}
	c.engine.SetMode(mode)
	c.engine.Resort(crit.Sort)
	c.engine.Apply(page.Content, true)
	c.active = crit
	c.page = 0
	c.last = page.Last
	c.loaded = true
	res := Result{Op: OpReload, Outcome: OutcomeLoaded, Page: c.page, Last: c.last}
	c.mu.Unlock()

	slog.DebugContext(ctx, "Reloaded expense list", "session", token, "records", len(page.Content), "last", page.Last)
	return c.complete(res)
}

// LoadMore fetches the page after the last loaded one and folds it into the
// existing groups. It is a no-op while a load is in flight, once the last
// page has been reached, or before the first successful Reload. A failed
// fetch leaves the page index unchanged so the same page is retried next.
func (c *Coordinator) LoadMore(ctx context.Context) Result {
	c.mu.Lock()
	if c.state != Idle || c.last || !c.loaded {
		res := Result{Op: OpLoadMore, Outcome: OutcomeSkipped, Page: c.page, Last: c.last}
		c.mu.Unlock()
		return c.complete(res)
	}
	token := c.session
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = LoadingMore
	crit := c.active
	crit.Page = c.page + 1
	c.mu.Unlock()
	defer cancel()

	slog.DebugContext(ctx, "Loading next expense page", "session", token, "page", crit.Page)
	page, err := c.fetcher.FetchExpensePage(ctx, crit)

	c.mu.Lock()
	if token != c.session {
		c.mu.Unlock()
		slog.DebugContext(ctx, "Dropped stale page response", "session", token, "page", crit.Page)
		return c.complete(Result{Op: OpLoadMore, Outcome: OutcomeStale})
	}
	c.state = Idle
	c.cancel = nil
	if err != nil {
		res := Result{Op: OpLoadMore, Outcome: OutcomeFailed, Err: err, Page: c.page, Last: c.last}
		c.mu.Unlock()
		slog.WarnContext(ctx, "Failed to load expense page", "session", token, "page", crit.Page, "error", err)
		return c.complete(res)
	}
	c.engine.Apply(page.Content, false)
	c.page = crit.Page
	c.last = page.Last
	res := Result{Op: OpLoadMore, Outcome: OutcomeLoaded, Page: c.page, Last: c.last}
	c.mu.Unlock()

	return c.complete(res)
}

// Snapshot returns a copy of the current state including the groups.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	crit := c.active
	crit.CategoryIDs = append([]string(nil), crit.CategoryIDs...)
	return Snapshot{
		Page:     c.page,
		Last:     c.last,
		State:    c.state,
		Session:  c.session,
		Loaded:   c.loaded,
		Criteria: crit,
		Mode:     c.engine.Mode(),
		Groups:   c.engine.Groups(),
	}
}

// Groups returns a copy of the loaded groups.
func (c *Coordinator) Groups() []grouping.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Groups()
}

// State returns the in-flight state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels any fetch in flight.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) complete(res Result) Result {
	if c.opts.OnComplete != nil {
		c.opts.OnComplete(res)
	}
	return res
}
