// Package listview turns list UI events into criteria changes, debounced
// reloads and page loads.
package listview

import (
	"context"
	"log/slog"
	"time"

	"expensebook/internal/core"
	"expensebook/internal/criteria"
	"expensebook/internal/debounce"
	"expensebook/internal/grouping"
	"expensebook/internal/notify"
	"expensebook/internal/paging"
)

// AutoMode derives a grouping mode from the sort key: date sorts group by
// day, everything else is ungrouped. Callers that configure the mode
// explicitly do not need it.
func AutoMode(sort core.SortKey) grouping.Mode {
	if sort.Field == core.SortByDate {
		return grouping.ByDay
	}
	return grouping.ByIdentity
}

// Options configure a Controller.
type Options struct {
	PageSize int
	Debounce time.Duration
	Mode     grouping.Mode
	Notifier notify.Notifier
	Now      func() time.Time

	// FollowSort switches the grouping mode with AutoMode on every sort change.
	FollowSort bool

	// OnUpdate receives the list state after every reload or page load.
	OnUpdate func(paging.Result, paging.Snapshot)
}

// Controller owns the criteria builder and coordinator of one list.
// Event methods are meant to be called from a single goroutine.
type Controller struct {
	ctx      context.Context
	builder  *criteria.Builder
	coord    *paging.Coordinator
	debounce *debounce.Debouncer[struct{}]
	notifier notify.Notifier
	opts     Options
}

// New creates a controller fetching through f. Debounced reloads run under
// ctx; cancelling it stops them.
func New(ctx context.Context, f paging.Fetcher, opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		ctx:      ctx,
		builder:  criteria.NewBuilder(opts.PageSize),
		notifier: opts.Notifier,
		opts:     opts,
	}
	mode := opts.Mode
	if opts.FollowSort {
		mode = AutoMode(c.builder.Sort())
	}
	c.coord = paging.New(f, c.builder.Build(0), mode, paging.Options{OnComplete: c.completed})
	c.debounce = debounce.New(opts.Debounce, func(struct{}) { c.coord.Reload(c.ctx) })
	return c
}

func (c *Controller) completed(res paging.Result) {
	if res.Outcome == paging.OutcomeFailed {
		msg := "Could not load expenses"
		if res.Op == paging.OpLoadMore {
			msg = "Could not load more expenses"
		}
		c.notifier.Warn(msg, res.Err)
	}
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(res, c.coord.Snapshot())
	}
}

func (c *Controller) schedule() {
	c.coord.SetCriteria(c.builder.Build(0))
	c.debounce.Push(struct{}{})
}

// SearchChanged updates the name filter.
func (c *Controller) SearchChanged(text string) {
	if c.builder.SetName(text) {
		c.schedule()
	}
}

// SortChanged switches the sort key.
func (c *Controller) SortChanged(sort core.SortKey) error {
	changed, err := c.builder.SetSort(sort)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if c.opts.FollowSort {
		c.coord.SetMode(AutoMode(sort))
	}
	// Loaded groups keep their order until the reload succeeds.
	c.schedule()
	return nil
}

// CategoriesChanged replaces the category filter.
func (c *Controller) CategoriesChanged(ids []string) {
	if c.builder.SetCategoryIDs(ids) {
		c.schedule()
	}
}

// PeriodChanged sets the month filter; a zero period clears it.
func (c *Controller) PeriodChanged(p core.Period) {
	if c.builder.SetPeriod(p) {
		c.schedule()
	}
}

// PeriodShifted moves the month cursor by n months.
func (c *Controller) PeriodShifted(n int) {
	if c.builder.ShiftPeriod(n, c.opts.Now()) {
		c.schedule()
	}
}

// PeriodCleared removes the month filter.
func (c *Controller) PeriodCleared() {
	if c.builder.ClearPeriod() {
		c.schedule()
	}
}

// ModeChanged sets an explicit grouping mode and reloads.
func (c *Controller) ModeChanged(mode grouping.Mode) {
	c.coord.SetMode(mode)
	c.schedule()
}

// ScrolledToBottom loads the next page.
func (c *Controller) ScrolledToBottom(ctx context.Context) paging.Result {
	return c.coord.LoadMore(ctx)
}

// PulledToRefresh reloads immediately, dropping a pending debounced reload.
func (c *Controller) PulledToRefresh(ctx context.Context) paging.Result {
	c.debounce.Cancel()
	c.coord.SetCriteria(c.builder.Build(0))
	return c.coord.Reload(ctx)
}

// Refresh reloads the list and reports a failed fetch as an error.
func (c *Controller) Refresh(ctx context.Context) error {
	res := c.PulledToRefresh(ctx)
	if res.Outcome == paging.OutcomeFailed {
		return res.Err
	}
	return nil
}

// Flush runs a pending debounced reload now. It reports whether one was pending.
func (c *Controller) Flush() bool {
	return c.debounce.Flush()
}

// Criteria returns the criteria of the next reload.
func (c *Controller) Criteria() core.ExpenseCriteria {
	return c.builder.Build(0)
}

// Snapshot returns the current list state.
func (c *Controller) Snapshot() paging.Snapshot {
	return c.coord.Snapshot()
}

// Close stops debounced reloads and cancels a fetch in flight.
func (c *Controller) Close() {
	c.debounce.Stop()
	c.coord.Close()
	slog.Debug("List controller closed")
}
