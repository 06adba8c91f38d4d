package grouping

import "expensebook/internal/core"

// Engine owns the group collection of one list. It is not safe for
// concurrent use; the paging coordinator is its only writer.
type Engine struct {
	mode   Mode
	key    KeyFunc
	sort   core.SortKey
	groups []Group
}

// NewEngine creates an engine with the given grouping mode and member sort.
func NewEngine(mode Mode, sort core.SortKey) *Engine {
	if !sort.Valid() {
		sort = core.DefaultSort
	}
	return &Engine{mode: mode, key: mode.KeyFunc(), sort: sort}
}

// Apply folds one page into the collection.
func (e *Engine) Apply(page []core.Expense, isFirstPage bool) {
	e.groups = Fold(e.groups, page, e.key, e.sort, isFirstPage)
}

// Resort changes the member sort and re-sorts existing groups.
func (e *Engine) Resort(sort core.SortKey) {
	if !sort.Valid() || sort == e.sort {
		return
	}
	e.sort = sort
	Resort(e.groups, sort)
}

// SetMode changes the grouping mode. Existing groups are discarded because
// their keys no longer apply.
func (e *Engine) SetMode(mode Mode) {
	if mode == e.mode {
		return
	}
	e.mode = mode
	e.key = mode.KeyFunc()
	e.groups = nil
}

// Mode returns the grouping mode.
func (e *Engine) Mode() Mode { return e.mode }

// Sort returns the member sort.
func (e *Engine) Sort() core.SortKey { return e.sort }

// Groups returns a copy of the current collection.
func (e *Engine) Groups() []Group {
	return Clone(e.groups)
}

// Len returns the number of groups.
func (e *Engine) Len() int { return len(e.groups) }

// Count returns the number of expenses across all groups.
func (e *Engine) Count() int { return Count(e.groups) }

// Reset drops every group.
func (e *Engine) Reset() { e.groups = nil }
