package core

// Page is one server-returned batch of records.
type Page[T any] struct {
	Content       []T  `json:"content"`
	Last          bool `json:"last"`
	TotalElements int  `json:"totalElements"`
}

// Criteria sent with a fetch. Zero-value filter fields mean "no filter".
type (
	ExpenseCriteria struct {
		Page        int
		Size        int
		Sort        SortKey
		Name        string
		CategoryIDs []string
		YearMonth   Period
	}

	CategoryCriteria struct {
		Page int
		Size int
		Sort SortKey
		Name string
	}

	// AllCategoryCriteria selects the unpaged category list.
	AllCategoryCriteria struct {
		Sort SortKey
		Name string
	}

	// AllExpenseCriteria selects the unpaged expense list.
	AllExpenseCriteria struct {
		Sort SortKey
		Name string
	}
)

// DefaultPageSize is used when a criteria value has no size.
const DefaultPageSize = 20

// MaxPageSize bounds the page size a server accepts.
const MaxPageSize = 200

// Offset returns the index of the first record of the page.
func (c ExpenseCriteria) Offset() int {
	return c.Page * c.Size
}

// Offset returns the index of the first record of the page.
func (c CategoryCriteria) Offset() int {
	return c.Page * c.Size
}

// NewPage builds a page for the given slice of a result set.
func NewPage[T any](content []T, page, size, total int) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Last:          (page+1)*size >= total,
		TotalElements: total,
	}
}
