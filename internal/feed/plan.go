// Package feed plans and assembles pages of the post feed.
//
// A Plan is a declarative description of one page: which posts, in what
// order, how many, and where to start. It says nothing about storage; the
// repository layer translates it into a query.
package feed

const (
	// DefaultPageSize is used when the caller does not ask for a size.
	DefaultPageSize = 10

	// MaxPageSize caps a single page.
	MaxPageSize = 50
)

// Plan fields and operators.
const (
	FieldAuthorUID = "authorUID"
	FieldCreatedAt = "createdAt"

	OpEquals = "=="
)

// Filter restricts the posts a plan returns.
type Filter struct {
	Field string
	Op    string
	Value string
}

// Order is the sort of a plan. Ties are broken by post id in the same direction.
type Order struct {
	Field string
	Desc  bool
}

// Plan describes one page of the feed.
type Plan struct {
	Filters    []Filter
	OrderBy    Order
	Limit      int
	StartAfter *Cursor
}

// NewPlan builds the plan for "all posts" (empty authorUID) or for one
// author's posts, newest first, starting after the given cursor.
func NewPlan(authorUID string, pageSize int, after *Cursor) Plan {
	p := Plan{
		OrderBy: Order{Field: FieldCreatedAt, Desc: true},
		Limit:   ClampPageSize(pageSize),
	}
	if authorUID != "" {
		p.Filters = []Filter{{Field: FieldAuthorUID, Op: OpEquals, Value: authorUID}}
	}
	if after != nil {
		c := *after
		p.StartAfter = &c
	}
	return p
}

// ClampPageSize maps a requested size into [1, MaxPageSize].
func ClampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	if pageSize > MaxPageSize {
		return MaxPageSize
	}
	return pageSize
}

// After returns a copy of the plan that starts after c.
func (p Plan) After(c Cursor) Plan {
	next := p
	next.Filters = append([]Filter(nil), p.Filters...)
	next.StartAfter = &c
	return next
}

// FirstPage returns a copy of the plan without a cursor.
func (p Plan) FirstPage() Plan {
	first := p
	first.Filters = append([]Filter(nil), p.Filters...)
	first.StartAfter = nil
	return first
}

// AuthorUID returns the author filter, or "" for the global feed.
func (p Plan) AuthorUID() string {
	for _, f := range p.Filters {
		if f.Field == FieldAuthorUID && f.Op == OpEquals {
			return f.Value
		}
	}
	return ""
}
