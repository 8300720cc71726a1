package query

import (
	"strings"

	"pgexpense/internal/core"
)

// Clause is one conjunctive term of a filter predicate.
type Clause interface {
	// Column is the filtered column.
	Column() string
	// Operator compares the column with the bound value.
	Operator() string
	// Arg is the bound value.
	Arg() any
}

// StartDate keeps expenses dated on or after the given date.
type StartDate struct{ Date core.Date }

func (StartDate) Column() string   { return "date" }
func (StartDate) Operator() string { return ">=" }
func (c StartDate) Arg() any       { return c.Date }

// EndDate keeps expenses dated on or before the given date.
type EndDate struct{ Date core.Date }

func (EndDate) Column() string   { return "date" }
func (EndDate) Operator() string { return "<=" }
func (c EndDate) Arg() any       { return c.Date }

// CategoryIs keeps expenses with exactly the given category.
type CategoryIs struct{ Name string }

func (CategoryIs) Column() string   { return "category" }
func (CategoryIs) Operator() string { return "=" }
func (c CategoryIs) Arg() any       { return c.Name }

// Predicate is an ordered conjunction of clauses.
type Predicate struct {
	clauses []Clause
}

// NewPredicate builds a predicate from explicit clauses.
func NewPredicate(clauses ...Clause) Predicate {
	return Predicate{clauses: clauses}
}

// FromFilter translates a filter into clauses in the fixed order
// start date, end date, category. Absent filters contribute nothing.
func FromFilter(f core.Filter) Predicate {
	var clauses []Clause
	if f.StartDate != nil {
		clauses = append(clauses, StartDate{Date: *f.StartDate})
	}
	if f.EndDate != nil {
		clauses = append(clauses, EndDate{Date: *f.EndDate})
	}
	if f.Category != "" {
		clauses = append(clauses, CategoryIs{Name: f.Category})
	}
	return Predicate{clauses: clauses}
}

// Clauses returns the predicate terms in render order.
func (p Predicate) Clauses() []Clause {
	return p.clauses
}

// Render produces a WHERE clause starting from an always-true base and the
// positional arguments matching its placeholders.
func (p Predicate) Render(d Dialect) (string, []any) {
	var sb strings.Builder
	sb.WriteString("WHERE 1=1")
	args := make([]any, 0, len(p.clauses))
	for _, c := range p.clauses {
		args = append(args, c.Arg())
		sb.WriteString(" AND ")
		sb.WriteString(c.Column())
		sb.WriteString(" ")
		sb.WriteString(c.Operator())
		sb.WriteString(" ")
		sb.WriteString(d.Placeholder(len(args)))
	}
	return sb.String(), args
}
