// Package query renders parameterized SQL for the expenses table.
//
// Filters are expressed as typed clause values and rendered through a
// Dialect, so caller input only ever reaches the database as bound
// parameters.
package query

import (
	"fmt"
	"strconv"
)

// Dialect captures the syntax differences between supported engines.
type Dialect interface {
	// Name identifies the engine ("postgres" or "sqlite").
	Name() string
	// Placeholder renders the n-th (1-based) bound parameter.
	Placeholder(n int) string
	// MonthStart renders an expression truncating a date column to the
	// first day of its month, yielding a date-valued result.
	MonthStart(column string) string
	// MaxParams is the maximum number of bound parameters per statement.
	MaxParams() int
}

type postgres struct{}

func (postgres) Name() string                    { return "postgres" }
func (postgres) Placeholder(n int) string        { return "$" + strconv.Itoa(n) }
func (postgres) MonthStart(column string) string { return "DATE_TRUNC('month', " + column + ")::date" }
func (postgres) MaxParams() int                  { return 65535 }

type sqlite struct{}

func (sqlite) Name() string                    { return "sqlite" }
func (sqlite) Placeholder(int) string          { return "?" }
func (sqlite) MonthStart(column string) string { return "strftime('%Y-%m-01', " + column + ")" }
func (sqlite) MaxParams() int                  { return 32766 }

var (
	Postgres Dialect = postgres{}
	SQLite   Dialect = sqlite{}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", name)
	}
}
