package query

import (
	"fmt"
	"strings"
)

// OrderPolicy selects the secondary sort key of expense listings.
type OrderPolicy string

const (
	// OrderByCreatedAt breaks date ties by insertion time.
	OrderByCreatedAt OrderPolicy = "created_at"
	// OrderByID breaks date ties by generated id.
	OrderByID OrderPolicy = "id"
)

func (p OrderPolicy) String() string {
	return string(p)
}

// IsValid returns true if the policy is known
func (p OrderPolicy) IsValid() bool {
	switch p {
	case OrderByCreatedAt, OrderByID:
		return true
	default:
		return false
	}
}

// OrderBy renders the listing ORDER BY clause: most recent date first.
func (p OrderPolicy) OrderBy() string {
	if p == OrderByID {
		return "ORDER BY date DESC, id DESC"
	}
	return "ORDER BY date DESC, created_at DESC, id DESC"
}

// ExpenseColumns is the column list returned for expense records.
const ExpenseColumns = "id, description, amount, category, date, created_at"

// InsertColumns is the column list bound by expense inserts.
var InsertColumns = []string{"description", "amount", "category", "date"}

// ParamsPerRow is the number of bound parameters consumed by one inserted row.
var ParamsPerRow = len(InsertColumns)

// ListExpenses renders the filtered, ordered listing query.
func ListExpenses(d Dialect, p Predicate, order OrderPolicy) (string, []any) {
	where, args := p.Render(d)
	return "SELECT " + ExpenseColumns + " FROM expenses " + where + " " + order.OrderBy(), args
}

// InsertExpense renders a single-row insert returning the stored record.
func InsertExpense(d Dialect) string {
	q, _ := InsertValues(d, 1)
	return q + " RETURNING " + ExpenseColumns
}

// InsertValues renders a multi-row insert of rows tuples. It fails when the
// statement would bind more parameters than the dialect allows.
func InsertValues(d Dialect, rows int) (string, error) {
	if rows < 1 {
		return "", fmt.Errorf("insert needs at least one row, got %d", rows)
	}
	if rows*ParamsPerRow > d.MaxParams() {
		return "", fmt.Errorf("insert of %d rows binds %d parameters, %s allows %d",
			rows, rows*ParamsPerRow, d.Name(), d.MaxParams())
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO expenses (")
	sb.WriteString(strings.Join(InsertColumns, ", "))
	sb.WriteString(") VALUES ")
	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 0; c < ParamsPerRow; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			n++
			sb.WriteString(d.Placeholder(n))
		}
		sb.WriteString(")")
	}
	return sb.String(), nil
}

// MaxRowsPerStatement is the largest chunk a multi-row insert can carry.
func MaxRowsPerStatement(d Dialect) int {
	return d.MaxParams() / ParamsPerRow
}
