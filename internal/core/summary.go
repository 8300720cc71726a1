package core

// DailyWindow bounds the number of most recent days reported in Stats.Daily.
const DailyWindow = 30

// Filter narrows the expenses considered by listing and statistics.
// Nil fields and an empty category mean no constraint.
type Filter struct {
	StartDate *Date
	EndDate   *Date
	Category  string
}

// TotalStat is the count and sum of the filtered expenses.
type TotalStat struct {
	Count  int64 `json:"count"`
	Amount Money `json:"amount"`
}

// CategoryStat aggregates expenses sharing a category label.
type CategoryStat struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Total    Money  `json:"total"`
}

// MonthStat aggregates expenses by the first day of their month.
type MonthStat struct {
	Month Date  `json:"month"`
	Count int64 `json:"count"`
	Total Money `json:"total"`
}

// DayStat aggregates expenses sharing a date.
type DayStat struct {
	Date  Date  `json:"date"`
	Count int64 `json:"count"`
	Total Money `json:"total"`
}

// Stats is the statistics payload recomputed on every request.
type Stats struct {
	Total      TotalStat      `json:"total"`
	ByCategory []CategoryStat `json:"byCategory"`
	ByMonth    []MonthStat    `json:"byMonth"`
	Daily      []DayStat      `json:"daily"`
}

// EmptyStats returns the statistics of an empty record set.
func EmptyStats() Stats {
	return Stats{
		Total:      TotalStat{Amount: ZeroMoney()},
		ByCategory: []CategoryStat{},
		ByMonth:    []MonthStat{},
		Daily:      []DayStat{},
	}
}
