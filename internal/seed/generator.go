// Package seed fills the expenses table with synthetic records.
package seed

import (
	"math/rand/v2"
	"time"

	"pgexpense/internal/core"
)

// AmountRange is the inclusive range of generated amounts for a category.
type AmountRange struct {
	Min, Max int64 // whole currency units
}

var descriptions = map[string][]string{
	core.CategoryFood: {
		"Lunch at cafe", "Grocery shopping", "Coffee", "Dinner out", "Pizza delivery",
		"Fast food", "Restaurant meal", "Breakfast", "Snacks", "Takeout",
	},
	core.CategoryTransport: {
		"Gas station", "Uber ride", "Bus fare", "Train ticket", "Parking fee",
		"Car maintenance", "Taxi", "Metro card", "Bridge toll", "Airport shuttle",
	},
	core.CategoryShopping: {
		"Clothing", "Electronics", "Home goods", "Books", "Shoes",
		"Online purchase", "Gift", "Tools", "Furniture", "Accessories",
	},
	core.CategoryEntertainment: {
		"Movie tickets", "Concert", "Streaming service", "Video games", "Sports event",
		"Theater show", "Museum", "Amusement park", "Mini golf", "Bowling",
	},
	core.CategoryBills: {
		"Electric bill", "Internet", "Phone bill", "Water bill", "Insurance",
		"Rent", "Credit card payment", "Loan payment", "Subscription", "Bank fee",
	},
	core.CategoryHealthcare: {
		"Doctor visit", "Pharmacy", "Dental checkup", "Eye exam", "Prescription",
		"Hospital", "Physical therapy", "Medical test", "Vitamins", "First aid",
	},
	core.CategoryTravel: {
		"Hotel", "Flight", "Car rental", "Travel insurance", "Luggage",
		"Tourist attraction", "Travel guide", "Currency exchange", "Visa fee", "Vacation",
	},
	core.CategoryEducation: {
		"Course fee", "Books", "School supplies", "Tuition", "Online class",
		"Workshop", "Certification", "Training", "Educational software", "Seminar",
	},
	core.CategoryOther: {
		"Miscellaneous", "Cash withdrawal", "ATM fee", "Charity donation", "Pet expenses",
		"Home repair", "Cleaning supplies", "Personal care", "Garden supplies", "Storage",
	},
}

var amountRanges = map[string]AmountRange{
	core.CategoryFood:          {Min: 5, Max: 150},
	core.CategoryTransport:     {Min: 3, Max: 200},
	core.CategoryShopping:      {Min: 10, Max: 500},
	core.CategoryEntertainment: {Min: 8, Max: 300},
	core.CategoryBills:         {Min: 25, Max: 800},
	core.CategoryHealthcare:    {Min: 20, Max: 1000},
	core.CategoryTravel:        {Min: 50, Max: 2000},
	core.CategoryEducation:     {Min: 30, Max: 1200},
	core.CategoryOther:         {Min: 5, Max: 250},
}

// Descriptions returns the phrases generated for category.
func Descriptions(category string) []string {
	return descriptions[category]
}

// RangeFor returns the amount range generated for category.
func RangeFor(category string) (AmountRange, bool) {
	r, ok := amountRanges[category]
	return r, ok
}

// Generator produces random expenses dated within the two years before now.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator using rng and the now clock. A nil rng
// is seeded randomly and a nil clock uses time.Now.
func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// Expense generates one record.
func (g *Generator) Expense() core.NewExpense {
	category := core.Categories[g.rng.IntN(len(core.Categories))]
	phrases := descriptions[category]
	r := amountRanges[category]

	return core.NewExpense{
		Description: phrases[g.rng.IntN(len(phrases))],
		Amount:      g.amount(r),
		Category:    &category,
		Date:        g.date(),
	}
}

// Batch generates n records.
func (g *Generator) Batch(n int) []core.NewExpense {
	out := make([]core.NewExpense, n)
	for i := range out {
		out[i] = g.Expense()
	}
	return out
}

// amount picks a cent value uniformly in [Min, Max].
func (g *Generator) amount(r AmountRange) core.Money {
	lo, hi := r.Min*100, r.Max*100
	return core.MoneyFromCents(lo + g.rng.Int64N(hi-lo+1))
}

// date picks a calendar day uniformly between two years ago and today (UTC).
func (g *Generator) date() core.Date {
	end := core.DateOf(g.now())
	start := end.AddDate(-2, 0, 0)
	days := int(end.Sub(start).Hours() / 24)
	return core.DateOf(start.AddDate(0, 0, g.rng.IntN(days+1)))
}
