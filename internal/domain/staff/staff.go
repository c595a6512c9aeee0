// Package staff tracks consultant performance for the staff dashboard.
package staff

import (
	"context"

	"github.com/shopspring/decimal"
)

// Member is one consultant's monthly performance snapshot. Performance is the
// percentage of the member's sales target achieved.
type Member struct {
	ID             string
	Name           string
	Initials       string
	Role           string
	MonthlySales   decimal.Decimal
	Commission     decimal.Decimal
	TotalCustomers int
	Performance    int
}

// Band classifies a performance percentage into the dashboard's rating
// labels.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandAverage   Band = "average"
)

// ClassifyPerformance maps a performance percentage to its band.
func ClassifyPerformance(performance int) Band {
	switch {
	case performance >= 100:
		return BandExcellent
	case performance >= 80:
		return BandGood
	default:
		return BandAverage
	}
}

// Summary is the team-wide rollup shown above the member list.
type Summary struct {
	TotalSales      decimal.Decimal
	TotalCommission decimal.Decimal
	Members         int
}

// Summarize computes the team summary over all members.
func Summarize(members []Member) Summary {
	s := Summary{
		TotalSales:      decimal.Zero,
		TotalCommission: decimal.Zero,
		Members:         len(members),
	}
	for _, m := range members {
		s.TotalSales = s.TotalSales.Add(m.MonthlySales)
		s.TotalCommission = s.TotalCommission.Add(m.Commission)
	}
	return s
}

// Repository defines read operations for staff records.
type Repository interface {
	List(ctx context.Context) ([]Member, error)
}
