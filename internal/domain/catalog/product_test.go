package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Product{
		ID:       "p1",
		Name:     "Vitamin C Serum",
		Brand:    "The Ordinary",
		Category: "Serums",
		Price:    decimal.RequireFromString("45.00"),
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Product)
		field  string
	}{
		{"empty name", func(p *Product) { p.Name = "  " }, "name"},
		{"empty brand", func(p *Product) { p.Brand = "" }, "brand"},
		{"empty category", func(p *Product) { p.Category = "" }, "category"},
		{"zero price", func(p *Product) { p.Price = decimal.Zero }, "price"},
		{"negative price", func(p *Product) { p.Price = decimal.NewFromInt(-1) }, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)

			var vErr *ValidationError
			require.ErrorAs(t, p.Validate(), &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestMatches(t *testing.T) {
	p := Product{Name: "Vitamin C Serum", Brand: "The Ordinary"}

	assert.True(t, p.Matches(""))
	assert.True(t, p.Matches("  "))
	assert.True(t, p.Matches("serum"))
	assert.True(t, p.Matches("VITAMIN"))
	assert.True(t, p.Matches("ordinary"))
	assert.False(t, p.Matches("retinol"))
}

func TestClassifyExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, ExpiryUrgent, ClassifyExpiry(now.AddDate(0, 0, 10), now))
	assert.Equal(t, ExpiryUrgent, ClassifyExpiry(now.AddDate(0, 0, -5), now))
	assert.Equal(t, ExpiryWarning, ClassifyExpiry(now.AddDate(0, 0, 45), now))
	assert.Equal(t, ExpiryGood, ClassifyExpiry(now.AddDate(0, 0, 120), now))
}

func TestClassifyStock(t *testing.T) {
	assert.Equal(t, StockLow, ClassifyStock(0))
	assert.Equal(t, StockLow, ClassifyStock(14))
	assert.Equal(t, StockMedium, ClassifyStock(15))
	assert.Equal(t, StockMedium, ClassifyStock(29))
	assert.Equal(t, StockGood, ClassifyStock(30))
}
