package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/staff"
	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SampleBatches returns the demo batch set: the skincare catalog stocked as
// dated lots, several per product, out of expiry order on purpose.
func SampleBatches() []ledger.Batch {
	mk := func(id, productID, name, brand, unit, lot, expiry string, stock int) ledger.Batch {
		return ledger.Batch{
			ID:             id,
			ProductID:      productID,
			ProductName:    name,
			Brand:          brand,
			Price:          price(unit),
			BatchNumber:    lot,
			StockRemaining: stock,
			ExpiryDate:     date(expiry),
		}
	}
	return []ledger.Batch{
		mk("1a", "1", "Vitamin C Serum", "The Ordinary", "45.00", "VC-2024-001", "2025-03-15", 8),
		mk("1b", "1", "Vitamin C Serum", "The Ordinary", "45.00", "VC-2024-002", "2025-08-20", 10),
		mk("1c", "1", "Vitamin C Serum", "The Ordinary", "45.00", "VC-2024-003", "2025-12-10", 5),
		mk("2a", "2", "Hyaluronic Acid", "CeraVe", "38.00", "HA-2024-001", "2025-04-10", 20),
		mk("2b", "2", "Hyaluronic Acid", "CeraVe", "38.00", "HA-2024-002", "2025-09-30", 25),
		mk("3a", "3", "Retinol Night Cream", "Neutrogena", "52.00", "RN-2024-001", "2025-02-28", 5),
		mk("3b", "3", "Retinol Night Cream", "Neutrogena", "52.00", "RN-2024-002", "2025-07-15", 7),
		mk("4a", "4", "Gentle Cleanser", "Cetaphil", "32.00", "GC-2024-001", "2025-05-20", 30),
		mk("4b", "4", "Gentle Cleanser", "Cetaphil", "32.00", "GC-2024-002", "2025-10-15", 22),
		mk("4c", "4", "Gentle Cleanser", "Cetaphil", "32.00", "GC-2024-003", "2026-01-30", 15),
		mk("5a", "5", "SPF 50 Sunscreen", "La Roche-Posay", "48.00", "SS-2024-001", "2025-06-01", 8),
	}
}

// Seed returns a store populated with the demo shop data. now anchors the
// relative "last visit" fields.
func Seed(now time.Time) *Store {
	s := New()

	for _, p := range []catalog.Product{
		{ID: "1", Name: "Vitamin C Serum", Brand: "The Ordinary", Category: "Serums", Price: price("45.00")},
		{ID: "2", Name: "Hyaluronic Acid", Brand: "CeraVe", Category: "Serums", Price: price("38.00")},
		{ID: "3", Name: "Retinol Night Cream", Brand: "Neutrogena", Category: "Moisturizers", Price: price("52.00")},
		{ID: "4", Name: "Gentle Cleanser", Brand: "Cetaphil", Category: "Cleansers", Price: price("32.00")},
		{ID: "5", Name: "SPF 50 Sunscreen", Brand: "La Roche-Posay", Category: "Sunscreen", Price: price("48.00")},
		{ID: "6", Name: "Niacinamide Serum", Brand: "The Inkey List", Category: "Serums", Price: price("28.00")},
	} {
		s.products[p.ID] = p
	}

	for _, b := range SampleBatches() {
		s.batches[b.ID] = b
	}

	for _, c := range []customer.Customer{
		{
			ID: "1", Name: "Sarah Johnson", Phone: "+1 234-567-8901",
			Email: "sarah.j@email.com", SkinType: "Oily",
			Allergies: []string{"Fragrance", "Parabens"},
			Purchases: 24, LastVisit: now.AddDate(0, 0, -2),
		},
		{
			ID: "2", Name: "Emma Davis", Phone: "+1 234-567-8902",
			Email: "emma.d@email.com", SkinType: "Dry",
			Allergies: []string{"Alcohol"},
			Purchases: 18, LastVisit: now.AddDate(0, 0, -5),
		},
		{
			ID: "3", Name: "Olivia Smith", Phone: "+1 234-567-8903",
			Email: "olivia.s@email.com", SkinType: "Sensitive",
			Allergies: []string{"Fragrance", "Essential Oils", "Sulfates"},
			Purchases: 31, LastVisit: now.AddDate(0, 0, -1),
		},
		{
			ID: "4", Name: "Sophia Brown", Phone: "+1 234-567-8904",
			Email: "sophia.b@email.com", SkinType: "Combination",
			Allergies: []string{},
			Purchases: 12, LastVisit: now.AddDate(0, 0, -7),
		},
	} {
		s.customers[c.ID] = c
	}

	for _, sp := range []supplier.Supplier{
		{
			ID: "1", Name: "BeautyPro Supplies", ContactPerson: "Sarah Johnson",
			Email: "sarah@beautypro.com", Phone: "+1 (555) 123-4567",
			Address:          "123 Beauty Ave, LA, CA 90001",
			ProductsSupplied: "Serums, Creams", LastRestock: date("2025-01-15"),
		},
		{
			ID: "2", Name: "SkinCare Wholesale Co.", ContactPerson: "Michael Chen",
			Email: "michael@skincarewholesale.com", Phone: "+1 (555) 987-6543",
			Address:          "456 Supply St, NYC, NY 10001",
			ProductsSupplied: "Oils, Masks, Cleansers", LastRestock: date("2025-01-20"),
		},
		{
			ID: "3", Name: "Premium Cosmetics Ltd", ContactPerson: "Emma Williams",
			Email: "emma@premiumcosmetics.com", Phone: "+1 (555) 456-7890",
			Address:          "789 Trade Blvd, Miami, FL 33101",
			ProductsSupplied: "Sunscreen, Moisturizers", LastRestock: date("2025-01-10"),
		},
	} {
		s.suppliers[sp.ID] = sp
	}

	s.staff = []staff.Member{
		{
			ID: "1", Name: "Emily Parker", Initials: "EP", Role: "Senior Consultant",
			MonthlySales: price("12500"), Commission: price("1875"),
			TotalCustomers: 89, Performance: 125,
		},
		{
			ID: "2", Name: "Jessica Lee", Initials: "JL", Role: "Beauty Consultant",
			MonthlySales: price("9800"), Commission: price("1470"),
			TotalCustomers: 67, Performance: 98,
		},
		{
			ID: "3", Name: "Rachel Green", Initials: "RG", Role: "Beauty Consultant",
			MonthlySales: price("8200"), Commission: price("1230"),
			TotalCustomers: 54, Performance: 82,
		},
		{
			ID: "4", Name: "Amanda Wilson", Initials: "AW", Role: "Junior Consultant",
			MonthlySales: price("5600"), Commission: price("840"),
			TotalCustomers: 41, Performance: 56,
		},
	}

	return s
}
