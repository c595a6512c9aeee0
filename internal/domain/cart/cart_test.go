package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
)

// --- Helpers ---

var taxRate = decimal.RequireFromString("0.10")

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newBatch(id, productID, name, price, expiry string, stock int) ledger.Batch {
	return ledger.Batch{
		ID:             id,
		ProductID:      productID,
		ProductName:    name,
		Brand:          "The Ordinary",
		BatchNumber:    "LOT-" + id,
		Price:          decimal.RequireFromString(price),
		StockRemaining: stock,
		ExpiryDate:     date(expiry),
	}
}

func newTestLedger(t *testing.T, batches ...ledger.Batch) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	for _, b := range batches {
		require.NoError(t, l.AddBatch(b))
	}
	return l
}

func batchStock(t *testing.T, l *ledger.Ledger, productID, batchID string) int {
	t.Helper()
	batches, ok := l.Batches(productID)
	require.True(t, ok)
	for _, b := range batches {
		if b.ID == batchID {
			return b.StockRemaining
		}
	}
	t.Fatalf("batch %s not found", batchID)
	return 0
}

func boundCart(t *testing.T, l *ledger.Ledger) *Cart {
	t.Helper()
	c := New(l, taxRate)
	require.NoError(t, c.BindCustomer("cust-1", false))
	return c
}

// --- Binding ---

func TestBindCustomer(t *testing.T) {
	c := New(newTestLedger(t), taxRate)

	assert.False(t, c.Bound())
	require.NoError(t, c.BindCustomer("cust-1", false))
	assert.True(t, c.Bound())
	assert.Equal(t, "cust-1", c.CustomerID())
}

func TestBindCustomer_ChangeWithEmptyCartNeedsNoConfirmation(t *testing.T) {
	c := boundCart(t, newTestLedger(t))

	require.NoError(t, c.BindCustomer("cust-2", false))
	assert.Equal(t, "cust-2", c.CustomerID())
}

func TestBindCustomer_ChangeWithPendingLinesRequiresConfirmation(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))

	err := c.BindCustomer("cust-2", false)
	require.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, "cust-1", c.CustomerID())
	assert.Len(t, c.Lines(), 1)

	require.NoError(t, c.BindCustomer("cust-2", true))
	assert.Equal(t, "cust-2", c.CustomerID())
	assert.True(t, c.Empty())
}

func TestBindCustomer_UnbindFollowsSameRule(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))

	require.ErrorIs(t, c.BindCustomer("", false), ErrConfirmationRequired)

	require.NoError(t, c.BindCustomer("", true))
	assert.False(t, c.Bound())
	assert.True(t, c.Empty())
}

func TestBindCustomer_SameCustomerIsNoop(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))

	require.NoError(t, c.BindCustomer("cust-1", false))
	assert.Len(t, c.Lines(), 1)
}

// --- AddLine ---

func TestAddLine_RequiresCustomer(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := New(l, taxRate)

	assert.ErrorIs(t, c.AddLine("p1"), ErrNoCustomer)
}

func TestAddLine_DrawsEarliestBatch(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b2", "p1", "Vitamin C Serum", "45.00", "2025-08-20", 10),
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8),
	)
	c := boundCart(t, l)

	require.NoError(t, c.AddLine("p1"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "b1", lines[0].BatchID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("45.00").Equal(lines[0].UnitPrice))
}

func TestAddLine_OutOfStock(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 0))
	c := boundCart(t, l)

	err := c.AddLine("p1")
	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
	assert.Equal(t, "p1", oosErr.ProductID)

	err = c.AddLine("missing")
	require.ErrorAs(t, err, &oosErr)
}

func TestAddLine_MergesIntoExistingLine(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := boundCart(t, l)

	require.NoError(t, c.AddLine("p1"))
	require.NoError(t, c.AddLine("p1"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddLine_BatchCapacityExceeded(t *testing.T) {
	// Ledger read is live, not reserved: with a single unit in B1, the first
	// add succeeds and the merging second add fails.
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 1))
	c := boundCart(t, l)

	require.NoError(t, c.AddLine("p1"))

	err := c.AddLine("p1")
	var bceErr *BatchCapacityExceededError
	require.ErrorAs(t, err, &bceErr)
	assert.Equal(t, "b1", bceErr.BatchID)
	assert.Equal(t, 2, bceErr.Requested)
	assert.Equal(t, 1, bceErr.Available)

	// The failed add left the cart as it was.
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestAddLine_CapturesPriceAtAddTime(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 1),
		newBatch("b2", "p1", "Vitamin C Serum", "49.00", "2025-08-20", 5),
	)
	c := boundCart(t, l)

	require.NoError(t, c.AddLine("p1"))

	// Exhaust b1 elsewhere; the next add selects b2 at its own price and
	// starts a new line, leaving the first line's captured price intact.
	_, err := l.Consume("p1", 1)
	require.NoError(t, err)
	require.NoError(t, c.AddLine("p1"))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.True(t, decimal.RequireFromString("45.00").Equal(lines[0].UnitPrice))
	assert.Equal(t, "b2", lines[1].BatchID)
	assert.True(t, decimal.RequireFromString("49.00").Equal(lines[1].UnitPrice))
}

// --- SetQuantity / RemoveLine ---

func TestSetQuantity(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))

	require.NoError(t, c.SetQuantity("p1", "b1", 5))
	assert.Equal(t, 5, c.Lines()[0].Quantity)

	// Zero or negative removes the line, returning the cart to bound-empty.
	require.NoError(t, c.SetQuantity("p1", "b1", 0))
	assert.True(t, c.Empty())
	assert.True(t, c.Bound())
}

func TestSetQuantity_UnknownLine(t *testing.T) {
	c := boundCart(t, newTestLedger(t))

	err := c.SetQuantity("p1", "b1", 3)
	var lnfErr *LineNotFoundError
	require.ErrorAs(t, err, &lnfErr)
}

func TestRemoveLine(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8),
		newBatch("c1", "p2", "Hyaluronic Acid", "38.00", "2025-04-10", 20),
	)
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))
	require.NoError(t, c.AddLine("p2"))

	require.NoError(t, c.RemoveLine("p1", "b1"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)
}

// --- Totals ---

func TestTotals(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8),
		newBatch("c1", "p2", "Hyaluronic Acid", "38.00", "2025-04-10", 20),
	)
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))
	require.NoError(t, c.SetQuantity("p1", "b1", 2))
	require.NoError(t, c.AddLine("p2"))

	totals := c.Totals()
	assert.True(t, decimal.RequireFromString("128.00").Equal(totals.Subtotal))
	assert.True(t, decimal.RequireFromString("12.80").Equal(totals.Tax))
	assert.True(t, decimal.RequireFromString("140.80").Equal(totals.Total))
}

func TestTotals_EmptyCart(t *testing.T) {
	c := boundCart(t, newTestLedger(t))

	totals := c.Totals()
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

// --- Checkout ---

func TestCheckout_Success(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8),
		newBatch("b2", "p1", "Vitamin C Serum", "45.00", "2025-08-20", 10),
	)
	c := boundCart(t, l)
	c.now = func() time.Time { return date("2025-01-02") }

	require.NoError(t, c.AddLine("p1"))
	require.NoError(t, c.SetQuantity("p1", "b1", 10))

	rec, err := c.Checkout()
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "cust-1", rec.CustomerID)
	assert.Equal(t, date("2025-01-02"), rec.CreatedAt)
	require.Len(t, rec.Lines, 1)
	// Allocation spans batches even though the line referenced b1.
	assert.Equal(t, []ledger.Draw{{BatchID: "b1", Quantity: 8}, {BatchID: "b2", Quantity: 2}}, rec.Lines[0].Draws)
	assert.True(t, decimal.RequireFromString("450.00").Equal(rec.Subtotal))
	assert.True(t, decimal.RequireFromString("45.00").Equal(rec.Tax))
	assert.True(t, decimal.RequireFromString("495.00").Equal(rec.Total))

	// Cart is destroyed: empty and unbound.
	assert.True(t, c.Empty())
	assert.False(t, c.Bound())

	assert.Equal(t, 0, batchStock(t, l, "p1", "b1"))
	assert.Equal(t, 8, batchStock(t, l, "p1", "b2"))
}

func TestCheckout_ReResolvesBatchLive(t *testing.T) {
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 3),
		newBatch("b2", "p1", "Vitamin C Serum", "45.00", "2025-08-20", 10),
	)
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))

	// Another cart empties b1 before this checkout commits.
	_, err := l.Consume("p1", 3)
	require.NoError(t, err)

	rec, err := c.Checkout()
	require.NoError(t, err)
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, []ledger.Draw{{BatchID: "b2", Quantity: 1}}, rec.Lines[0].Draws)
}

func TestCheckout_FailureRestoresConsumedLines(t *testing.T) {
	// Line 1 consumes 3 units, line 2 fails on insufficient stock; the
	// failed attempt must leave stock and cart exactly as before.
	l := newTestLedger(t,
		newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8),
		newBatch("c1", "p2", "Hyaluronic Acid", "38.00", "2025-04-10", 2),
	)
	c := boundCart(t, l)
	require.NoError(t, c.AddLine("p1"))
	require.NoError(t, c.SetQuantity("p1", "b1", 3))
	require.NoError(t, c.AddLine("p2"))
	require.NoError(t, c.SetQuantity("p2", "c1", 5))

	_, err := c.Checkout()

	var coErr *CheckoutError
	require.ErrorAs(t, err, &coErr)
	assert.Equal(t, 1, coErr.FailedLine)
	assert.True(t, coErr.Compensated)

	var insErr *ledger.InsufficientStockError
	require.ErrorAs(t, coErr.Reason, &insErr)
	assert.Equal(t, "p2", insErr.ProductID)

	assert.Equal(t, 8, batchStock(t, l, "p1", "b1"))
	assert.Equal(t, 2, batchStock(t, l, "p2", "c1"))

	// Cart unchanged: still bound, both lines intact.
	assert.Equal(t, "cust-1", c.CustomerID())
	require.Len(t, c.Lines(), 2)
	assert.Equal(t, 3, c.Lines()[0].Quantity)
	assert.Equal(t, 5, c.Lines()[1].Quantity)
}

func TestCheckout_EmptyOrUnbound(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))

	c := New(l, taxRate)
	_, err := c.Checkout()
	assert.ErrorIs(t, err, ErrNoCustomer)

	require.NoError(t, c.BindCustomer("cust-1", false))
	_, err = c.Checkout()
	assert.ErrorIs(t, err, ErrEmptyCart)
}

// --- Registry ---

func TestRegistry_SeparateCartsPerTerminal(t *testing.T) {
	l := newTestLedger(t, newBatch("b1", "p1", "Vitamin C Serum", "45.00", "2025-03-15", 8))
	reg := NewRegistry(l, taxRate)

	require.NoError(t, reg.Do("pos-1", func(c *Cart) error {
		if err := c.BindCustomer("cust-1", false); err != nil {
			return err
		}
		return c.AddLine("p1")
	}))

	require.NoError(t, reg.Do("pos-2", func(c *Cart) error {
		assert.False(t, c.Bound())
		assert.True(t, c.Empty())
		return nil
	}))

	require.NoError(t, reg.Do("pos-1", func(c *Cart) error {
		assert.Len(t, c.Lines(), 1)
		return nil
	}))
}
