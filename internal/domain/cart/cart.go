// Package cart implements the per-transaction sale cart: a transient,
// customer-bound aggregation of line items drawn from the batch ledger.
//
// A cart holds reservations by reference only (product ID, batch ID,
// quantity); it never mutates ledger state before checkout, so pending lines
// can go stale while other carts commit. Checkout re-resolves every
// allocation live against the ledger and compensates partially consumed lines
// on failure, making it observably atomic even though the ledger's consume
// primitive is single-product.
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
)

// Line is one (product, batch, quantity) entry in a pending sale. UnitPrice
// is captured when the line is added and does not track later price changes.
type Line struct {
	ProductID string
	BatchID   string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the cart's monetary rollup. Values are exact decimal sums;
// rounding to two places happens only at presentation.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Cart accumulates prospective allocations for a single customer. A cart is a
// single-actor object: callers must serialize access to one instance (see
// Registry).
type Cart struct {
	ledger  *ledger.Ledger
	taxRate decimal.Decimal

	customerID string
	lines      []Line
	now        func() time.Time
}

// New returns an empty, unbound cart drawing from the given ledger.
// taxRate is a fraction, e.g. 0.10 for the flat 10% tax.
func New(l *ledger.Ledger, taxRate decimal.Decimal) *Cart {
	return &Cart{ledger: l, taxRate: taxRate, now: time.Now}
}

// CustomerID returns the bound customer, or "" when unbound.
func (c *Cart) CustomerID() string { return c.customerID }

// Bound reports whether a customer is selected.
func (c *Cart) Bound() bool { return c.customerID != "" }

// Empty reports whether the cart holds no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// BindCustomer binds or rebinds the cart to a customer; customerID == ""
// unbinds. Changing the binding while lines are pending discards them, so the
// caller must acknowledge with confirmed=true or the call fails with
// ErrConfirmationRequired and the cart is unchanged.
func (c *Cart) BindCustomer(customerID string, confirmed bool) error {
	if customerID == c.customerID {
		return nil
	}
	if !c.Empty() {
		if !confirmed {
			return ErrConfirmationRequired
		}
		c.lines = nil
	}
	c.customerID = customerID
	return nil
}

// AddLine adds one unit of the product, drawn from its earliest-expiring
// batch read live from the ledger. When a line for that (product, batch) pair
// already exists the unit merges into it, unless the incremented quantity
// would exceed the batch's current remaining stock.
func (c *Cart) AddLine(productID string) error {
	if !c.Bound() {
		return ErrNoCustomer
	}

	batch, ok := c.ledger.EarliestAvailableBatch(productID)
	if !ok {
		return &OutOfStockError{ProductID: productID}
	}

	for i := range c.lines {
		line := &c.lines[i]
		if line.ProductID != productID || line.BatchID != batch.ID {
			continue
		}
		// No reservation is held between calls: validate the increment
		// against the batch's stock as it is right now.
		if line.Quantity+1 > batch.StockRemaining {
			return &BatchCapacityExceededError{
				ProductID: productID,
				BatchID:   batch.ID,
				Requested: line.Quantity + 1,
				Available: batch.StockRemaining,
			}
		}
		line.Quantity++
		return nil
	}

	c.lines = append(c.lines, Line{
		ProductID: productID,
		BatchID:   batch.ID,
		Name:      batch.ProductName,
		UnitPrice: batch.Price,
		Quantity:  1,
	})
	return nil
}

// SetQuantity replaces a line's quantity. A quantity of zero or less removes
// the line. The new quantity is not re-validated against batch stock; the
// authoritative check happens at checkout.
func (c *Cart) SetQuantity(productID, batchID string, quantity int) error {
	for i := range c.lines {
		if c.lines[i].ProductID != productID || c.lines[i].BatchID != batchID {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = quantity
		return nil
	}
	return &LineNotFoundError{ProductID: productID, BatchID: batchID}
}

// RemoveLine deletes the line for the given (product, batch) pair.
func (c *Cart) RemoveLine(productID, batchID string) error {
	return c.SetQuantity(productID, batchID, 0)
}

// Totals computes subtotal, tax, and total over the current lines.
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	tax := subtotal.Mul(c.taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Checkout settles every line against the ledger in cart order. Allocation is
// re-resolved live: each line consumes by product, not by the batch captured
// at add time, since intervening activity may have changed which batch is
// earliest.
//
// If any line fails, every line already consumed in this attempt is restocked
// to the batches it was drawn from and CheckoutError reports the failing line
// and reason; cart and ledger are then back in their pre-checkout state. On
// success the finalized record is returned and the cart resets to empty and
// unbound.
func (c *Cart) Checkout() (*sale.Record, error) {
	if !c.Bound() {
		return nil, ErrNoCustomer
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	consumed := make([]sale.Line, 0, len(c.lines))
	for i, line := range c.lines {
		draws, err := c.ledger.Consume(line.ProductID, line.Quantity)
		if err != nil {
			// Compensate lines consumed earlier in this attempt, most
			// recent first.
			for j := len(consumed) - 1; j >= 0; j-- {
				if restockErr := c.ledger.Restock(consumed[j].ProductID, consumed[j].Draws); restockErr != nil {
					return nil, &CheckoutError{
						Reason:      restockErr,
						FailedLine:  i,
						Compensated: false,
					}
				}
			}
			return nil, &CheckoutError{Reason: err, FailedLine: i, Compensated: true}
		}
		consumed = append(consumed, sale.Line{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Draws:     draws,
		})
	}

	totals := c.Totals()
	rec := &sale.Record{
		ID:         uuid.New().String(),
		CustomerID: c.customerID,
		Lines:      consumed,
		Subtotal:   totals.Subtotal.Round(2),
		Tax:        totals.Tax.Round(2),
		Total:      totals.Total.Round(2),
		CreatedAt:  c.now(),
	}

	c.lines = nil
	c.customerID = ""
	return rec, nil
}
