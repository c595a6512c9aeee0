package cart

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart state transitions.
var (
	// ErrNoCustomer is returned when a line or checkout operation is
	// attempted on an unbound cart.
	ErrNoCustomer = errors.New("no customer selected")
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConfirmationRequired is returned when rebinding a non-empty cart
	// without acknowledging that pending lines will be discarded.
	ErrConfirmationRequired = errors.New("changing customer discards pending cart lines; confirmation required")
)

// OutOfStockError indicates no batch of the product had remaining stock at
// selection time.
type OutOfStockError struct {
	ProductID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.ProductID)
}

// BatchCapacityExceededError indicates incrementing an existing line would
// exceed the originating batch's current remaining stock.
type BatchCapacityExceededError struct {
	ProductID string
	BatchID   string
	Requested int
	Available int
}

func (e *BatchCapacityExceededError) Error() string {
	return fmt.Sprintf("batch %s of product %s has %d unit(s) remaining, cannot hold %d",
		e.BatchID, e.ProductID, e.Available, e.Requested)
}

// LineNotFoundError indicates the cart holds no line for the given
// (product, batch) pair.
type LineNotFoundError struct {
	ProductID string
	BatchID   string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("no cart line for product %s batch %s", e.ProductID, e.BatchID)
}

// CheckoutError reports a failed checkout attempt. FailedLine is the index of
// the line whose consume failed; Reason carries the underlying ledger error.
// Compensated is true when all previously consumed lines were successfully
// restocked, which is the normal failure path.
type CheckoutError struct {
	Reason      error
	FailedLine  int
	Compensated bool
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout failed at line %d: %v", e.FailedLine, e.Reason)
}

// Unwrap exposes the underlying reason to errors.Is/As.
func (e *CheckoutError) Unwrap() error {
	return e.Reason
}
