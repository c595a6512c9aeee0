// Package customer holds the customer directory: read-only to the sale core,
// which consults it for display, selection, and allergy data.
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a shop customer. Allergies are surfaced during sale entry so
// staff can flag products before checkout; the core only carries the data.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	SkinType  string
	Allergies []string
	Purchases int
	LastVisit time.Time
}

// ValidationError reports a single invalid field on a record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the customer's fields.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if c.Purchases < 0 {
		return &ValidationError{Field: "purchases", Reason: "must not be negative"}
	}
	return nil
}

// Repository defines persistence operations for the customer directory.
type Repository interface {
	List(ctx context.Context) ([]Customer, error)
	GetByID(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c Customer) error
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id string) error
	// RecordPurchase increments the customer's purchase count and moves
	// their last visit to the given time.
	RecordPurchase(ctx context.Context, id string, at time.Time) error
}
