// Package supplier holds the supplier contact directory.
package supplier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested supplier does not exist.
var ErrNotFound = errors.New("supplier not found")

// Supplier is a wholesale contact. ProductsSupplied is free text the way the
// shop records it ("Serums, Creams").
type Supplier struct {
	ID               string
	Name             string
	ContactPerson    string
	Email            string
	Phone            string
	Address          string
	ProductsSupplied string
	Notes            string
	LastRestock      time.Time
}

// ValidationError reports a single invalid field on a record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the supplier's fields.
func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(s.ContactPerson) == "" {
		return &ValidationError{Field: "contactPerson", Reason: "must not be empty"}
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	return nil
}

// Repository defines persistence operations for suppliers.
type Repository interface {
	List(ctx context.Context) ([]Supplier, error)
	GetByID(ctx context.Context, id string) (*Supplier, error)
	Create(ctx context.Context, s Supplier) error
	Update(ctx context.Context, s Supplier) error
	Delete(ctx context.Context, id string) error
}
