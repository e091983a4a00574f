// Package contact stores quote inquiries from the website's contact form and
// sends the follow-up notifications for them.
package contact

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when no inquiry matches the given id.
var ErrNotFound = errors.New("contact: inquiry not found")

// Inquiry is one submitted quote request.
type Inquiry struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	MonthlyBill string    `json:"monthlyBill"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks the required form fields. Message is optional.
func (in *Inquiry) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"email", in.Email},
		{"phone", in.Phone},
		{"address", in.Address},
		{"monthlyBill", in.MonthlyBill},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required fields: " + strings.Join(missing, ", "))
	}
	if !strings.Contains(in.Email, "@") {
		return errors.New("invalid email address")
	}
	if _, err := strconv.ParseFloat(in.MonthlyBill, 64); err != nil {
		return errors.New("monthlyBill must be a number")
	}
	return nil
}

// monthlyBillDollars parses the bill amount, returning 0 for unparseable
// input so the savings estimate degrades instead of erroring.
func (in *Inquiry) monthlyBillDollars() float64 {
	v, err := strconv.ParseFloat(in.MonthlyBill, 64)
	if err != nil {
		return 0
	}
	return v
}

// Store persists inquiries.
type Store interface {
	Insert(ctx context.Context, in *Inquiry) error
	List(ctx context.Context) ([]Inquiry, error)
	GetByID(ctx context.Context, id string) (*Inquiry, error)
}
