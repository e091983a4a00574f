package contact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleInquiry() *Inquiry {
	return &Inquiry{
		FirstName:   "Maria",
		LastName:    "Santos",
		Email:       "maria@example.com",
		Phone:       "555-0142",
		Address:     "12 Shoreline Dr, Warwick, RI",
		MonthlyBill: "250",
		Message:     "South-facing roof, interested in battery backup.",
	}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	require.NoError(t, sampleInquiry().Validate())
}

func TestValidateMissingFields(t *testing.T) {
	in := sampleInquiry()
	in.FirstName = ""
	in.Phone = "  "
	err := in.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firstName")
	assert.Contains(t, err.Error(), "phone")
}

func TestValidateRejectsBadBillAmount(t *testing.T) {
	in := sampleInquiry()
	in.MonthlyBill = "two hundred"
	assert.Error(t, in.Validate())
}

func TestQuoteEmailSavingsEstimate(t *testing.T) {
	in := sampleInquiry()
	text := in.QuoteEmailText()
	// $250/mo * 12 * 0.9 = $2700 annual, $54000 over 20 years.
	assert.Contains(t, text, "Annual Savings: $2700")
	assert.Contains(t, text, "20-Year Savings: $54000")
	assert.Contains(t, text, "Maria Santos")

	html := in.QuoteEmailHTML()
	assert.Contains(t, html, "<li>Annual Savings: $2700</li>")
	assert.Contains(t, html, "Onyx Energy Solutions")
}

func TestQuoteEmailEmptyMessagePlaceholder(t *testing.T) {
	in := sampleInquiry()
	in.Message = ""
	assert.Contains(t, in.QuoteEmailText(), "No additional message provided.")
}

func TestSMSBodies(t *testing.T) {
	in := sampleInquiry()
	// Reminder uses the more conservative 80% estimate: $250 * 12 * 0.8 = $2400.
	reminder := in.QuoteReminderSMS()
	assert.True(t, strings.HasPrefix(reminder, "Hi Maria!"))
	assert.Contains(t, reminder, "$2400 annually")
	assert.Contains(t, reminder, "(508) 257-1664")

	followUp := in.FollowUpSMS()
	assert.Contains(t, followUp, "follow up on your solar quote request")
	assert.Contains(t, followUp, "reply STOP to opt out")
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := sampleInquiry()
	require.NoError(t, store.Insert(ctx, in))
	require.NotEmpty(t, in.ID)
	require.False(t, in.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", got.Email)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

type failingMailer struct{}

func (failingMailer) Send(to, from, subject, text, html string) error {
	return errors.New("smtp down")
}

func TestNotifierSwallowsDeliveryErrors(t *testing.T) {
	n := NewNotifier(failingMailer{}, "info@example.com", "noreply@example.com", zap.NewNop())
	in := sampleInquiry()
	in.ID = "inq-1"
	// Must not panic or surface the error to the form submission path.
	n.NotifyNewInquiry(in)
}

func TestUnconfiguredMailerLogsInsteadOfSending(t *testing.T) {
	m := NewSMTPMailer("", 587, "", "", zap.NewNop())
	require.NoError(t, m.Send("to@example.com", "from@example.com", "subject", "text", ""))
}
