package contact

import (
	"fmt"
	"math"
	"strings"
)

const (
	companyName    = "Onyx Energy Solutions"
	companyTagline = "Gold Standards Keeping You in the Black"
	officePhone    = "(401) 216-8890"
	salesPhone     = "(508) 257-1664"
)

// annualSavings estimates yearly savings as a fraction of the customer's
// electric spend. The quote email uses 0.9, SMS reminders use 0.8.
func (in *Inquiry) annualSavings(rate float64) int {
	return int(math.Round(in.monthlyBillDollars() * 12 * rate))
}

// QuoteEmailSubject is the subject line for the internal notification sent
// when a new inquiry arrives.
func (in *Inquiry) QuoteEmailSubject() string {
	return fmt.Sprintf("New Solar Quote Request from %s %s", in.FirstName, in.LastName)
}

// QuoteEmailText renders the plain-text notification body.
func (in *Inquiry) QuoteEmailText() string {
	msg := in.Message
	if msg == "" {
		msg = "No additional message provided."
	}
	annual := in.annualSavings(0.9)
	return fmt.Sprintf(`New Solar Quote Request - %s

Contact Information:
Name: %s %s
Email: %s
Phone: %s
Address: %s
Monthly Electric Bill: $%s

Message:
%s

Estimated Savings:
Based on their monthly bill of $%s:
- Annual Savings: $%d
- 20-Year Savings: $%d

---
%s
%s
Call them at: %s
`, companyName, in.FirstName, in.LastName, in.Email, in.Phone, in.Address,
		in.MonthlyBill, msg, in.MonthlyBill, annual, annual*20,
		companyName, companyTagline, officePhone)
}

// QuoteEmailHTML renders the styled notification body.
func (in *Inquiry) QuoteEmailHTML() string {
	msg := in.Message
	if msg == "" {
		msg = "No additional message provided."
	}
	annual := in.annualSavings(0.9)
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .header { background-color: #f59e0b; color: black; padding: 20px; text-align: center; }
    .content { padding: 20px; background-color: #f9f9f9; }
    .footer { background-color: #1f2937; color: #f59e0b; padding: 15px; text-align: center; }
    .field { margin-bottom: 15px; }
    .label { font-weight: bold; color: #f59e0b; }
  </style>
</head>
<body>
`)
	fmt.Fprintf(&b, `  <div class="header"><h1>New Solar Quote Request - %s</h1></div>
`, companyName)
	b.WriteString(`  <div class="content">
    <h2>Contact Information</h2>
`)
	fmt.Fprintf(&b, `    <div class="field"><span class="label">Name:</span> %s %s</div>
`, in.FirstName, in.LastName)
	fmt.Fprintf(&b, `    <div class="field"><span class="label">Email:</span> %s</div>
`, in.Email)
	fmt.Fprintf(&b, `    <div class="field"><span class="label">Phone:</span> %s</div>
`, in.Phone)
	fmt.Fprintf(&b, `    <div class="field"><span class="label">Address:</span> %s</div>
`, in.Address)
	fmt.Fprintf(&b, `    <div class="field"><span class="label">Monthly Electric Bill:</span> $%s</div>
`, in.MonthlyBill)
	fmt.Fprintf(&b, `    <h2>Message</h2>
    <div class="field">%s</div>
`, msg)
	fmt.Fprintf(&b, `    <h2>Estimated Savings</h2>
    <div class="field">
      Based on their monthly bill of $%s:
      <ul>
        <li>Annual Savings: $%d</li>
        <li>20-Year Savings: $%d</li>
      </ul>
    </div>
  </div>
`, in.MonthlyBill, annual, annual*20)
	fmt.Fprintf(&b, `  <div class="footer">
    <p><strong>%s</strong></p>
    <p>%s</p>
    <p>Call them at: <strong>%s</strong></p>
  </div>
</body>
</html>
`, companyName, companyTagline, officePhone)
	return b.String()
}

// QuoteReminderSMS tells the customer their quote is ready.
func (in *Inquiry) QuoteReminderSMS() string {
	return fmt.Sprintf("Hi %s! This is %s. Your solar quote is ready! Based on your $%s monthly bill, you could save $%d annually. Call us at %s to discuss your solar installation!",
		in.FirstName, companyName, in.MonthlyBill, in.annualSavings(0.8), salesPhone)
}

// FollowUpSMS is the default message for the rep-triggered SMS endpoint.
func (in *Inquiry) FollowUpSMS() string {
	return fmt.Sprintf("Hi %s, it's %s! We wanted to follow up on your solar quote request. Our team is ready to schedule your free consultation. Call %s or reply STOP to opt out.",
		in.FirstName, companyName, salesPhone)
}
