package contact

import (
	"fmt"

	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

// Mailer sends a single email. Implemented by SMTPMailer in production and
// by fakes in tests.
type Mailer interface {
	Send(to, from, subject, text, html string) error
}

// SMSSender sends a single text message.
type SMSSender interface {
	SendSMS(to, message string) error
}

// SMTPMailer sends mail through an SMTP relay using gopkg.in/mail.v2.
// When no host is configured it logs the message instead of failing, so
// development environments work without credentials.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	logger   *zap.Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer constructs an SMTPMailer. host may be empty.
func NewSMTPMailer(host string, port int, username, password string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger.With(zap.String("component", "mailer")),
	}
}

func (s *SMTPMailer) Send(to, from, subject, text, html string) error {
	if s.host == "" {
		s.logger.Info("SMTP not configured, email would be sent",
			zap.String("to", to),
			zap.String("from", from),
			zap.String("subject", subject),
		)
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	if html != "" {
		m.AddAlternative("text/html", html)
	}

	d := mail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogSMSSender records outbound texts without delivering them. A gateway
// integration can replace it behind the same interface.
type LogSMSSender struct {
	logger *zap.Logger
}

var _ SMSSender = (*LogSMSSender)(nil)

// NewLogSMSSender constructs a LogSMSSender.
func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With(zap.String("component", "sms"))}
}

func (l *LogSMSSender) SendSMS(to, message string) error {
	l.logger.Info("SMS gateway not configured, message would be sent",
		zap.String("to", to),
		zap.String("message", message),
	)
	return nil
}

// Notifier fans a new inquiry out to the company inbox. Delivery failures
// are logged, never returned: a lost notification must not fail the form
// submission.
type Notifier struct {
	mailer       Mailer
	companyEmail string
	fromEmail    string
	logger       *zap.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(mailer Mailer, companyEmail, fromEmail string, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer:       mailer,
		companyEmail: companyEmail,
		fromEmail:    fromEmail,
		logger:       logger.With(zap.String("component", "notifier")),
	}
}

// NotifyNewInquiry emails the quote request to the company inbox.
func (n *Notifier) NotifyNewInquiry(in *Inquiry) {
	err := n.mailer.Send(n.companyEmail, n.fromEmail, in.QuoteEmailSubject(), in.QuoteEmailText(), in.QuoteEmailHTML())
	if err != nil {
		n.logger.Error("inquiry notification failed",
			zap.String("inquiry_id", in.ID),
			zap.Error(err),
		)
		return
	}
	n.logger.Info("inquiry notification sent", zap.String("inquiry_id", in.ID))
}
