// Package email delivers transactional emails through an SMTP relay.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/semka95/natours/backend/domain"
)

// Config stores SMTP relay configuration
type Config struct {
	Host     string `yaml:"host" env:"EMAIL_HOST"`
	Port     int    `yaml:"port" env:"EMAIL_PORT"`
	User     string `yaml:"user" env:"EMAIL_USER"`
	Password string `yaml:"password" env:"EMAIL_PASSWORD"`
	From     string `yaml:"from" env:"EMAIL_FROM"`
}

// Message is a plain text email
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends messages through SMTP relay. Consecutive relay failures
// open the breaker and further sends fail fast.
type SMTPSender struct {
	from    string
	send    func(m ...*gomail.Message) error
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewSMTPSender creates SMTP sender
func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	return &SMTPSender{
		from:    cfg.From,
		send:    d.DialAndSend,
		breaker: newBreaker("smtp", logger),
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.send(m)
	})
	if err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}

	return nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates log sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

type mailer struct {
	sender Sender
	tracer trace.Tracer
}

// NewMailer will create an object that represent the domain.Mailer interface
func NewMailer(sender Sender, tracer trace.Tracer) domain.Mailer {
	return &mailer{
		sender: sender,
		tracer: tracer,
	}
}

func (m *mailer) SendWelcome(ctx context.Context, user *domain.User, url string) error {
	return m.send(ctx, "mailer SendWelcome", Message{
		To:      user.Email,
		Subject: "Welcome to the Natours Family!",
		Text: fmt.Sprintf("Hi %s,\n\nWelcome to Natours, we're glad to have you.\n"+
			"Upload your user photo to get started: %s\n\n- Jonas, CEO", firstName(user.Name), url),
	})
}

func (m *mailer) SendPasswordReset(ctx context.Context, user *domain.User, url string) error {
	return m.send(ctx, "mailer SendPasswordReset", Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for 10 minutes)",
		Text: fmt.Sprintf("Hi %s,\n\nForgot your password? Submit a PATCH request with your new password "+
			"and passwordConfirm to: %s.\nIf you didn't forget your password, please ignore this email!",
			firstName(user.Name), url),
	})
}

func (m *mailer) send(ctx context.Context, name string, msg Message) error {
	ctx, span := m.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("to", msg.To)))
	defer span.End()

	if err := m.sender.Send(ctx, msg); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
