package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config addresses an SMTP relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// CodeTTL is quoted in the email body.
	CodeTTL time.Duration
}

// SMTPMailer sends codes through an SMTP relay using PLAIN auth.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewSMTP returns an SMTPMailer.
func NewSMTP(cfg Config, logger zerolog.Logger) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &SMTPMailer{cfg: cfg, logger: logger, now: time.Now}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, email, code string) error {
	if m.cfg.Host == "" {
		return errors.New("smtp not configured")
	}
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", m.cfg.From, err)
	}
	msg, err := NewOTPMessage(m.cfg.From, email, code, m.cfg.CodeTTL, m.now())
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}

	if err := m.deliver(ctx, from.Address, email, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info().Str("email", email).Msg("otp email delivered")
	return nil
}

func (m *SMTPMailer) deliver(ctx context.Context, from, to string, raw []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if m.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}
