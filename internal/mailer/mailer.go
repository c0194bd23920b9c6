// Package mailer delivers login codes by email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/textproto"
	"time"

	"github.com/rs/zerolog"
)

// Subject of every login code email.
const Subject = "Your Login OTP - Mega Jewels"

// DefaultFrom is used when no sender is configured.
const DefaultFrom = "Mega Jewels <noreply@megajewels.com>"

//go:embed templates/*.html
var templatesFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templatesFS, "templates/otp.html"))

type otpView struct {
	Brand   string
	Code    string
	Minutes int
	Year    int
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewOTPMessage renders the login code email.
func NewOTPMessage(from, to, code string, validFor time.Duration, now time.Time) (Message, error) {
	minutes := int(validFor / time.Minute)
	view := otpView{Brand: "Mega Jewels", Code: code, Minutes: minutes, Year: now.Year()}
	var html bytes.Buffer
	if err := otpTemplate.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}
	text := fmt.Sprintf("Your Mega Jewels Login OTP is: %s\n\nThis code will expire in %d minutes.\n\nIf you didn't request this code, please ignore this email.", code, minutes)
	return Message{From: from, To: to, Subject: Subject, Text: text, HTML: html.String()}, nil
}

// Bytes encodes m as a multipart/alternative RFC 5322 message.
func (m Message) Bytes() ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", m.Text},
		{"text/html; charset=UTF-8", m.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", m.From)
	fmt.Fprintf(&out, "To: %s\r\n", m.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&out, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// LogMailer writes codes to the log instead of sending mail. Use it only where
// the log is private, such as local development.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLog returns a LogMailer.
func NewLog(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(_ context.Context, email, code string) error {
	m.logger.Info().Str("email", email).Str("code", code).Msg("smtp not configured, otp logged")
	return nil
}
