package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// SMTPProvider delivers email over SMTP, either via STARTTLS on the
// submission port or implicit TLS. GMAIL and OUTLOOK are pre-configured
// instances of this same adapter; CUSTOM_SMTP is built from operator-
// supplied host/port/credentials.
type SMTPProvider struct {
	name     string
	host     string
	port     int
	username string
	password string
	from     string
	useTLS   bool
	timeout  time.Duration
}

// SMTPConfig carries the connection parameters for one SMTP adapter
// instance.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func NewSMTPProvider(name string, cfg SMTPConfig) *SMTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPProvider{
		name: name, host: cfg.Host, port: cfg.Port,
		username: cfg.Username, password: cfg.Password, from: cfg.From,
		useTLS: cfg.UseTLS, timeout: cfg.Timeout,
	}
}

// NewGmailProvider returns an SMTP adapter pre-configured for Gmail's
// STARTTLS submission endpoint.
func NewGmailProvider(email, appPassword string) *SMTPProvider {
	return NewSMTPProvider(string(domain.ProviderGmail), SMTPConfig{
		Host: "smtp.gmail.com", Port: 587, Username: email, Password: appPassword, From: email, UseTLS: true,
	})
}

// NewOutlookProvider returns an SMTP adapter pre-configured for Outlook's
// STARTTLS submission endpoint.
func NewOutlookProvider(email, password string) *SMTPProvider {
	return NewSMTPProvider(string(domain.ProviderOutlook), SMTPConfig{
		Host: "smtp-mail.outlook.com", Port: 587, Username: email, Password: password, From: email, UseTLS: true,
	})
}

func (p *SMTPProvider) Name() string { return p.name }

func (p *SMTPProvider) Send(ctx context.Context, n *domain.Notification) (*Outcome, error) {
	email, err := parseEmailPayload(n.Payload)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
	}
	from := email.From
	if from == "" {
		from = p.from
	}

	msg := buildMIMEMessage(from, email.To, email.Subject, email.Body)
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	done := make(chan error, 1)
	go func() { done <- p.dialAndSend(addr, from, email.To, msg) }()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return &Outcome{Success: false, Message: err.Error(), Retryable: true}, nil
		}
		return &Outcome{Success: true, Response: map[string]any{"delivered_via": p.name}}, nil
	}
}

// dialAndSend connects and delivers msg. useTLS selects STARTTLS on the
// given port (the submission-port convention Gmail/Outlook use); with
// useTLS false the connection is implicit SSL from the first byte, the
// convention for SMTPS ports like 465 — never plaintext.
func (p *SMTPProvider) dialAndSend(addr, from, to, msg string) error {
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	var client *smtp.Client
	if p.useTLS {
		conn, err := net.DialTimeout("tcp", addr, p.timeout)
		if err != nil {
			return fmt.Errorf("dial smtp: %w", err)
		}
		defer conn.Close()

		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			return fmt.Errorf("smtp handshake: %w", err)
		}
		if err := client.StartTLS(&tls.Config{ServerName: p.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	} else {
		dialer := &net.Dialer{Timeout: p.timeout}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: p.host})
		if err != nil {
			return fmt.Errorf("dial smtps: %w", err)
		}
		defer conn.Close()

		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			return fmt.Errorf("smtp handshake: %w", err)
		}
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

func buildMIMEMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"notifyd-boundary\"\r\n\r\n")
	b.WriteString("--notifyd-boundary\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n--notifyd-boundary--\r\n")
	return b.String()
}

var _ Provider = (*SMTPProvider)(nil)
