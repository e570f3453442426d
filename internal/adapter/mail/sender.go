package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"text/template"
	"time"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// Compile-time checks: both senders implement domain.CredentialSender.
var (
	_ domain.CredentialSender = (*SMTPSender)(nil)
	_ domain.CredentialSender = LogSender{}
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Addr returns host:port.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var bodyTemplate = template.Must(template.New("credentials").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: {{.Subject}}\r\n" +
		"Date: {{.Date}}\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" +
		"Hello {{.Name}},\r\n" +
		"\r\n" +
		"Your vendor account for {{.Company}} is ready.\r\n" +
		"\r\n" +
		"Email: {{.To}}\r\n" +
		"Password: {{.Password}}\r\n" +
		"\r\n" +
		"Please change your password after signing in.\r\n",
))

type message struct {
	From, To, Subject, Date string
	Name, Company, Password string
}

// DefaultTimeout bounds a whole delivery, from dial to QUIT, when the caller's
// context carries no earlier deadline.
const DefaultTimeout = 30 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers vendor credentials by email.
type SMTPSender struct {
	cfg     SMTPConfig
	auth    smtp.Auth
	send    sendFunc
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPSender creates a sender. Authentication is skipped when no username
// is configured.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{cfg: cfg, auth: auth, send: sendMail, timeout: DefaultTimeout, now: time.Now}
}

func (s *SMTPSender) SendCredentials(ctx context.Context, vendor domain.Vendor, password, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, message{
		From:     s.cfg.From,
		To:       vendor.Email,
		Subject:  subject,
		Date:     s.now().Format(time.RFC1123Z),
		Name:     vendor.Name,
		Company:  vendor.CompanyName,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("rendering credentials mail: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.send(ctx, s.cfg.Addr(), s.auth, s.cfg.From, []string{vendor.Email}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending credentials mail to %s: %w", vendor.Email, err)
	}

	slog.InfoContext(ctx, "credentials mail sent", "vendor_id", vendor.ID, "subject", subject)
	return nil
}

// sendMail is smtp.SendMail over a connection whose every read and write
// is bound by ctx.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	err = deliver(conn, host, a, from, to, msg)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

func deliver(conn net.Conn, host string, a smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// LogSender records that credentials would have been delivered. It is used
// when no SMTP host is configured. The password is never logged.
type LogSender struct{}

func (LogSender) SendCredentials(ctx context.Context, vendor domain.Vendor, _, subject string) error {
	slog.InfoContext(ctx, "smtp not configured, skipping credentials mail",
		"vendor_id", vendor.ID,
		"email", vendor.Email,
		"subject", subject,
	)
	return nil
}
