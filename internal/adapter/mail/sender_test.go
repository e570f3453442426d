package mail

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newCapturingSender(cfg SMTPConfig, fail error) (*SMTPSender, *captured) {
	c := &captured{}
	s := NewSMTPSender(cfg)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	s.send = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
		return fail
	}
	return s, c
}

var vendor = domain.Vendor{
	ID:          "v-1",
	Name:        "Ravi Kumar",
	CompanyName: "Kumar Traders",
	Email:       "ravi@kumar.example",
}

func TestSMTPSender_SendCredentials(t *testing.T) {
	s, c := newCapturingSender(SMTPConfig{
		Host:     "smtp.example",
		Port:     587,
		Username: "mailer",
		Password: "pw",
		From:     "noreply@vendorhub.example",
	}, nil)

	err := s.SendCredentials(context.Background(), vendor, "S3cret!pass", "Your Vendor Account Details")
	if err != nil {
		t.Fatalf("SendCredentials failed: %v", err)
	}

	if c.addr != "smtp.example:587" {
		t.Errorf("addr = %q, want %q", c.addr, "smtp.example:587")
	}
	if c.auth == nil {
		t.Error("expected PLAIN auth when username is set")
	}
	if c.from != "noreply@vendorhub.example" {
		t.Errorf("from = %q", c.from)
	}
	if len(c.to) != 1 || c.to[0] != "ravi@kumar.example" {
		t.Errorf("to = %v, want [ravi@kumar.example]", c.to)
	}
	for _, want := range []string{
		"Subject: Your Vendor Account Details\r\n",
		"To: ravi@kumar.example\r\n",
		"Hello Ravi Kumar,",
		"Kumar Traders",
		"Password: S3cret!pass",
	} {
		if !strings.Contains(c.msg, want) {
			t.Errorf("message missing %q:\n%s", want, c.msg)
		}
	}
}

func TestSMTPSender_NoAuthWithoutUsername(t *testing.T) {
	s, c := newCapturingSender(SMTPConfig{Host: "localhost", Port: 25, From: "a@b.example"}, nil)

	if err := s.SendCredentials(context.Background(), vendor, "pw", "subject"); err != nil {
		t.Fatalf("SendCredentials failed: %v", err)
	}
	if c.auth != nil {
		t.Error("expected no auth without username")
	}
}

func TestSMTPSender_SendError(t *testing.T) {
	boom := errors.New("connection refused")
	s, _ := newCapturingSender(SMTPConfig{Host: "localhost", Port: 25}, boom)

	err := s.SendCredentials(context.Background(), vendor, "pw", "subject")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped send error, got %v", err)
	}
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s, c := newCapturingSender(SMTPConfig{Host: "localhost", Port: 25}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SendCredentials(ctx, vendor, "pw", "subject"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if c.msg != "" {
		t.Error("nothing should be sent on a canceled context")
	}
}

// silentListener accepts connections and never sends an SMTP greeting.
func silentListener(t *testing.T) SMTPConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, c := range conns {
			c.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	return SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "noreply@vendorhub.example"}
}

func TestSMTPSender_SilentServerHonorsContextDeadline(t *testing.T) {
	s := NewSMTPSender(silentListener(t))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.SendCredentials(ctx, vendor, "pw", "subject")
	if err == nil {
		t.Fatal("expected an error from a server that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("SendCredentials blocked for %s past a 200ms deadline", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("expected a deadline error, got %v", err)
	}
}

func TestSMTPSender_SilentServerHonorsTimeout(t *testing.T) {
	s := NewSMTPSender(silentListener(t))
	s.timeout = 200 * time.Millisecond

	start := time.Now()
	if err := s.SendCredentials(context.Background(), vendor, "pw", "subject"); err == nil {
		t.Fatal("expected an error from a server that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("SendCredentials blocked for %s past a 200ms timeout", elapsed)
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).SendCredentials(context.Background(), vendor, "pw", "subject"); err != nil {
		t.Errorf("LogSender returned %v", err)
	}
}
