package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/amishk599/c2cradar/internal/model"
)

// Ensure EmailNotifier implements model.Notifier.
var _ model.Notifier = (*EmailNotifier)(nil)

// SendFunc matches smtp.SendMail so tests can capture messages.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
}

// EmailNotifier sends each delivery as a multipart/alternative e-mail.
// smtp.SendMail upgrades to STARTTLS when the server offers it.
type EmailNotifier struct {
	cfg    SMTPConfig
	send   SendFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewEmailNotifier returns a notifier sending through the given SMTP server.
func NewEmailNotifier(cfg SMTPConfig, logger *slog.Logger) *EmailNotifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail, now: time.Now, logger: logger}
}

// WithSender replaces the SMTP transport.
func (n *EmailNotifier) WithSender(send SendFunc) *EmailNotifier {
	n.send = send
	return n
}

// Deliver composes and sends one alert e-mail.
func (n *EmailNotifier) Deliver(ctx context.Context, d model.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.Email == "" {
		return fmt.Errorf("delivery has no recipient")
	}

	msg, err := n.Compose(d)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(addr, auth, n.cfg.From, []string{d.Email}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", d.Email, err)
	}

	n.logger.Info("email sent", "to", d.Email, "posting_id", d.Posting.ID, "title", d.Posting.Title)
	return nil
}

// Compose builds the RFC 5322 message for a delivery.
func (n *EmailNotifier) Compose(d model.Delivery) ([]byte, error) {
	htmlBody, err := HTMLBody(d)
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(n.now())
	h.SetSubject(Subject(d.Posting))
	h.SetAddressList("From", []*mail.Address{{Name: "c2cradar", Address: n.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: d.Email}})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline writer: %w", err)
	}
	if err := writePart(tw, "text/plain", TextBody(d)); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", htmlBody); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return w.Close()
}
