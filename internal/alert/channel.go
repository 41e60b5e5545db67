package alert

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"breachwatch/internal/config"
	"breachwatch/internal/provider"
)

// Channel delivers a rendered alert to one notification system.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNoRecipients   = errors.New("no email recipients configured")
	ErrNotConfigured  = errors.New("channel not configured")
	ErrInvalidAddress = errors.New("invalid email address")
)

const emailBody = `{{.Title}}
Severity: {{.Severity}}

{{.Description}}
{{range .Fields}}
{{.Title}}: {{.Value}}{{end}}

Recommendations:
{{range .Recommendations}}- {{.}}
{{end}}
Alert ID: {{.ID}}
Time: {{.Time.Format "2006-01-02 15:04:05 MST"}}
-- 
{{footer}}
`

var emailTemplate = template.Must(template.New("email").
	Funcs(template.FuncMap{"footer": func() string { return Footer }}).
	Parse(emailBody))

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends one SMTP message per recipient.
type Email struct {
	cfg      config.EmailConfig
	sendMail sendMailFunc
}

func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg, sendMail: sendMail}
}

func (e *Email) Name() string { return "email" }

// Send delivers msg to the configured recipients plus the event's own. Every
// recipient is attempted; the errors are joined.
func (e *Email) Send(ctx context.Context, msg Message) error {
	recipients := append(append([]string{}, e.cfg.Recipients...), msg.Recipients...)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if e.cfg.Host == "" {
		return fmt.Errorf("email: %w: smtp host", ErrNotConfigured)
	}
	from, err := parseAddress(e.cfg.From)
	if err != nil {
		return fmt.Errorf("email: from: %w", err)
	}

	var body strings.Builder
	if err := emailTemplate.Execute(&body, msg); err != nil {
		return fmt.Errorf("email: render: %w", err)
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	var errs []error
	for _, raw := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		to, err := parseAddress(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("email: recipient %q: %w", raw, err))
			continue
		}
		data := compose(from, to, msg.Subject, body.String())
		if err := e.sendMail(ctx, addr, auth, from.Address, []string{to.Address}, data); err != nil {
			errs = append(errs, fmt.Errorf("email: send to %s: %w", to.Address, err))
		}
	}
	return errors.Join(errs...)
}

// parseAddress accepts a single RFC 5322 address. Line breaks are rejected
// outright so no value can add header lines.
func parseAddress(s string) (*mail.Address, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, ErrInvalidAddress
	}
	a, err := mail.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return a, nil
}

func headerAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return a.String()
}

func compose(from, to *mail.Address, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerAddress(from) + "\r\n")
	b.WriteString("To: " + headerAddress(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// sendMail is smtp.SendMail bound to ctx. The dial honours ctx, the
// connection deadline follows ctx's deadline, and cancelling ctx aborts any
// read or write in flight.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		conn.Close()
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
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

// Slack posts an attachment card to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *provider.HTTPClient
}

func NewSlack(cfg config.SlackConfig, client *provider.HTTPClient) *Slack {
	if client == nil {
		client = provider.NewHTTPClient(10 * time.Second)
	}
	return &Slack{webhookURL: cfg.WebhookURL, client: client}
}

func (s *Slack) Name() string { return "slack" }

type slackAttachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
	Footer string  `json:"footer"`
	TS     int64   `json:"ts"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

func (s *Slack) Send(ctx context.Context, msg Message) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack: %w: webhook url", ErrNotConfigured)
	}
	payload := slackPayload{Attachments: []slackAttachment{{
		Color:  Color(msg.Type),
		Title:  msg.Emoji + " " + msg.Title,
		Fields: msg.Fields,
		Footer: Footer,
		TS:     msg.Time.Unix(),
	}}}
	return s.client.PostJSON(ctx, "slack", s.webhookURL, nil, payload, nil)
}

const defaultTelegramURL = "https://api.telegram.org"

// Telegram sends an HTML message through the bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *provider.HTTPClient
}

func NewTelegram(cfg config.TelegramConfig, client *provider.HTTPClient) *Telegram {
	if client == nil {
		client = provider.NewHTTPClient(10 * time.Second)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultTelegramURL
	}
	return &Telegram{token: cfg.BotToken, chatID: cfg.ChatID, baseURL: base, client: client}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, msg Message) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram: %w: bot token or chat id", ErrNotConfigured)
	}
	req := map[string]string{
		"chat_id":    t.chatID,
		"text":       TelegramText(msg),
		"parse_mode": "HTML",
	}
	return t.client.PostJSON(ctx, "telegram", t.baseURL+"/bot"+t.token+"/sendMessage", nil, req, nil)
}

// TelegramText renders msg as bot API HTML.
func TelegramText(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", msg.Emoji, html.EscapeString(msg.Title))
	for _, f := range msg.Fields {
		fmt.Fprintf(&b, "<b>%s:</b> %s\n", html.EscapeString(f.Title), html.EscapeString(f.Value))
	}
	fmt.Fprintf(&b, "\n⏰ <b>Time:</b> %s", msg.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "\n🔐 <b>Source:</b> %s", Footer)
	return b.String()
}
