package channels

import (
	"context"
	"fmt"
	"net"
	"time"

	"procurement_backend/internal/requests/domain"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

const emailSubject = "Sobre tu solicitud de compra"

// EmailChannel delivers messages over a direct SMTP connection via go-mail.
type EmailChannel struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	log       *logger.Logger
}

// NewEmailChannel creates the channel. Returns nil when email is disabled.
func NewEmailChannel(cfg config.SMTPConfig, log *logger.Logger) *EmailChannel {
	if !cfg.IsEmailEnabled() {
		return nil
	}
	return &EmailChannel{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		log:       log,
	}
}

// Name returns the channel identifier.
func (c *EmailChannel) Name() string { return domain.SourceEmail }

// Send delivers a plain-text message to the recipient address.
func (c *EmailChannel) Send(ctx context.Context, to, content string) (SendResult, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(c.fromName, c.fromEmail); err != nil {
		return SendResult{}, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return SendResult{}, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(emailSubject)
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextPlain, content)

	client, err := gomail.NewClient(c.host,
		gomail.WithPort(c.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(c.username),
		gomail.WithPassword(c.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		c.log.ChannelSend(domain.SourceEmail, to, false, err)
		return SendResult{}, fmt.Errorf("smtp send: %w", err)
	}

	c.log.ChannelSend(domain.SourceEmail, to, true, nil)
	var providerID string
	if ids := msg.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		providerID = ids[0]
	}
	return SendResult{Success: true, ProviderMessageID: providerID}, nil
}
