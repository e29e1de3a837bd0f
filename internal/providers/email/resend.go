package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

var ErrNoRecipients = errors.New("email_no_recipients")

type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResend(apiKey, from string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (p *ResendProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	req := &resend.SendEmailRequest{
		From:    p.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
	}
	for _, att := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    att.Filename,
			Content:     att.Content,
			ContentType: att.ContentType,
		})
	}
	if _, err := p.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("error sending email via Resend: %w", err)
	}
	return nil
}

func (p *ResendProvider) SendTemplate(ctx context.Context, msg Message, templateName string, data any) error {
	body, err := Render(templateName, data)
	if err != nil {
		return err
	}
	msg.HTMLBody = body
	return p.Send(ctx, msg)
}
