// Package notify sends the workflow's outbound messages: transactional
// email to applicants over SES and operator alerts over SNS.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
)

// SESAPI is the slice of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends applicant-facing email. When disabled (local dev without
// AWS credentials) it logs the message instead of sending it, so the
// workflow still runs end to end.
type SESMailer struct {
	client  SESAPI
	from    string
	enabled bool
	logger  logger.Logger
}

func NewSESMailer(client SESAPI, fromEmail string, enabled bool, log logger.Logger) *SESMailer {
	return &SESMailer{
		client:  client,
		from:    fromEmail,
		enabled: enabled,
		logger:  log.WithFields(map[string]interface{}{"component": "mailer"}),
	}
}

var verificationBody = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome{{if .FirstName}}, {{.FirstName}}{{end}}!</h2>
  <p>Thank you for applying for a professional account. Please verify your
  email address to continue your application.</p>
  <p style="margin: 24px 0;">
    <a href="{{.VerifyURL}}" style="background-color: #2c6e49; color: #ffffff;
       padding: 12px 24px; text-decoration: none; border-radius: 4px;">
      Verify Email Address
    </a>
  </p>
  <p>After verifying, you will be asked to upload a copy of your professional
  license for review.</p>
  <p style="color: #888888; font-size: 12px;">This link expires in 24 hours.
  If you did not request this, you can ignore this email.</p>
</div>
`))

var rejectionBody = template.Must(template.New("rejection").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Application Update</h2>
  <p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>
  <p>Thank you for your interest in a professional account. After reviewing
  your application, we are unable to approve it at this time.</p>
  <p>Common reasons include an unreadable license document or license
  details that could not be confirmed. You are welcome to reply to this
  email with questions or to submit a new application with updated
  documentation.</p>
</div>
`))

// SendVerificationEmail delivers the signed verification link to a new
// applicant.
func (m *SESMailer) SendVerificationEmail(ctx context.Context, to, firstName, verifyURL string) error {
	body, err := render(verificationBody, map[string]string{
		"FirstName": firstName,
		"VerifyURL": verifyURL,
	})
	if err != nil {
		return errors.NewInternalError(err)
	}
	return m.send(ctx, to, "Verify your email address", body)
}

// SendRejectionEmail tells a declined applicant the outcome and how to
// follow up.
func (m *SESMailer) SendRejectionEmail(ctx context.Context, to, firstName string) error {
	body, err := render(rejectionBody, map[string]string{"FirstName": firstName})
	if err != nil {
		return errors.NewInternalError(err)
	}
	return m.send(ctx, to, "Update on your professional account application", body)
}

func (m *SESMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.enabled {
		m.logger.Info("email sending disabled, logging instead", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return nil
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	})
	if err != nil {
		return errors.NewEmailSendError(fmt.Errorf("ses send to %s: %w", to, err))
	}

	m.logger.Info("email sent", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
