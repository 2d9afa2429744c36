package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"

	"famride/internal/models"
)

// EmailService sends booking notifications via Amazon SES. It is disabled
// when no sender address is configured, in which case every send is a
// logged no-op.
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName string) (*EmailService, error) {
	if fromEmail == "" {
		log.Info().Msg("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info().Str("from", fromEmail).Str("region", awsRegion).Msg("email service enabled")
	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendBookingConfirmation notifies the rider that a ride was booked.
func (s *EmailService) SendBookingConfirmation(ctx context.Context, toEmail, toName string, appt *models.Appointment) error {
	if !s.enabled {
		log.Debug().Str("to", toEmail).Msg("skipping booking confirmation (email disabled)")
		return nil
	}

	subject := "Your ride is booked"
	schedule := describeSchedule(appt)
	textBody := fmt.Sprintf(`Hi %s,

Your ride has been booked:

%s
From: %s
To: %s

---
This is an automated email from FamRide. Please do not reply.
`, toName, schedule, appt.LocationFrom, appt.LocationTo)

	htmlBody := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Your ride has been booked:</p>
<p><strong>%s</strong><br>From: %s<br>To: %s</p>
<p style="color:#666;font-size:12px">This is an automated email from FamRide. Please do not reply.</p>
</body></html>`, toName, schedule, appt.LocationFrom, appt.LocationTo)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendBookingCancellation notifies the rider that a ride was cancelled.
func (s *EmailService) SendBookingCancellation(ctx context.Context, toEmail, toName string, appt *models.Appointment) error {
	if !s.enabled {
		log.Debug().Str("to", toEmail).Msg("skipping booking cancellation (email disabled)")
		return nil
	}

	subject := "Your ride was cancelled"
	schedule := describeSchedule(appt)
	textBody := fmt.Sprintf(`Hi %s,

The following ride has been cancelled:

%s
From: %s
To: %s

---
This is an automated email from FamRide. Please do not reply.
`, toName, schedule, appt.LocationFrom, appt.LocationTo)

	htmlBody := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>The following ride has been cancelled:</p>
<p><strong>%s</strong><br>From: %s<br>To: %s</p>
<p style="color:#666;font-size:12px">This is an automated email from FamRide. Please do not reply.</p>
</body></html>`, toName, schedule, appt.LocationFrom, appt.LocationTo)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// describeSchedule renders the day pattern and time window for emails.
func describeSchedule(appt *models.Appointment) string {
	return fmt.Sprintf("%s, %s-%s", strings.Join(appt.Days, "/"), appt.TimeFrom, appt.TimeTo)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Info().Str("to", toEmail).Str("message_id", messageID).Msg("email sent")
	return nil
}
