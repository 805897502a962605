package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"studycards/internal/logger"
	"studycards/internal/models"
)

// sesSender is the part of the SES client the service uses
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailConfig configures outgoing mail
type EmailConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
	Debug      bool
}

// EmailService sends notification emails through Amazon SES. Without a sender
// address it is disabled and every send is a logged no-op.
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	log        *logger.Logger
}

// NewEmailService loads the default AWS credential chain for the configured region
func NewEmailService(ctx context.Context, cfg EmailConfig, log *logger.Logger) (*EmailService, error) {
	log = log.With("component", "email")
	if cfg.FromEmail == "" {
		log.Info("email disabled: SES_FROM_EMAIL not configured")
		return &EmailService{debug: cfg.Debug, log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email enabled", "from", cfg.FromEmail, "region", cfg.AWSRegion)
	return newEmailService(sesv2.NewFromConfig(awsCfg), cfg, log), nil
}

func newEmailService(client sesSender, cfg EmailConfig, log *logger.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		enabled:    cfg.FromEmail != "" && client != nil,
		debug:      cfg.Debug,
		log:        log,
	}
}

func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail greets a newly registered learner
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	name := displayName(toName, toEmail)
	subject := "StudyCards'a hoş geldin!"
	link := s.appBaseURL + "/dashboard"

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Merhaba %s,</h1>
	<p>Hesabın hazır. Sınıfını, dersini ve konunu seç; yapay zeka senin için çalışma kartları hazırlasın.</p>
	<p><a href="%s">Çalışmaya başla</a></p>
	<p style="font-size: 12px; color: #666;">Bu e-posta otomatik gönderilmiştir.</p>
</body>
</html>`, html.EscapeString(name), link)

	textBody := fmt.Sprintf(`Merhaba %s,

Hesabın hazır. Sınıfını, dersini ve konunu seç; yapay zeka senin için çalışma kartları hazırlasın.

Çalışmaya başla: %s
`, name, link)

	return s.send(ctx, "welcome", toEmail, subject, htmlBody, textBody)
}

// SendSetCompletedEmail summarises a finished study session
func (s *EmailService) SendSetCompletedEmail(ctx context.Context, toEmail, toName string, set models.FlashcardSet, analysis models.SetAnalysis, studyTime string) error {
	name := displayName(toName, toEmail)
	subject := fmt.Sprintf("Tebrikler! %s setini tamamladın", set.Topic)
	link := fmt.Sprintf("%s/analysis/%d", s.appBaseURL, set.ID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Tebrikler %s!</h1>
	<p><strong>%s</strong> (%d. sınıf, %s) setini tamamladın.</p>
	<ul>
		<li>Toplam kart: %d</li>
		<li>Anlaşılan: %d</li>
		<li>Tekrar gereken: %d</li>
		<li>Çalışma süresi: %s</li>
	</ul>
	<p><a href="%s">Analizi görüntüle</a></p>
</body>
</html>`,
		html.EscapeString(name), html.EscapeString(set.Topic), set.Grade, html.EscapeString(set.Subject),
		analysis.TotalCards, analysis.UnderstoodCards, analysis.ReviewCards, studyTime, link)

	textBody := fmt.Sprintf(`Tebrikler %s!

%s (%d. sınıf, %s) setini tamamladın.

Toplam kart: %d
Anlaşılan: %d
Tekrar gereken: %d
Çalışma süresi: %s

Analiz: %s
`, name, set.Topic, set.Grade, set.Subject,
		analysis.TotalCards, analysis.UnderstoodCards, analysis.ReviewCards, studyTime, link)

	return s.send(ctx, "set_completed", toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) send(ctx context.Context, kind, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		s.log.Debug("skipping email, service disabled", "kind", kind, "to", toEmail)
		return nil
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}
	if s.debug {
		s.log.Debug("sending email", "kind", kind, "from", from, "to", toEmail, "subject", subject, "html_bytes", len(htmlBody))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{toEmail}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", kind, toEmail, err)
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	s.log.Info("email sent", "kind", kind, "to", toEmail, "message_id", messageID)
	return nil
}

func displayName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
