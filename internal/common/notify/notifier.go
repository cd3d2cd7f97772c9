// internal/common/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	"energylab-funnel/internal/common/config"
	"energylab-funnel/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends post-submission confirmations over the channels the user
// consented to. A fully disabled notifier is a no-op, never an error.
type Notifier struct {
	cfg       config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.With(map[string]interface{}{"component": "notifier"}),
	}

	if !cfg.Email.Enabled && !cfg.SMS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	n.sesClient = ses.NewFromConfig(awsCfg)
	n.snsClient = sns.NewFromConfig(awsCfg)

	return n, nil
}

// NewWithClients wires pre-built clients, used by tests.
func NewWithClients(cfg config.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *Notifier {
	return &Notifier{
		cfg:       cfg,
		logger:    log.With(map[string]interface{}{"component": "notifier"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Confirmation describes one submitted lead's confirmation message.
type Confirmation struct {
	FirstName  string
	Email      string
	Phone      string
	EmailOptIn bool
	SMSOptIn   bool
}

// SendConfirmation dispatches the confirmation on each consented, enabled
// channel. Send failures are logged, not returned: confirmations are
// best-effort like every other post-validation step in the funnel.
func (n *Notifier) SendConfirmation(ctx context.Context, c Confirmation) {
	subject := "We're finding your energy deals"
	body := fmt.Sprintf(
		"Hi %s, thanks for using Energy Lab. We'll call you on %s to talk through the deals we found for your home.",
		c.FirstName, c.Phone,
	)

	if n.cfg.Email.Enabled && c.EmailOptIn && c.Email != "" {
		if err := n.sendEmail(ctx, c.Email, subject, body); err != nil {
			n.logger.Error("confirmation email failed", map[string]interface{}{
				"error": err.Error(),
				"email": c.Email,
			})
		}
	}

	if n.cfg.SMS.Enabled && c.SMSOptIn && c.Phone != "" {
		if err := n.sendSMS(ctx, c.Phone, body); err != nil {
			n.logger.Error("confirmation SMS failed", map[string]interface{}{
				"error": err.Error(),
				"phone": c.Phone,
			})
		}
	}
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	if n.sesClient == nil {
		return nil
	}
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
				Html: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	if n.snsClient == nil {
		return nil
	}
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}
