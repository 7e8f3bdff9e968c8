// Package notify sends operator alerts when a payment-collection setup
// fails. Alerts are best effort; a delivery failure is logged, never
// propagated to the saga.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"rentpay-workers/internal/common/config"
	"rentpay-workers/internal/common/logger"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Alerter struct {
	cfg       config.AlertsConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewAlerter(ctx context.Context, cfg config.AlertsConfig, log logger.Logger) (*Alerter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Alerter{
		cfg:       cfg,
		logger:    log,
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewAlerterWithClients wires explicit clients, used by tests.
func NewAlerterWithClients(cfg config.AlertsConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Alerter {
	return &Alerter{cfg: cfg, logger: log, sesClient: sesClient, snsClient: snsClient}
}

// SagaFailure notifies the ops channel that a setup saga failed for an
// application. Email carries the full reason; SMS is a short pointer.
func (a *Alerter) SagaFailure(ctx context.Context, applicationID, reason string) {
	subject := fmt.Sprintf("Payment setup failed for application %s", applicationID)
	body := fmt.Sprintf(
		"Payment-collection setup failed.\n\nApplication: %s\nReason: %s\n\nThe tenancy approval is unaffected; re-run the setup after resolving the cause.",
		applicationID, reason,
	)

	if a.cfg.Email.Enabled && a.cfg.Email.OpsEmail != "" {
		if err := a.sendEmail(ctx, subject, body); err != nil {
			a.logger.Error("ops email alert failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
		}
	}

	if a.cfg.SMS.Enabled && a.cfg.SMS.OpsPhone != "" {
		if err := a.sendSMS(ctx, subject); err != nil {
			a.logger.Error("ops SMS alert failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
		}
	}
}

func (a *Alerter) sendEmail(ctx context.Context, subject, body string) error {
	_, err := a.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{a.cfg.Email.OpsEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(a.cfg.Email.FromEmail),
	})
	return err
}

func (a *Alerter) sendSMS(ctx context.Context, message string) error {
	_, err := a.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(a.cfg.SMS.OpsPhone),
		Message:     aws.String(message),
	})
	return err
}
