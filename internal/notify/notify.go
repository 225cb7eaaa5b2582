package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/rules"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Delivery statuses.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// SESService and SNSService are the subsets of the AWS clients the notifier
// calls, so tests can substitute them.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Recipient struct {
	Email string
	Phone string
}

type Config struct {
	FromEmail    string
	EmailEnabled bool
	SMSEnabled   bool
	DefaultAgent string
	Recipients   map[string]Recipient
}

// Delivery is the outcome of one digest to one agent.
type Delivery struct {
	Agent  string `json:"agent"`
	Count  int    `json:"count"`
	Email  string `json:"email"`
	SMS    string `json:"sms"`
	Detail string `json:"detail,omitempty"`
}

// Result summarizes a Send.
type Result struct {
	DigestID   string     `json:"digestId"`
	SentAt     string     `json:"sentAt"`
	Deliveries []Delivery `json:"deliveries"`
}

// Sent counts deliveries with at least one channel sent.
func (r Result) Sent() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Email == StatusSent || d.SMS == StatusSent {
			n++
		}
	}
	return n
}

type Notifier struct {
	cfg    Config
	ses    SESService
	sns    SNSService
	logger logger.Logger
	now    func() time.Time
}

func NewNotifier(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if cfg.Recipients == nil {
		cfg.Recipients = map[string]Recipient{}
	}
	return &Notifier{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
		now:    time.Now,
	}
}

// Send delivers one digest per agent with flagged records. A failed
// delivery is logged and recorded; Send only returns an error when every
// attempted delivery failed.
func (n *Notifier) Send(ctx context.Context, report rules.Report) (*Result, error) {
	result := &Result{
		DigestID: uuid.New().String(),
		SentAt:   n.now().UTC().Format(time.RFC3339),
	}

	attempted, failed := 0, 0
	var lastErr error

	for _, d := range BuildDigests(report, n.cfg.DefaultAgent) {
		delivery := Delivery{Agent: d.Agent, Count: d.Count(), Email: StatusDisabled, SMS: StatusDisabled}
		to := n.cfg.Recipients[d.Agent]

		if n.cfg.EmailEnabled {
			delivery.Email = StatusSkipped
			if to.Email != "" {
				attempted++
				if err := n.sendEmail(ctx, to.Email, d); err != nil {
					failed++
					lastErr = err
					delivery.Email = StatusFailed
					delivery.Detail = err.Error()
				} else {
					delivery.Email = StatusSent
				}
				metrics.NotificationsSent.WithLabelValues(ChannelEmail, delivery.Email).Inc()
			}
		}

		if n.cfg.SMSEnabled && d.Urgent() > 0 {
			delivery.SMS = StatusSkipped
			if to.Phone != "" {
				attempted++
				if err := n.sendSMS(ctx, to.Phone, d); err != nil {
					failed++
					lastErr = err
					delivery.SMS = StatusFailed
					delivery.Detail = err.Error()
				} else {
					delivery.SMS = StatusSent
				}
				metrics.NotificationsSent.WithLabelValues(ChannelSMS, delivery.SMS).Inc()
			}
		}

		if delivery.Email == StatusSkipped || delivery.SMS == StatusSkipped {
			n.logger.Warn("no contact for agent", map[string]interface{}{"agent": d.Agent})
		}
		result.Deliveries = append(result.Deliveries, delivery)
	}

	n.logger.Info("alert digest processed", map[string]interface{}{
		"digestId":  result.DigestID,
		"agents":    len(result.Deliveries),
		"attempted": attempted,
		"failed":    failed,
	})

	if attempted > 0 && failed == attempted {
		return result, lastErr
	}
	return result, nil
}

func (n *Notifier) sendEmail(ctx context.Context, to string, d Digest) error {
	if n.ses == nil {
		return apperrors.NewNotificationSendFailedError(ChannelEmail, fmt.Errorf("no SES client configured"))
	}
	subject, body, err := d.Render()
	if err != nil {
		return apperrors.NewNotificationSendFailedError(ChannelEmail, fmt.Errorf("render digest: %w", err))
	}
	_, err = n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.FromEmail),
	})
	if err != nil {
		n.logger.Error("email send failed", map[string]interface{}{"error": err.Error(), "agent": d.Agent})
		return apperrors.NewNotificationSendFailedError(ChannelEmail, err)
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, to string, d Digest) error {
	if n.sns == nil {
		return apperrors.NewNotificationSendFailedError(ChannelSMS, fmt.Errorf("no SNS client configured"))
	}
	msg, err := d.RenderSMS()
	if err != nil {
		return apperrors.NewNotificationSendFailedError(ChannelSMS, fmt.Errorf("render sms: %w", err))
	}
	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(msg),
	})
	if err != nil {
		n.logger.Error("SMS send failed", map[string]interface{}{"error": err.Error(), "agent": d.Agent})
		return apperrors.NewNotificationSendFailedError(ChannelSMS, err)
	}
	return nil
}
