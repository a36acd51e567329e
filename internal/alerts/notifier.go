// Package alerts notifies deal teams when a refresh finds a candidate's
// qualification invalid.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	awsx "dd-qualification/internal/common/aws"
	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/qualification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/multierr"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"
)

// Alert is the payload published for an invalid qualification.
type Alert struct {
	SubjectID       string                  `json:"subjectId"`
	RunID           string                  `json:"runId"`
	OverallScore    int                     `json:"overallScore"`
	Level           string                  `json:"qualificationLevel"`
	ValidationScore int                     `json:"validationScore"`
	Confidence      float64                 `json:"validationConfidence"`
	RedFlags        []qualification.Finding `json:"redFlags"`
	Discrepancies   []qualification.Finding `json:"discrepancies"`
	Recommendations []string                `json:"recommendations"`
	ComputedAt      time.Time               `json:"computedAt"`
}

func NewAlert(r *qualification.RefreshResult) Alert {
	return Alert{
		SubjectID:       r.SubjectID,
		RunID:           r.RunID,
		OverallScore:    r.Vector.Overall,
		Level:           r.Vector.Level(),
		ValidationScore: r.Validation.Score,
		Confidence:      r.Validation.Confidence,
		RedFlags:        r.Validation.RedFlags,
		Discrepancies:   r.Validation.Discrepancies,
		Recommendations: r.Validation.Recommendations,
		ComputedAt:      r.ComputedAt,
	}
}

func (a Alert) Subject() string {
	return fmt.Sprintf("Qualification invalid for %s (score %d)", a.SubjectID, a.ValidationScore)
}

// Text renders the alert for email.
func (a Alert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", a.SubjectID)
	fmt.Fprintf(&b, "Overall score: %d (%s)\n", a.OverallScore, a.Level)
	fmt.Fprintf(&b, "Validation score: %d, confidence %.2f\n", a.ValidationScore, a.Confidence)
	writeFindings(&b, "Red flags", a.RedFlags)
	writeFindings(&b, "Discrepancies", a.Discrepancies)
	if len(a.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\nRun %s at %s\n", a.RunID, a.ComputedAt.Format(time.RFC3339))
	return b.String()
}

func writeFindings(b *strings.Builder, title string, fs []qualification.Finding) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, f := range fs {
		fmt.Fprintf(b, "  - [%s] %s\n", f.Code, f.Message)
	}
}

type Options struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

// Delivery records the outcome of one channel.
type Delivery struct {
	Channel   string `json:"channel"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Notifier publishes alerts to SNS and emails them through SES. A nil
// client disables its channel.
type Notifier struct {
	sns    awsx.SNSService
	ses    awsx.SESService
	opts   Options
	logger logger.Logger
}

func NewNotifier(snsClient awsx.SNSService, sesClient awsx.SESService, opts Options, log logger.Logger) *Notifier {
	return &Notifier{
		sns:    snsClient,
		ses:    sesClient,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "alerts"}),
	}
}

// Notify sends an alert when the refresh verdict is invalid. Valid verdicts
// send nothing. Every enabled channel is attempted; failures are combined.
func (n *Notifier) Notify(ctx context.Context, r *qualification.RefreshResult) ([]Delivery, error) {
	if n == nil || r == nil || r.Validation.IsValid {
		return nil, nil
	}
	alert := NewAlert(r)

	var (
		deliveries []Delivery
		combined   error
	)
	if n.sns != nil && n.opts.TopicARN != "" {
		id, err := n.publish(ctx, alert)
		deliveries = append(deliveries, delivery(ChannelSNS, id, err))
		combined = multierr.Append(combined, err)
	}
	if n.ses != nil && n.opts.FromEmail != "" && len(n.opts.Recipients) > 0 {
		id, err := n.email(ctx, alert)
		deliveries = append(deliveries, delivery(ChannelSES, id, err))
		combined = multierr.Append(combined, err)
	}

	n.logger.Info("validation alert dispatched", map[string]interface{}{
		"subjectId":  alert.SubjectID,
		"runId":      alert.RunID,
		"channels":   len(deliveries),
		"hasFailure": combined != nil,
	})
	return deliveries, combined
}

func delivery(channel, id string, err error) Delivery {
	d := Delivery{Channel: channel, MessageID: id}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

func (n *Notifier) publish(ctx context.Context, alert Alert) (string, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return "", apperrors.NewAlertPublishFailedError(ChannelSNS, err)
	}
	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.opts.TopicARN),
		Subject:  aws.String(truncate(alert.Subject(), 100)),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"subjectId": {DataType: aws.String("String"), StringValue: aws.String(alert.SubjectID)},
		},
	})
	if err != nil {
		return "", apperrors.NewAlertPublishFailedError(ChannelSNS, err).WithMetadata("subjectId", alert.SubjectID)
	}
	return aws.ToString(out.MessageId), nil
}

func (n *Notifier) email(ctx context.Context, alert Alert) (string, error) {
	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.opts.Recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(alert.Subject())},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(alert.Text())},
			},
		},
		Source: aws.String(n.opts.FromEmail),
	})
	if err != nil {
		return "", apperrors.NewAlertPublishFailedError(ChannelSES, err).WithMetadata("subjectId", alert.SubjectID)
	}
	return aws.ToString(out.MessageId), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
