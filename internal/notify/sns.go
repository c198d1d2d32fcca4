// Package notify pushes triggered-alert notifications to SNS.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// Notifier receives the triggers a reading produced. Implementations
// must tolerate being called once per inbound message.
type Notifier interface {
	TriggersFired(ctx context.Context, reading domain.Reading, triggers []domain.AlertTrigger) error
}

// SNSNotifier publishes one aggregated message per reading.
type SNSNotifier struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSNotifier{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

func (n *SNSNotifier) TriggersFired(ctx context.Context, reading domain.Reading, triggers []domain.AlertTrigger) error {
	if len(triggers) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Weather Alert: %d threshold violation(s)", len(triggers))

	var b strings.Builder
	b.WriteString("Threshold violations detected:\n\n")
	for i, t := range triggers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatTriggerMessage(t))
	}
	fmt.Fprintf(&b, "\nReading received at %s from %s.",
		reading.Timestamp.Format("2006-01-02 15:04:05"), reading.SourceID)

	_, err := n.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(b.String()),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

// FormatTriggerMessage renders one trigger as a user-facing sentence.
func FormatTriggerMessage(t domain.AlertTrigger) string {
	label := "Temperature"
	unit := "°C"
	if t.Metric == domain.MetricHumidity {
		label = "Humidity"
		unit = "%"
	}
	return fmt.Sprintf("%s %s configured limit. Current value: %.1f%s", label, string(t.Direction), t.ObservedValue, unit)
}
